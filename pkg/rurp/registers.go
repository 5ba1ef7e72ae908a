package rurp

import "github.com/mbalug7/go-rurp/pkg/hal"

// sentinel marks a shadow register that was never latched.
const sentinel uint8 = 0xFF

type registersCollection [3]hal.Register

func newRegistersCollection() registersCollection {
	return registersCollection{
		&AddressLowRegister{value: sentinel},
		&AddressHighRegister{value: sentinel},
		&ControlRegister{signals: ControlSignals(sentinel)},
	}
}

// find returns nil for addresses that are not a logical register.
func (c registersCollection) find(address hal.RegAddress) hal.Register {
	for _, reg := range c {
		if reg.GetAddress() == address {
			return reg
		}
	}
	return nil
}

// address low byte

type AddressLowRegister struct {
	value uint8
}

func (obj *AddressLowRegister) GetAddress() hal.RegAddress {
	return hal.AddressLow
}

func (obj *AddressLowRegister) GetValue() uint8 {
	return obj.value
}

func (obj *AddressLowRegister) SetValue(value uint8) {
	obj.value = value
}

// address high byte

type AddressHighRegister struct {
	value uint8
}

func (obj *AddressHighRegister) GetAddress() hal.RegAddress {
	return hal.AddressHigh
}

func (obj *AddressHighRegister) GetValue() uint8 {
	return obj.value
}

func (obj *AddressHighRegister) SetValue(value uint8) {
	obj.value = value
}

// control register

// ControlSignals is the logical bit layout of the control register.
// The layout latched on the board depends on the hardware revision.
type ControlSignals uint8

const (
	RegulatorEnable ControlSignals = 0x01
	A9VPPEnable     ControlSignals = 0x02
	VPEEnable       ControlSignals = 0x04
	P1VPPEnable     ControlSignals = 0x08 // high voltage on pin 1, needs settle time when released
	AddressLine17   ControlSignals = 0x10
	AddressLine18   ControlSignals = 0x20
	ReadWrite       ControlSignals = 0x40
	AddressLine16   ControlSignals = 0x80
)

func (s ControlSignals) Has(bits ControlSignals) bool {
	return s&bits == bits
}

func (s ControlSignals) With(bits ControlSignals) ControlSignals {
	return s | bits
}

func (s ControlSignals) Without(bits ControlSignals) ControlSignals {
	return s &^ bits
}

// releasesVPP reports whether going from s to next de-asserts P1VPPEnable.
func (s ControlSignals) releasesVPP(next ControlSignals) bool {
	return s&P1VPPEnable > next&P1VPPEnable
}

type ControlRegister struct {
	signals ControlSignals
}

func (obj *ControlRegister) GetAddress() hal.RegAddress {
	return hal.Control
}

func (obj *ControlRegister) GetValue() uint8 {
	return uint8(obj.signals)
}

func (obj *ControlRegister) SetValue(value uint8) {
	obj.signals = ControlSignals(value)
}

func (obj *ControlRegister) Signals() ControlSignals {
	return obj.signals
}
