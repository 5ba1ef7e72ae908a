package rurp

import (
	"fmt"
	"time"

	"github.com/mbalug7/go-rurp/pkg/hal"
)

// DefaultSettleDelay is the wait after releasing P1VPPEnable.
const DefaultSettleDelay = 4 * time.Microsecond

// RegisterBus multiplexes the three logical registers onto the shared data
// bus. It keeps a shadow of every register, the latches cannot be read back.
// RegisterBus does not check the current mode.
type RegisterBus struct {
	data      hal.DataBus
	ctrl      hal.ControlPort
	sleep     func(time.Duration)
	settle    time.Duration
	mapper    ControlMapper
	registers registersCollection
}

func NewRegisterBus(data hal.DataBus, ctrl hal.ControlPort, sleep func(time.Duration)) *RegisterBus {
	return &RegisterBus{
		data:      data,
		ctrl:      ctrl,
		sleep:     sleep,
		settle:    DefaultSettleDelay,
		mapper:    identityMapper,
		registers: newRegistersCollection(),
	}
}

// SetControlMapper selects the revision layout of the control latch.
func (obj *RegisterBus) SetControlMapper(mapper ControlMapper) {
	if mapper == nil {
		mapper = identityMapper
	}
	obj.mapper = mapper
}

func (obj *RegisterBus) SetSettleDelay(d time.Duration) {
	obj.settle = d
}

// Reset forgets the shadow values and latches zero into every register.
func (obj *RegisterBus) Reset() error {
	obj.registers = newRegistersCollection()
	for _, reg := range obj.registers {
		if err := obj.WriteRegister(reg.GetAddress(), 0x00); err != nil {
			return err
		}
	}
	return nil
}

// WriteRegister latches value into reg unless the shadow already holds it.
// Unknown registers are ignored.
func (obj *RegisterBus) WriteRegister(address hal.RegAddress, value uint8) error {
	reg := obj.registers.find(address)
	if reg == nil || reg.GetValue() == value {
		return nil
	}

	settle := false
	data := value
	if ctrl, ok := reg.(*ControlRegister); ok {
		settle = ctrl.Signals().releasesVPP(ControlSignals(value))
		data = obj.mapper(ControlSignals(value))
	}

	if err := obj.WriteDataBus(data); err != nil {
		return fmt.Errorf("failed to drive %s register: %w", address, err)
	}
	if err := obj.strobe(address); err != nil {
		return err
	}
	// shadow only changes once the latch has captured the byte
	reg.SetValue(value)
	if settle {
		obj.sleep(obj.settle)
	}
	return nil
}

// ReadRegister returns the shadow value of reg, 0 for unknown registers.
func (obj *RegisterBus) ReadRegister(address hal.RegAddress) uint8 {
	reg := obj.registers.find(address)
	if reg == nil {
		return 0
	}
	return reg.GetValue()
}

// Signals returns the logical control register.
func (obj *RegisterBus) Signals() ControlSignals {
	return ControlSignals(obj.ReadRegister(hal.Control))
}

func (obj *RegisterBus) WriteDataBus(value uint8) error {
	if err := obj.SetDataAsOutput(); err != nil {
		return err
	}
	if err := obj.data.WriteData(value); err != nil {
		return fmt.Errorf("failed to write data bus: %w", err)
	}
	return nil
}

func (obj *RegisterBus) ReadDataBus() (uint8, error) {
	value, err := obj.data.ReadData()
	if err != nil {
		return 0, fmt.Errorf("failed to read data bus: %w", err)
	}
	return value, nil
}

func (obj *RegisterBus) SetDataAsOutput() error {
	if err := obj.data.SetDirection(0xFF, hal.DirectionOutput); err != nil {
		return fmt.Errorf("failed to set data bus as output: %w", err)
	}
	return nil
}

func (obj *RegisterBus) SetDataAsInput() error {
	if err := obj.data.SetDirection(0xFF, hal.DirectionInput); err != nil {
		return fmt.Errorf("failed to set data bus as input: %w", err)
	}
	return nil
}

// SetControlLine drives one of the chip select lines.
func (obj *RegisterBus) SetControlLine(line hal.Line, state bool) error {
	var err error
	if state {
		err = obj.ctrl.Set(uint8(line))
	} else {
		err = obj.ctrl.Clear(uint8(line))
	}
	if err != nil {
		return fmt.Errorf("failed to set control line %#x: %w", uint8(line), err)
	}
	return nil
}

// the latch captures on the rising edge, no hold time needed
func (obj *RegisterBus) strobe(address hal.RegAddress) error {
	if err := obj.ctrl.Set(uint8(address)); err != nil {
		return fmt.Errorf("failed to raise %s strobe: %w", address, err)
	}
	if err := obj.ctrl.Clear(uint8(address)); err != nil {
		return fmt.Errorf("failed to lower %s strobe: %w", address, err)
	}
	return nil
}
