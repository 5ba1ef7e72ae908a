package hal

import (
	"io"
	"time"
)

// Mode selects who owns the shared data-bus pins.
type Mode int

const (
	// ModeCommunication hands the shared pins to the host link.
	ModeCommunication Mode = iota
	// ModeProgrammer hands the shared pins to the register bus.
	ModeProgrammer
)

func (m Mode) String() string {
	switch m {
	case ModeCommunication:
		return "communication"
	case ModeProgrammer:
		return "programmer"
	}
	return "unknown"
}

type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

type PinMode int

const (
	PinInput PinMode = iota
	PinInputPullUp
)

// HostLinkRXMask is the data-bus bit shared with the host link receive line.
const HostLinkRXMask uint8 = 0x01

// DataBus is the shared 8-bit port. Bit n of every mask maps to data line n.
type DataBus interface {
	SetDirection(mask uint8, dir Direction) error
	WriteData(value uint8) error
	ReadData() (uint8, error)
}

// ControlPort drives the strobe lines and the chip select lines.
// Masks are built from RegAddress and Line values.
type ControlPort interface {
	SetDirection(mask uint8, dir Direction) error
	Set(mask uint8) error
	Clear(mask uint8) error
}

type DigitalPin interface {
	Configure(mode PinMode) error
	Get() (bool, error)
}

// AnalogPin is a digital pin that can also be sampled by the ADC.
// Read returns a 10-bit sample.
type AnalogPin interface {
	DigitalPin
	Read() (uint16, error)
}

// ReferenceADC samples the internal band-gap reference against the supply
// rail. The caller drives the sequence: select, settle, start, poll, read.
type ReferenceADC interface {
	SelectBandgap() error
	StartConversion() error
	Busy() (bool, error)
	Result() (uint16, error)
}

// HostLink is the byte-oriented serial link to the host computer. Read
// returns io.EOF when no byte is pending. Flush blocks until written bytes
// have been handed to the transmitter.
type HostLink interface {
	io.Reader
	io.Writer
	Open(baudRate int) error
	Ready() (bool, error)
	Available() (int, error)
	Flush() error
	Close() error
}

// HWHandler groups everything a shield backend has to provide.
type HWHandler interface {
	DataBus() DataBus
	ControlPort() ControlPort
	HostLink() HostLink
	ReferenceADC() ReferenceADC
	RevisionPin() DigitalPin
	SensePin() AnalogPin
	// Sleep must be accurate down to a few microseconds.
	Sleep(d time.Duration)
}
