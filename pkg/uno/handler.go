//go:build tinygo && avr

// Package uno is the ATmega328P backend. The data bus is PORTD, the strobe
// and chip select lines are PORTB, the revision strap is A3 and the
// voltage sense input is A2.
package uno

import (
	"device/avr"
	"io"
	"machine"
	"time"

	"github.com/mbalug7/go-rurp/pkg/hal"
	"tinygo.org/x/drivers/delay"
)

const (
	revisionStrapPin = machine.ADC3
	senseInputPin    = machine.ADC2
)

type HWHandler struct {
	data        *dataBus     // PORTD, shared with the UART receive line
	ctrl        *controlPort // PORTB
	link        *hostLink    // hardware UART
	adc         *bandgapADC  // internal reference conversion
	revisionPin *digitalPin  // A3
	sensePin    *analogPin   // A2
}

func NewHWHandler() *HWHandler {
	machine.InitADC()
	sense := &analogPin{
		digitalPin: digitalPin{pin: senseInputPin},
		adc:        machine.ADC{Pin: senseInputPin},
	}
	return &HWHandler{
		data:        &dataBus{},
		ctrl:        &controlPort{},
		link:        &hostLink{uart: machine.Serial},
		adc:         &bandgapADC{},
		revisionPin: &digitalPin{pin: revisionStrapPin},
		sensePin:    sense,
	}
}

func (obj *HWHandler) DataBus() hal.DataBus           { return obj.data }
func (obj *HWHandler) ControlPort() hal.ControlPort   { return obj.ctrl }
func (obj *HWHandler) HostLink() hal.HostLink         { return obj.link }
func (obj *HWHandler) ReferenceADC() hal.ReferenceADC { return obj.adc }
func (obj *HWHandler) RevisionPin() hal.DigitalPin    { return obj.revisionPin }
func (obj *HWHandler) SensePin() hal.AnalogPin        { return obj.sensePin }

func (obj *HWHandler) Sleep(d time.Duration) {
	delay.Sleep(d)
}

type dataBus struct{}

func (obj *dataBus) SetDirection(mask uint8, dir hal.Direction) error {
	if dir == hal.DirectionOutput {
		avr.DDRD.SetBits(mask)
	} else {
		avr.DDRD.ClearBits(mask)
	}
	return nil
}

func (obj *dataBus) WriteData(value uint8) error {
	avr.PORTD.Set(value)
	return nil
}

func (obj *dataBus) ReadData() (uint8, error) {
	return avr.PIND.Get(), nil
}

type controlPort struct{}

func (obj *controlPort) SetDirection(mask uint8, dir hal.Direction) error {
	if dir == hal.DirectionOutput {
		avr.DDRB.SetBits(mask)
	} else {
		avr.DDRB.ClearBits(mask)
	}
	return nil
}

func (obj *controlPort) Set(mask uint8) error {
	avr.PORTB.SetBits(mask)
	return nil
}

func (obj *controlPort) Clear(mask uint8) error {
	avr.PORTB.ClearBits(mask)
	return nil
}

type digitalPin struct {
	pin machine.Pin
}

func (obj *digitalPin) Configure(mode hal.PinMode) error {
	if mode == hal.PinInputPullUp {
		obj.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	} else {
		obj.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	return nil
}

func (obj *digitalPin) Get() (bool, error) {
	return obj.pin.Get(), nil
}

type analogPin struct {
	digitalPin
	adc machine.ADC
}

// Read returns the 10-bit conversion, machine.ADC left aligns it to 16 bits.
func (obj *analogPin) Read() (uint16, error) {
	return obj.adc.Get() >> 6, nil
}

// bandgapADC measures the internal 1.1 V reference against AVcc.
type bandgapADC struct{}

func (obj *bandgapADC) SelectBandgap() error {
	avr.ADCSRA.SetBits(avr.ADCSRA_ADEN)
	avr.ADMUX.Set(avr.ADMUX_REFS0 | avr.ADMUX_MUX3 | avr.ADMUX_MUX2 | avr.ADMUX_MUX1)
	return nil
}

func (obj *bandgapADC) StartConversion() error {
	avr.ADCSRA.SetBits(avr.ADCSRA_ADSC)
	return nil
}

func (obj *bandgapADC) Busy() (bool, error) {
	return avr.ADCSRA.HasBits(avr.ADCSRA_ADSC), nil
}

// Result reads ADCL first, that latches ADCH until it is read.
func (obj *bandgapADC) Result() (uint16, error) {
	low := avr.ADCL.Get()
	high := avr.ADCH.Get()
	return uint16(high)<<8 | uint16(low), nil
}

type hostLink struct {
	uart    *machine.UART
	open    bool
	written bool // TXC0 only rises after something was sent
}

func (obj *hostLink) Open(baudRate int) error {
	obj.uart.Configure(machine.UARTConfig{BaudRate: uint32(baudRate)})
	obj.uart.Buffer.Clear()
	obj.open = true
	obj.written = false
	return nil
}

func (obj *hostLink) Ready() (bool, error) {
	return obj.open, nil
}

func (obj *hostLink) Available() (int, error) {
	if !obj.open {
		return 0, hal.ErrLinkClosed
	}
	return obj.uart.Buffered(), nil
}

func (obj *hostLink) Read(p []byte) (int, error) {
	if !obj.open {
		return 0, hal.ErrLinkClosed
	}
	n := 0
	for n < len(p) && obj.uart.Buffered() > 0 {
		b, err := obj.uart.ReadByte()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (obj *hostLink) Write(p []byte) (int, error) {
	if !obj.open {
		return 0, hal.ErrLinkClosed
	}
	// writing one clears the transmit complete flag
	avr.UCSR0A.SetBits(avr.UCSR0A_TXC0)
	obj.written = true
	return obj.uart.Write(p)
}

// Flush waits until the last byte has left the shift register.
func (obj *hostLink) Flush() error {
	if !obj.open {
		return hal.ErrLinkClosed
	}
	if !obj.written {
		return nil
	}
	for !avr.UCSR0A.HasBits(avr.UCSR0A_TXC0) {
	}
	return nil
}

// Close disables the USART so PD0 and PD1 fall back to port control.
func (obj *hostLink) Close() error {
	if !obj.open {
		return nil
	}
	obj.Flush()
	avr.UCSR0B.ClearBits(avr.UCSR0B_RXEN0 | avr.UCSR0B_TXEN0)
	obj.open = false
	return nil
}

var _ hal.HWHandler = (*HWHandler)(nil)
