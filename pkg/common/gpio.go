package common

import (
	"fmt"

	"github.com/mbalug7/go-rurp/pkg/hal"
	"github.com/warthog618/gpiod"
)

// gpioLine is the subset of *gpiod.Line the ports need.
type gpioLine interface {
	Reconfigure(options ...gpiod.LineConfigOption) error
	SetValue(value int) error
	Value() (int, error)
	Close() error
}

func boolToLevel(b bool) int {
	if b {
		return 1
	}
	return 0
}

// dataBus drives eight GPIO lines as one port. Values written while a line
// is an input are kept and applied when it becomes an output.
type dataBus struct {
	lines  [8]gpioLine
	output uint8 // output latch
	dir    uint8 // 1 = output
}

func newDataBus(c *gpiod.Chip, offsets [8]int) (*dataBus, error) {
	bus := &dataBus{}
	for i, offset := range offsets {
		line, err := c.RequestLine(offset, gpiod.AsInput)
		if err != nil {
			bus.close()
			return nil, fmt.Errorf("failed to request data line D%d: %w", i, err)
		}
		bus.lines[i] = line
	}
	return bus, nil
}

func (obj *dataBus) SetDirection(mask uint8, dir hal.Direction) error {
	for i, line := range obj.lines {
		bit := uint8(1) << i
		if mask&bit == 0 {
			continue
		}
		var err error
		if dir == hal.DirectionOutput {
			err = line.Reconfigure(gpiod.AsOutput(boolToLevel(obj.output&bit != 0)))
			obj.dir |= bit
		} else {
			err = line.Reconfigure(gpiod.AsInput)
			obj.dir &^= bit
		}
		if err != nil {
			return fmt.Errorf("failed to set direction of data line D%d: %w", i, err)
		}
	}
	return nil
}

func (obj *dataBus) WriteData(value uint8) error {
	obj.output = value
	for i, line := range obj.lines {
		bit := uint8(1) << i
		if obj.dir&bit == 0 {
			continue
		}
		if err := line.SetValue(boolToLevel(value&bit != 0)); err != nil {
			return fmt.Errorf("failed to set data line D%d: %w", i, err)
		}
	}
	return nil
}

func (obj *dataBus) ReadData() (uint8, error) {
	var value uint8
	for i, line := range obj.lines {
		v, err := line.Value()
		if err != nil {
			return 0, fmt.Errorf("failed to read data line D%d: %w", i, err)
		}
		if v != 0 {
			value |= 1 << i
		}
	}
	return value, nil
}

func (obj *dataBus) close() error {
	var first error
	for i, line := range obj.lines {
		if line == nil {
			continue
		}
		if err := line.Close(); err != nil && first == nil {
			first = fmt.Errorf("failed to close data line D%d: %w", i, err)
		}
	}
	return first
}

// controlPort drives one GPIO line per mask bit.
type controlPort struct {
	lines map[uint8]gpioLine
}

func newControlPort(c *gpiod.Chip, offsets map[uint8]int) (*controlPort, error) {
	port := &controlPort{lines: make(map[uint8]gpioLine, len(offsets))}
	for bit, offset := range offsets {
		line, err := c.RequestLine(offset, gpiod.AsInput)
		if err != nil {
			port.close()
			return nil, fmt.Errorf("failed to request control line %#02x: %w", bit, err)
		}
		port.lines[bit] = line
	}
	return port, nil
}

func (obj *controlPort) SetDirection(mask uint8, dir hal.Direction) error {
	return obj.each(mask, func(line gpioLine) error {
		if dir == hal.DirectionOutput {
			return line.Reconfigure(gpiod.AsOutput(0))
		}
		return line.Reconfigure(gpiod.AsInput)
	})
}

func (obj *controlPort) Set(mask uint8) error {
	return obj.each(mask, func(line gpioLine) error { return line.SetValue(1) })
}

func (obj *controlPort) Clear(mask uint8) error {
	return obj.each(mask, func(line gpioLine) error { return line.SetValue(0) })
}

// each visits the lines in bit order so strobes see a stable sequence.
func (obj *controlPort) each(mask uint8, fn func(gpioLine) error) error {
	for i := 0; i < 8; i++ {
		bit := uint8(1) << i
		if mask&bit == 0 {
			continue
		}
		line, ok := obj.lines[bit]
		if !ok {
			return fmt.Errorf("failed to drive control line %#02x: not mapped", bit)
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("failed to drive control line %#02x: %w", bit, err)
		}
	}
	return nil
}

func (obj *controlPort) close() error {
	var first error
	for bit, line := range obj.lines {
		if err := line.Close(); err != nil && first == nil {
			first = fmt.Errorf("failed to close control line %#02x: %w", bit, err)
		}
	}
	return first
}

type digitalPin struct {
	name string
	line gpioLine
}

func newDigitalPin(c *gpiod.Chip, offset int, name string) (*digitalPin, error) {
	line, err := c.RequestLine(offset, gpiod.AsInput)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s line: %w", name, err)
	}
	return &digitalPin{name: name, line: line}, nil
}

func (obj *digitalPin) Configure(mode hal.PinMode) error {
	var err error
	switch mode {
	case hal.PinInputPullUp:
		err = obj.line.Reconfigure(gpiod.AsInput, gpiod.WithPullUp)
	default:
		err = obj.line.Reconfigure(gpiod.AsInput, gpiod.WithBiasDisabled)
	}
	if err != nil {
		return fmt.Errorf("failed to configure %s line: %w", obj.name, err)
	}
	return nil
}

func (obj *digitalPin) Get() (bool, error) {
	v, err := obj.line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read %s line: %w", obj.name, err)
	}
	return v == 1, nil
}

func (obj *digitalPin) close() error {
	if err := obj.line.Close(); err != nil {
		return fmt.Errorf("failed to close %s line: %w", obj.name, err)
	}
	return nil
}

// analogPin pairs the GPIO side of an input with its IIO channel.
type analogPin struct {
	*digitalPin
	channel *iioChannel
}

func (obj *analogPin) Read() (uint16, error) {
	return obj.channel.read()
}
