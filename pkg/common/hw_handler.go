// Package common is the Linux backend of the shield. Data and control lines
// are driven through the GPIO character device, the host link is a tty and
// the analog inputs are read from IIO sysfs channels.
package common

import (
	"fmt"
	"time"

	"github.com/mbalug7/go-rurp/pkg/hal"
	"github.com/warthog618/gpiod"
)

// Pins maps the shield signals to GPIO line offsets of one chip.
type Pins struct {
	Data          [8]int // data bus, Data[n] is bit n
	StrobeLow     int    // address low latch
	StrobeHigh    int    // address high latch
	StrobeControl int    // control latch
	OutputEnable  int
	ChipEnable    int
	ReadWrite     int
	RevisionStrap int // hardware revision strap
	Sense         int // digital side of the voltage sense input
}

// ADCChannels names the IIO raw files of the analog inputs.
type ADCChannels struct {
	Reference string // band-gap reference channel
	Sense     string // divided programming voltage
	Bits      int    // converter resolution, samples are scaled to 10 bits
}

type HWHandler struct {
	chip        *gpiod.Chip  // GPIO chip that owns every requested line
	data        *dataBus     // shared data bus lines
	ctrl        *controlPort // strobe and chip select lines
	link        *hostLink    // serial link to the host computer
	adc         *iioReference
	revisionPin *digitalPin
	sensePin    *analogPin
}

func NewHWHandler(gpioChip string, pins Pins, ttyName string, adc ADCChannels) (*HWHandler, error) {
	c, err := gpiod.NewChip(gpioChip, gpiod.WithConsumer("rurp-shield"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GPIO chip: %w", err)
	}
	handler := &HWHandler{
		chip: c,
		link: newHostLink(ttyName),
		adc:  newIIOReference(adc.Reference, adc.Bits),
	}

	handler.data, err = newDataBus(c, pins.Data)
	if err != nil {
		c.Close()
		return nil, err
	}

	handler.ctrl, err = newControlPort(c, map[uint8]int{
		uint8(hal.AddressLow):       pins.StrobeLow,
		uint8(hal.AddressHigh):      pins.StrobeHigh,
		uint8(hal.Control):          pins.StrobeControl,
		uint8(hal.LineOutputEnable): pins.OutputEnable,
		uint8(hal.LineChipEnable):   pins.ChipEnable,
		uint8(hal.LineReadWrite):    pins.ReadWrite,
	})
	if err != nil {
		handler.data.close()
		c.Close()
		return nil, err
	}

	handler.revisionPin, err = newDigitalPin(c, pins.RevisionStrap, "revision strap")
	if err != nil {
		handler.closeLines()
		return nil, err
	}
	sense, err := newDigitalPin(c, pins.Sense, "voltage sense")
	if err != nil {
		handler.closeLines()
		return nil, err
	}
	handler.sensePin = &analogPin{digitalPin: sense, channel: newIIOChannel(adc.Sense, adc.Bits)}
	return handler, nil
}

func (obj *HWHandler) DataBus() hal.DataBus           { return obj.data }
func (obj *HWHandler) ControlPort() hal.ControlPort   { return obj.ctrl }
func (obj *HWHandler) HostLink() hal.HostLink         { return obj.link }
func (obj *HWHandler) ReferenceADC() hal.ReferenceADC { return obj.adc }
func (obj *HWHandler) RevisionPin() hal.DigitalPin    { return obj.revisionPin }
func (obj *HWHandler) SensePin() hal.AnalogPin        { return obj.sensePin }

// Sleep busy-waits below a millisecond, the scheduler is too coarse for the
// strobe timing.
func (obj *HWHandler) Sleep(d time.Duration) {
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

func (obj *HWHandler) Close() (err error) {
	err = obj.link.Close()
	if err != nil {
		return fmt.Errorf("failed to close host link: %w", err)
	}
	err = obj.closeLines()
	if err != nil {
		return err
	}
	err = obj.chip.Close()
	if err != nil {
		return fmt.Errorf("failed to close GPIO chip: %w", err)
	}
	return nil
}

func (obj *HWHandler) closeLines() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if obj.data != nil {
		keep(obj.data.close())
	}
	if obj.ctrl != nil {
		keep(obj.ctrl.close())
	}
	if obj.revisionPin != nil {
		keep(obj.revisionPin.close())
	}
	if obj.sensePin != nil {
		keep(obj.sensePin.close())
	}
	return first
}

var _ hal.HWHandler = (*HWHandler)(nil)
