// Package sim is an in-memory shield. It records strobe pulses, latched
// bytes, sleeps and host link traffic so tests can check what the
// hardware would have seen.
package sim

import (
	"bytes"
	"io"
	"time"

	"github.com/mbalug7/go-rurp/pkg/hal"
)

// DataBus simulates the shared 8-bit port.
type DataBus struct {
	Direction uint8 // bit set means output
	Output    uint8 // last driven value
	Input     uint8 // value driven by the external circuit
	Writes    int
	Err       error
}

func (d *DataBus) SetDirection(mask uint8, dir hal.Direction) error {
	if d.Err != nil {
		return d.Err
	}
	if dir == hal.DirectionOutput {
		d.Direction |= mask
	} else {
		d.Direction &^= mask
	}
	return nil
}

func (d *DataBus) WriteData(value uint8) error {
	if d.Err != nil {
		return d.Err
	}
	d.Output = value
	d.Writes++
	return nil
}

// ReadData returns driven bits for outputs and external bits for inputs.
func (d *DataBus) ReadData() (uint8, error) {
	if d.Err != nil {
		return 0, d.Err
	}
	return d.Output&d.Direction | d.Input&^d.Direction, nil
}

// ControlPort simulates the strobe and chip select lines. A rising edge on a
// strobe line latches the data bus output.
type ControlPort struct {
	Direction uint8
	State     uint8
	Latched   map[hal.RegAddress]uint8
	Err       error

	bus    *DataBus
	pulses map[uint8]int
}

func NewControlPort(bus *DataBus) *ControlPort {
	return &ControlPort{
		Latched: make(map[hal.RegAddress]uint8),
		bus:     bus,
		pulses:  make(map[uint8]int),
	}
}

func (c *ControlPort) SetDirection(mask uint8, dir hal.Direction) error {
	if c.Err != nil {
		return c.Err
	}
	if dir == hal.DirectionOutput {
		c.Direction |= mask
	} else {
		c.Direction &^= mask
	}
	return nil
}

func (c *ControlPort) Set(mask uint8) error {
	if c.Err != nil {
		return c.Err
	}
	for bit := uint8(1); bit != 0; bit <<= 1 {
		if mask&bit == 0 || c.State&bit != 0 {
			continue
		}
		c.pulses[bit]++
		switch addr := hal.RegAddress(bit); addr {
		case hal.AddressLow, hal.AddressHigh, hal.Control:
			c.Latched[addr] = c.bus.Output
		}
	}
	c.State |= mask
	return nil
}

func (c *ControlPort) Clear(mask uint8) error {
	if c.Err != nil {
		return c.Err
	}
	c.State &^= mask
	return nil
}

// Pulses returns the number of rising edges seen on the given line.
func (c *ControlPort) Pulses(mask uint8) int {
	return c.pulses[mask]
}

// Strobes returns the number of rising edges on all strobe lines.
func (c *ControlPort) Strobes() int {
	return c.pulses[uint8(hal.AddressLow)] + c.pulses[uint8(hal.AddressHigh)] + c.pulses[uint8(hal.Control)]
}

// HostLink simulates the serial link. Reads past the end of RX behave like
// a read timeout and return io.EOF.
type HostLink struct {
	Opened     bool
	Baud       int
	Opens      int
	Closes     int
	Flushes    int
	ReadyAfter int   // Ready polls before the link reports ready
	Stuck      bool  // never becomes ready
	CloseErr   error // returned by Close, the link stays open
	RX         bytes.Buffer
	TX         bytes.Buffer

	// Trickle is moved into RX one byte every TrickleEvery reads.
	Trickle      []byte
	TrickleEvery int

	polls int
	reads int
}

func (l *HostLink) Open(baudRate int) error {
	l.Opened = true
	l.Baud = baudRate
	l.Opens++
	l.polls = 0
	return nil
}

func (l *HostLink) Ready() (bool, error) {
	if !l.Opened || l.Stuck {
		return false, nil
	}
	l.polls++
	return l.polls > l.ReadyAfter, nil
}

func (l *HostLink) Available() (int, error) {
	if !l.Opened {
		return 0, hal.ErrLinkClosed
	}
	return l.RX.Len(), nil
}

func (l *HostLink) Read(p []byte) (int, error) {
	if !l.Opened {
		return 0, hal.ErrLinkClosed
	}
	l.reads++
	if len(l.Trickle) > 0 && (l.TrickleEvery <= 1 || l.reads%l.TrickleEvery == 0) {
		l.RX.WriteByte(l.Trickle[0])
		l.Trickle = l.Trickle[1:]
	}
	if l.RX.Len() == 0 {
		return 0, io.EOF
	}
	return l.RX.Read(p)
}

func (l *HostLink) Write(p []byte) (int, error) {
	if !l.Opened {
		return 0, hal.ErrLinkClosed
	}
	return l.TX.Write(p)
}

func (l *HostLink) Flush() error {
	l.Flushes++
	return nil
}

func (l *HostLink) Close() error {
	if l.CloseErr != nil {
		return l.CloseErr
	}
	l.Opened = false
	l.Closes++
	return nil
}

// ReferenceADC simulates the band-gap conversion.
type ReferenceADC struct {
	Raw         uint16
	BusyPolls   int  // Busy polls before a conversion completes
	Stuck       bool // conversion never completes
	Selected    bool
	Conversions int

	remaining int
}

func (a *ReferenceADC) SelectBandgap() error {
	a.Selected = true
	return nil
}

func (a *ReferenceADC) StartConversion() error {
	a.Conversions++
	a.remaining = a.BusyPolls
	return nil
}

func (a *ReferenceADC) Busy() (bool, error) {
	if a.Stuck {
		return true, nil
	}
	if a.remaining > 0 {
		a.remaining--
		return true, nil
	}
	return false, nil
}

func (a *ReferenceADC) Result() (uint16, error) {
	return a.Raw, nil
}

// Pin simulates a digital input.
type Pin struct {
	Level      bool
	Mode       hal.PinMode
	Configures []hal.PinMode
	Err        error
}

func (p *Pin) Configure(mode hal.PinMode) error {
	p.Mode = mode
	p.Configures = append(p.Configures, mode)
	return nil
}

func (p *Pin) Get() (bool, error) {
	if p.Err != nil {
		return false, p.Err
	}
	return p.Level, nil
}

// AnalogPin simulates a pin wired to the ADC. Queued Samples are returned
// first, then Sample forever.
type AnalogPin struct {
	Pin
	Sample  uint16
	Samples []uint16
	Reads   int
	ReadErr error
}

func (p *AnalogPin) Read() (uint16, error) {
	if p.ReadErr != nil {
		return 0, p.ReadErr
	}
	p.Reads++
	if len(p.Samples) > 0 {
		v := p.Samples[0]
		p.Samples = p.Samples[1:]
		return v, nil
	}
	return p.Sample, nil
}

// Hardware is a complete simulated shield.
type Hardware struct {
	Data          *DataBus
	Ctrl          *ControlPort
	Link          *HostLink
	ADC           *ReferenceADC
	RevisionStrap *Pin
	Sense         *AnalogPin
	Sleeps        []time.Duration
}

// New returns a revision 0 shield on a 5 V supply.
func New() *Hardware {
	data := &DataBus{}
	return &Hardware{
		Data:          data,
		Ctrl:          NewControlPort(data),
		Link:          &HostLink{},
		ADC:           &ReferenceADC{Raw: 225},
		RevisionStrap: &Pin{Level: true},
		Sense:         &AnalogPin{Sample: 1023},
	}
}

func (h *Hardware) DataBus() hal.DataBus           { return h.Data }
func (h *Hardware) ControlPort() hal.ControlPort   { return h.Ctrl }
func (h *Hardware) HostLink() hal.HostLink         { return h.Link }
func (h *Hardware) ReferenceADC() hal.ReferenceADC { return h.ADC }
func (h *Hardware) RevisionPin() hal.DigitalPin    { return h.RevisionStrap }
func (h *Hardware) SensePin() hal.AnalogPin        { return h.Sense }

func (h *Hardware) Sleep(d time.Duration) {
	h.Sleeps = append(h.Sleeps, d)
}

// Slept counts the recorded sleeps of exactly d.
func (h *Hardware) Slept(d time.Duration) int {
	n := 0
	for _, s := range h.Sleeps {
		if s == d {
			n++
		}
	}
	return n
}

var _ hal.HWHandler = (*Hardware)(nil)
