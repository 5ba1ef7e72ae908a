// Package rurp drives the programmer shield: the multiplexed register bus,
// the ownership of the shared pins and the voltage sensing.
package rurp

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mbalug7/go-rurp/pkg/config"
	"github.com/mbalug7/go-rurp/pkg/hal"
)

// Shield owns the hardware state of one programmer shield. Bus operations
// are only accepted in programmer mode and host link operations only in
// communication mode.
type Shield struct {
	hw       hal.HWHandler
	link     hal.HostLink
	cfg      config.Accessor
	bus      *RegisterBus
	modes    *ModeController
	sensor   *VoltageSensor
	revision hal.Revision
	logger   *log.Logger

	readTimeout time.Duration
}

func New(hw hal.HWHandler, cfg config.Accessor, opts ...Option) *Shield {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}

	bus := NewRegisterBus(hw.DataBus(), hw.ControlPort(), hw.Sleep)
	bus.SetSettleDelay(c.SettleDelay)

	sensor := NewVoltageSensor(hw.ReferenceADC(), hw.SensePin(), cfg, hw.Sleep)
	sensor.timeout = c.ConversionTimeout
	sensor.averageOf = c.AverageOf

	return &Shield{
		hw:       hw,
		link:     hw.HostLink(),
		cfg:      cfg,
		bus:      bus,
		modes:    NewModeController(hw.DataBus(), hw.HostLink(), c.BaudRate, c.ReadyTimeout, c.Logger),
		sensor:   sensor,
		revision: hal.RevisionUnknown,
		logger:   c.Logger,

		readTimeout: c.ReadTimeout,
	}
}

// Setup brings the shield into a known state and ends in communication mode.
func (obj *Shield) Setup() error {
	if err := obj.bus.SetDataAsOutput(); err != nil {
		return err
	}

	revision, err := DetectRevision(obj.hw.RevisionPin(), obj.hw.SensePin(), obj.logger)
	if err != nil {
		return fmt.Errorf("failed to detect hardware revision: %w", err)
	}
	obj.revision = revision
	obj.logger.Printf("detected hardware revision %s", revision)

	ctrl := obj.hw.ControlPort()
	if err := ctrl.SetDirection(hal.ControlLines, hal.DirectionOutput); err != nil {
		return fmt.Errorf("failed to set control lines as output: %w", err)
	}
	idle := uint8(hal.LineOutputEnable) | uint8(hal.LineChipEnable)
	if err := ctrl.Clear(hal.ControlLines &^ idle); err != nil {
		return fmt.Errorf("failed to clear control lines: %w", err)
	}
	if err := ctrl.Set(idle); err != nil {
		return fmt.Errorf("failed to disable chip: %w", err)
	}

	rev := obj.HardwareRevision()
	obj.bus.SetControlMapper(MapperFor(rev))
	if err := obj.bus.Reset(); err != nil {
		return fmt.Errorf("failed to reset registers: %w", err)
	}
	obj.logger.Printf("registers reset, control layout %s", rev)

	return obj.modes.EnterCommunicationMode()
}

func (obj *Shield) Mode() hal.Mode {
	return obj.modes.Mode()
}

// Session returns the tag of the running programmer session.
func (obj *Shield) Session() string {
	return obj.modes.Session()
}

func (obj *Shield) EnterCommunicationMode() error {
	return obj.modes.EnterCommunicationMode()
}

func (obj *Shield) EnterProgrammerMode() error {
	return obj.modes.EnterProgrammerMode()
}

func (obj *Shield) Config() config.Record {
	return obj.cfg.Config()
}

// HardwareRevision returns the configured override, or the detected
// revision when no override is set.
func (obj *Shield) HardwareRevision() hal.Revision {
	if rev, ok := obj.cfg.Config().RevisionOverride(); ok {
		return hal.Revision(rev)
	}
	return obj.revision
}

func (obj *Shield) PhysicalHardwareRevision() hal.Revision {
	return obj.revision
}

func (obj *Shield) Bus() *RegisterBus {
	return obj.bus
}

func (obj *Shield) Sensor() *VoltageSensor {
	return obj.sensor
}

// register bus, programmer mode only

func (obj *Shield) requireMode(mode hal.Mode, op string) error {
	if obj.modes.Mode() != mode {
		return fmt.Errorf("%s in %s mode: %w", op, obj.modes.Mode(), hal.ErrWrongMode)
	}
	return nil
}

func (obj *Shield) WriteRegister(reg hal.RegAddress, value uint8) error {
	if err := obj.requireMode(hal.ModeProgrammer, "write register"); err != nil {
		return err
	}
	return obj.bus.WriteRegister(reg, value)
}

// ReadRegister reads the shadow copy and is allowed in any mode.
func (obj *Shield) ReadRegister(reg hal.RegAddress) uint8 {
	return obj.bus.ReadRegister(reg)
}

func (obj *Shield) WriteDataBus(value uint8) error {
	if err := obj.requireMode(hal.ModeProgrammer, "write data bus"); err != nil {
		return err
	}
	return obj.bus.WriteDataBus(value)
}

func (obj *Shield) ReadDataBus() (uint8, error) {
	if err := obj.requireMode(hal.ModeProgrammer, "read data bus"); err != nil {
		return 0, err
	}
	return obj.bus.ReadDataBus()
}

func (obj *Shield) SetDataAsInput() error {
	if err := obj.requireMode(hal.ModeProgrammer, "release data bus"); err != nil {
		return err
	}
	return obj.bus.SetDataAsInput()
}

func (obj *Shield) SetDataAsOutput() error {
	if err := obj.requireMode(hal.ModeProgrammer, "drive data bus"); err != nil {
		return err
	}
	return obj.bus.SetDataAsOutput()
}

func (obj *Shield) SetControlLine(line hal.Line, state bool) error {
	if err := obj.requireMode(hal.ModeProgrammer, "set control line"); err != nil {
		return err
	}
	return obj.bus.SetControlLine(line, state)
}

// host link, communication mode only

func (obj *Shield) Available() (int, error) {
	if err := obj.requireMode(hal.ModeCommunication, "link available"); err != nil {
		return 0, err
	}
	return obj.link.Available()
}

// ReadByte returns the next pending byte without waiting. An empty link
// returns an error wrapping io.EOF.
func (obj *Shield) ReadByte() (byte, error) {
	if err := obj.requireMode(hal.ModeCommunication, "link read"); err != nil {
		return 0, err
	}
	buf := make([]byte, 1)
	if _, err := io.ReadFull(obj.link, buf); err != nil {
		return 0, fmt.Errorf("failed to read host link: %w", err)
	}
	return buf[0], nil
}

// ReadBytes fills buf from the host link. It returns early with a short
// count when the read timeout passes first.
func (obj *Shield) ReadBytes(buf []byte) (int, error) {
	if err := obj.requireMode(hal.ModeCommunication, "link read"); err != nil {
		return 0, err
	}
	n := 0
	err := hal.WaitUntil("host link read", obj.readTimeout, func() (bool, error) {
		if n == len(buf) {
			return true, nil
		}
		m, err := obj.link.Read(buf[n:])
		n += m
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		return n == len(buf), nil
	})
	if err != nil && !errors.Is(err, hal.ErrTimeout) {
		return n, err
	}
	return n, nil
}

// Write sends buf and returns once the link has flushed it.
func (obj *Shield) Write(buf []byte) (int, error) {
	if err := obj.requireMode(hal.ModeCommunication, "link write"); err != nil {
		return 0, err
	}
	n, err := obj.link.Write(buf)
	if err != nil {
		return n, fmt.Errorf("failed to write host link: %w", err)
	}
	if err := obj.link.Flush(); err != nil {
		return n, fmt.Errorf("failed to flush host link: %w", err)
	}
	return n, nil
}

// Log writes to the debug logger and, in communication mode, to the host.
func (obj *Shield) Log(severity string, msg string) {
	obj.logger.Printf("%s: %s", severity, msg)
	if obj.modes.Mode() != hal.ModeCommunication {
		return
	}
	if _, err := obj.Write([]byte(severity + ": " + msg + "\r\n")); err != nil {
		obj.logger.Printf("failed to forward log line: %s", err)
	}
}

// voltage sensing, any mode

func (obj *Shield) ReadVCC() (float64, error) {
	return obj.sensor.ReadReferenceVoltage()
}

func (obj *Shield) ReadVoltage() (float64, error) {
	return obj.sensor.ReadInputVoltage()
}

func (obj *Shield) ReadAveragedVoltage() (float64, error) {
	return obj.sensor.ReadAveragedInputVoltage()
}

var _ hal.Programmer = (*Shield)(nil)
