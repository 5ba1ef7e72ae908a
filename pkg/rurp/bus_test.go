package rurp

import (
	"errors"
	"testing"

	"github.com/mbalug7/go-rurp/pkg/hal"
	"github.com/mbalug7/go-rurp/pkg/sim"
)

func newTestBus(t *testing.T) (*RegisterBus, *sim.Hardware) {
	t.Helper()
	hw := sim.New()
	bus := NewRegisterBus(hw.Data, hw.Ctrl, hw.Sleep)
	if err := bus.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	hw.Sleeps = nil
	return bus, hw
}

func TestRegisterBusReset(t *testing.T) {
	hw := sim.New()
	bus := NewRegisterBus(hw.Data, hw.Ctrl, hw.Sleep)

	for _, reg := range []hal.RegAddress{hal.AddressLow, hal.AddressHigh, hal.Control} {
		if got := bus.ReadRegister(reg); got != 0xFF {
			t.Fatalf("%s shadow before reset got %#x, want sentinel", reg, got)
		}
	}
	if err := bus.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if hw.Ctrl.Strobes() != 3 {
		t.Fatalf("expected 3 strobes, got %d", hw.Ctrl.Strobes())
	}
	for _, reg := range []hal.RegAddress{hal.AddressLow, hal.AddressHigh, hal.Control} {
		if got := bus.ReadRegister(reg); got != 0 {
			t.Errorf("%s shadow got %#x", reg, got)
		}
		if got := hw.Ctrl.Latched[reg]; got != 0 {
			t.Errorf("%s latched %#x", reg, got)
		}
	}
	// sentinel control value has P1VPPEnable set, clearing it settles once
	if hw.Slept(DefaultSettleDelay) != 1 {
		t.Fatalf("expected one settle delay, got %v", hw.Sleeps)
	}
	if hw.Data.Direction != 0xFF {
		t.Fatalf("data bus should be output, direction %#x", hw.Data.Direction)
	}
}

func TestWriteRegisterSkipsRedundantWrites(t *testing.T) {
	for _, reg := range []hal.RegAddress{hal.AddressLow, hal.AddressHigh, hal.Control} {
		for _, value := range []uint8{0x01, 0x7F, 0xA5, 0xFF} {
			bus, hw := newTestBus(t)
			before := hw.Ctrl.Pulses(uint8(reg))

			if err := bus.WriteRegister(reg, value); err != nil {
				t.Fatalf("WriteRegister: %v", err)
			}
			if err := bus.WriteRegister(reg, value); err != nil {
				t.Fatalf("WriteRegister: %v", err)
			}

			if got := hw.Ctrl.Pulses(uint8(reg)) - before; got != 1 {
				t.Errorf("%s=%#x: expected 1 strobe, got %d", reg, value, got)
			}
			if got := hw.Ctrl.Latched[reg]; got != value {
				t.Errorf("%s=%#x: latched %#x", reg, value, got)
			}
			if got := bus.ReadRegister(reg); got != value {
				t.Errorf("%s=%#x: shadow %#x", reg, value, got)
			}
		}
	}
}

func TestWriteRegisterStrobesOnlyTargetLine(t *testing.T) {
	bus, hw := newTestBus(t)
	if err := bus.WriteRegister(hal.AddressHigh, 0x12); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if hw.Ctrl.Pulses(uint8(hal.AddressHigh)) != 2 {
		t.Fatalf("address high pulses got %d", hw.Ctrl.Pulses(uint8(hal.AddressHigh)))
	}
	if hw.Ctrl.Pulses(uint8(hal.AddressLow)) != 1 || hw.Ctrl.Pulses(uint8(hal.Control)) != 1 {
		t.Fatalf("other strobes moved")
	}
	if hw.Ctrl.State&uint8(hal.AddressHigh) != 0 {
		t.Fatalf("strobe line left high")
	}
}

func TestWriteRegisterSettleDelay(t *testing.T) {
	cases := []struct {
		name   string
		first  ControlSignals
		second ControlSignals
		settle bool
	}{
		{"release vpp", P1VPPEnable, 0, true},
		{"release vpp keep regulator", P1VPPEnable | RegulatorEnable, RegulatorEnable, true},
		{"both cleared", RegulatorEnable, A9VPPEnable, false},
		{"both set", P1VPPEnable, P1VPPEnable | VPEEnable, false},
		{"assert vpp", 0, P1VPPEnable, false},
		{"other bits released", VPEEnable | A9VPPEnable, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bus, hw := newTestBus(t)
			if err := bus.WriteRegister(hal.Control, uint8(c.first)); err != nil {
				t.Fatalf("first write: %v", err)
			}
			hw.Sleeps = nil
			if err := bus.WriteRegister(hal.Control, uint8(c.second)); err != nil {
				t.Fatalf("second write: %v", err)
			}
			if got := hw.Slept(DefaultSettleDelay) == 1; got != c.settle {
				t.Fatalf("settle got %v want %v (sleeps %v)", got, c.settle, hw.Sleeps)
			}
		})
	}
}

func TestUnknownRegisterIsIgnored(t *testing.T) {
	bus, hw := newTestBus(t)
	strobes := hw.Ctrl.Strobes()
	writes := hw.Data.Writes
	state := hw.Ctrl.State

	if err := bus.WriteRegister(hal.RegAddress(0x40), 0x55); err != nil {
		t.Fatalf("unknown register write returned %v", err)
	}
	if got := bus.ReadRegister(hal.RegAddress(0x40)); got != 0 {
		t.Fatalf("unknown register read got %#x", got)
	}
	if hw.Ctrl.Strobes() != strobes || hw.Data.Writes != writes || hw.Ctrl.State != state {
		t.Fatalf("unknown register caused pin activity")
	}
}

func TestRevision2RemapsControlByte(t *testing.T) {
	bus, hw := newTestBus(t)
	bus.SetControlMapper(MapperFor(hal.Revision2))

	if err := bus.WriteRegister(hal.Control, uint8(RegulatorEnable|ReadWrite)); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if got := hw.Ctrl.Latched[hal.Control]; got != 0xC0 {
		t.Fatalf("latched %#x, want 0xc0", got)
	}
	if got := bus.Signals(); got != RegulatorEnable|ReadWrite {
		t.Fatalf("shadow holds %#x, want logical value", uint8(got))
	}

	pulses := hw.Ctrl.Pulses(uint8(hal.Control))
	if err := bus.WriteRegister(hal.Control, uint8(RegulatorEnable|ReadWrite)); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if hw.Ctrl.Pulses(uint8(hal.Control)) != pulses {
		t.Fatalf("identical logical write strobed again")
	}

	// address registers are never remapped
	if err := bus.WriteRegister(hal.AddressLow, 0x01); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if hw.Ctrl.Latched[hal.AddressLow] != 0x01 {
		t.Fatalf("address low remapped to %#x", hw.Ctrl.Latched[hal.AddressLow])
	}
}

// RegisterBus itself has no mode guard, the Shield adds it.
func TestRegisterBusDoesNotCheckMode(t *testing.T) {
	bus, hw := newTestBus(t)
	hw.Data.Direction = 0xFE
	if err := bus.WriteRegister(hal.AddressLow, 0x33); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if hw.Data.Direction != 0xFF {
		t.Fatalf("write should drive the whole bus, direction %#x", hw.Data.Direction)
	}
}

func TestWriteRegisterFailureKeepsShadow(t *testing.T) {
	bus, hw := newTestBus(t)
	boom := errors.New("line busy")
	hw.Ctrl.Err = boom

	err := bus.WriteRegister(hal.AddressLow, 0x10)
	if !errors.Is(err, boom) {
		t.Fatalf("expected strobe error, got %v", err)
	}
	if bus.ReadRegister(hal.AddressLow) != 0 {
		t.Fatalf("shadow updated after failed latch")
	}

	hw.Ctrl.Err = nil
	if err := bus.WriteRegister(hal.AddressLow, 0x10); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if hw.Ctrl.Latched[hal.AddressLow] != 0x10 {
		t.Fatalf("retry did not latch")
	}
}

func TestDataBusPassThrough(t *testing.T) {
	bus, hw := newTestBus(t)

	if err := bus.WriteDataBus(0xA5); err != nil {
		t.Fatalf("WriteDataBus: %v", err)
	}
	if hw.Data.Output != 0xA5 {
		t.Fatalf("bus output %#x", hw.Data.Output)
	}

	hw.Data.Input = 0x3C
	if err := bus.SetDataAsInput(); err != nil {
		t.Fatalf("SetDataAsInput: %v", err)
	}
	got, err := bus.ReadDataBus()
	if err != nil {
		t.Fatalf("ReadDataBus: %v", err)
	}
	if got != 0x3C {
		t.Fatalf("read %#x, want 0x3c", got)
	}
}

func TestSetControlLine(t *testing.T) {
	bus, hw := newTestBus(t)
	if err := bus.SetControlLine(hal.LineChipEnable, true); err != nil {
		t.Fatalf("SetControlLine: %v", err)
	}
	if hw.Ctrl.State&uint8(hal.LineChipEnable) == 0 {
		t.Fatalf("chip enable not set")
	}
	if err := bus.SetControlLine(hal.LineChipEnable, false); err != nil {
		t.Fatalf("SetControlLine: %v", err)
	}
	if hw.Ctrl.State&uint8(hal.LineChipEnable) != 0 {
		t.Fatalf("chip enable not cleared")
	}
}
