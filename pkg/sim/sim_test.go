package sim

import (
	"errors"
	"io"
	"testing"

	"github.com/mbalug7/go-rurp/pkg/hal"
)

func TestControlPortLatchesOnRisingEdge(t *testing.T) {
	hw := New()
	hw.Data.Output = 0x5A

	if err := hw.Ctrl.Set(uint8(hal.AddressLow)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	hw.Data.Output = 0x00
	// still high, no new edge
	if err := hw.Ctrl.Set(uint8(hal.AddressLow)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if hw.Ctrl.Latched[hal.AddressLow] != 0x5A {
		t.Fatalf("latched %#x", hw.Ctrl.Latched[hal.AddressLow])
	}
	if hw.Ctrl.Pulses(uint8(hal.AddressLow)) != 1 {
		t.Fatalf("pulses got %d", hw.Ctrl.Pulses(uint8(hal.AddressLow)))
	}

	if err := hw.Ctrl.Clear(uint8(hal.AddressLow)); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := hw.Ctrl.Set(uint8(hal.AddressLow) | uint8(hal.LineChipEnable)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if hw.Ctrl.Strobes() != 2 || hw.Ctrl.Pulses(uint8(hal.LineChipEnable)) != 1 {
		t.Fatalf("strobes %d, chip enable pulses %d", hw.Ctrl.Strobes(), hw.Ctrl.Pulses(uint8(hal.LineChipEnable)))
	}
	if _, ok := hw.Ctrl.Latched[hal.RegAddress(hal.LineChipEnable)]; ok {
		t.Fatalf("chip enable is not a latch")
	}
}

func TestDataBusReadMixesDirections(t *testing.T) {
	d := &DataBus{}
	_ = d.SetDirection(0x0F, hal.DirectionOutput)
	_ = d.WriteData(0xFF)
	d.Input = 0xA0
	got, err := d.ReadData()
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if got != 0xAF {
		t.Fatalf("read %#x, want 0xaf", got)
	}
}

func TestHostLinkLifecycle(t *testing.T) {
	l := &HostLink{ReadyAfter: 1}
	if _, err := l.Write([]byte("x")); !errors.Is(err, hal.ErrLinkClosed) {
		t.Fatalf("write on closed link: %v", err)
	}
	_ = l.Open(9600)
	if ready, _ := l.Ready(); ready {
		t.Fatalf("ready too early")
	}
	if ready, _ := l.Ready(); !ready {
		t.Fatalf("not ready after ReadyAfter polls")
	}
	if _, err := l.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("empty read should time out with EOF, got %v", err)
	}
	_ = l.Close()
	if l.Opened || l.Closes != 1 {
		t.Fatalf("close not recorded")
	}
}

func TestReferenceADCBusyPolls(t *testing.T) {
	a := &ReferenceADC{Raw: 300, BusyPolls: 2}
	_ = a.StartConversion()
	polls := 0
	for {
		busy, _ := a.Busy()
		if !busy {
			break
		}
		polls++
	}
	if polls != 2 {
		t.Fatalf("busy polls got %d", polls)
	}
	if raw, _ := a.Result(); raw != 300 {
		t.Fatalf("raw got %d", raw)
	}
}
