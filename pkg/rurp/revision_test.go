package rurp

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/mbalug7/go-rurp/pkg/hal"
	"github.com/mbalug7/go-rurp/pkg/sim"
)

func TestDetectRevision(t *testing.T) {
	cases := []struct {
		name     string
		level    bool
		sample   uint16
		strapErr error
		readErr  error
		want     hal.Revision
	}{
		{name: "strap high, analog high", level: true, sample: 1023, want: hal.Revision0},
		{name: "strap high, analog at threshold", level: true, sample: 1000, want: hal.Revision0},
		{name: "strap high, analog low", level: true, sample: 999, want: hal.Revision1},
		{name: "strap low", level: false, sample: 1023, want: hal.Revision2},
		{name: "strap unreadable", strapErr: errors.New("no line"), want: hal.RevisionUnknown},
		{name: "analog unreadable", level: true, readErr: errors.New("no adc"), want: hal.RevisionUnknown},
	}
	logger := log.New(io.Discard, "", 0)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			strap := &sim.Pin{Level: c.level, Err: c.strapErr}
			sense := &sim.AnalogPin{Sample: c.sample, ReadErr: c.readErr}

			got, err := DetectRevision(strap, sense, logger)
			if err != nil {
				t.Fatalf("DetectRevision: %v", err)
			}
			if got != c.want {
				t.Fatalf("revision got %s want %s", got, c.want)
			}
			if strap.Mode != hal.PinInputPullUp {
				t.Fatalf("strap pin mode %d", strap.Mode)
			}
			if len(sense.Configures) != 2 || sense.Configures[0] != hal.PinInputPullUp || sense.Mode != hal.PinInput {
				t.Fatalf("sense pin configured %v", sense.Configures)
			}
		})
	}
}

func TestMapperFor(t *testing.T) {
	for _, rev := range []hal.Revision{hal.Revision0, hal.Revision1, hal.RevisionUnknown, hal.Revision(7)} {
		m := MapperFor(rev)
		for v := 0; v < 256; v++ {
			if got := m(ControlSignals(v)); got != uint8(v) {
				t.Fatalf("%s: %#x mapped to %#x", rev, v, got)
			}
		}
	}

	m := MapperFor(hal.Revision2)
	cases := []struct {
		in   ControlSignals
		want uint8
	}{
		{0, 0},
		{RegulatorEnable, 0x80},
		{AddressLine16, 0x01},
		{P1VPPEnable | VPEEnable, 0x0C},
		{RegulatorEnable | AddressLine16, 0x81},
		{0x7E, 0x7E},
	}
	for _, c := range cases {
		if got := m(c.in); got != c.want {
			t.Errorf("rev2 %#x mapped to %#x, want %#x", uint8(c.in), got, c.want)
		}
	}
}

func TestControlSignals(t *testing.T) {
	s := ControlSignals(0).With(P1VPPEnable | RegulatorEnable)
	if !s.Has(P1VPPEnable) || !s.Has(RegulatorEnable) || s.Has(VPEEnable) {
		t.Fatalf("With/Has mismatch: %#x", uint8(s))
	}
	if !s.releasesVPP(s.Without(P1VPPEnable)) {
		t.Fatalf("clearing P1VPPEnable should release vpp")
	}
	if s.releasesVPP(s.Without(RegulatorEnable)) {
		t.Fatalf("clearing regulator should not release vpp")
	}
}
