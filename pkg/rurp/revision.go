package rurp

import (
	"fmt"
	"log"

	"github.com/mbalug7/go-rurp/pkg/hal"
)

// sense pin samples below this value identify a revision 1 board
const revision1Threshold = 1000

// ControlMapper translates a logical control byte into the byte latched on
// a given board revision.
type ControlMapper func(ControlSignals) uint8

// revision2Layout is a placeholder: the rev2 control latch wiring is not
// documented in this tree, regulator and A16 are assumed to be swapped.
// TODO: take the bit order from the rev2 board schematic.
var revision2Layout = [8]uint8{
	0x80, // RegulatorEnable
	0x02, // A9VPPEnable
	0x04, // VPEEnable
	0x08, // P1VPPEnable
	0x10, // AddressLine17
	0x20, // AddressLine18
	0x40, // ReadWrite
	0x01, // AddressLine16
}

func identityMapper(s ControlSignals) uint8 {
	return uint8(s)
}

func revision2Mapper(s ControlSignals) uint8 {
	var out uint8
	for bit, physical := range revision2Layout {
		if s&(1<<bit) != 0 {
			out |= physical
		}
	}
	return out
}

// MapperFor returns the control byte layout of rev. Unknown revisions use
// the logical layout unchanged.
func MapperFor(rev hal.Revision) ControlMapper {
	switch rev {
	case hal.Revision2:
		return revision2Mapper
	default:
		return identityMapper
	}
}

// DetectRevision reads the revision pin and the sense pin. It leaves the
// sense pin as a plain input.
func DetectRevision(strap hal.DigitalPin, sense hal.AnalogPin, logger *log.Logger) (hal.Revision, error) {
	if err := strap.Configure(hal.PinInputPullUp); err != nil {
		return hal.RevisionUnknown, fmt.Errorf("failed to configure revision pin: %w", err)
	}
	if err := sense.Configure(hal.PinInputPullUp); err != nil {
		return hal.RevisionUnknown, fmt.Errorf("failed to configure sense pin: %w", err)
	}

	revision := readRevision(strap, sense, logger)

	if err := sense.Configure(hal.PinInput); err != nil {
		return revision, fmt.Errorf("failed to release sense pin: %w", err)
	}
	return revision, nil
}

func readRevision(strap hal.DigitalPin, sense hal.AnalogPin, logger *log.Logger) hal.Revision {
	high, err := strap.Get()
	if err != nil {
		logger.Printf("revision pin read failed: %s", err)
		return hal.RevisionUnknown
	}
	if !high {
		return hal.Revision2
	}
	sample, err := sense.Read()
	if err != nil {
		logger.Printf("revision analog read failed: %s", err)
		return hal.RevisionUnknown
	}
	if sample < revision1Threshold {
		return hal.Revision1
	}
	return hal.Revision0
}
