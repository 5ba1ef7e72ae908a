package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mbalug7/go-rurp/pkg/hal"
)

const sampleBits = 10

// iioChannel reads one raw IIO channel and scales it to a 10-bit sample.
type iioChannel struct {
	path string
	bits int
}

func newIIOChannel(path string, bits int) *iioChannel {
	if bits <= 0 {
		bits = sampleBits
	}
	return &iioChannel{path: path, bits: bits}
}

func (obj *iioChannel) read() (uint16, error) {
	raw, err := os.ReadFile(obj.path)
	if err != nil {
		return 0, fmt.Errorf("failed to read adc channel: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse adc channel %s: %w", obj.path, err)
	}
	switch {
	case obj.bits > sampleBits:
		v >>= uint(obj.bits - sampleBits)
	case obj.bits < sampleBits:
		v <<= uint(sampleBits - obj.bits)
	}
	if v > 1<<sampleBits-1 {
		v = 1<<sampleBits - 1
	}
	return uint16(v), nil
}

// iioReference runs the band-gap sequence against a reference channel. The
// sysfs read is synchronous, so a conversion completes inside
// StartConversion and Busy never reports true.
type iioReference struct {
	channel  *iioChannel
	selected bool
	result   uint16
}

func newIIOReference(path string, bits int) *iioReference {
	return &iioReference{channel: newIIOChannel(path, bits)}
}

func (obj *iioReference) SelectBandgap() error {
	obj.selected = true
	return nil
}

func (obj *iioReference) StartConversion() error {
	if !obj.selected {
		return fmt.Errorf("failed to start conversion: %w", hal.ErrInvalidSample)
	}
	v, err := obj.channel.read()
	if err != nil {
		return err
	}
	obj.result = v
	return nil
}

func (obj *iioReference) Busy() (bool, error) {
	return false, nil
}

func (obj *iioReference) Result() (uint16, error) {
	return obj.result, nil
}
