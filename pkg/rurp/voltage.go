package rurp

import (
	"fmt"
	"time"

	"github.com/mbalug7/go-rurp/pkg/config"
	"github.com/mbalug7/go-rurp/pkg/hal"
)

const (
	// band-gap reference (1.1 V) times 1024 steps, in volts
	bandgapScale = 1126.4

	inputResolution = 1023

	DefaultAverageOf         = 500
	DefaultReferenceSettle   = 2 * time.Millisecond
	DefaultConversionTimeout = 10 * time.Millisecond
)

// VoltageSensor measures the supply reference and the divided input
// voltage. It never touches the shared bus pins.
type VoltageSensor struct {
	adc       hal.ReferenceADC
	sense     hal.AnalogPin
	cfg       config.Accessor
	sleep     func(time.Duration)
	timeout   time.Duration
	averageOf int
}

func NewVoltageSensor(adc hal.ReferenceADC, sense hal.AnalogPin, cfg config.Accessor, sleep func(time.Duration)) *VoltageSensor {
	return &VoltageSensor{
		adc:       adc,
		sense:     sense,
		cfg:       cfg,
		sleep:     sleep,
		timeout:   DefaultConversionTimeout,
		averageOf: DefaultAverageOf,
	}
}

// ReadReferenceVoltage returns the supply voltage computed from a
// conversion of the band-gap reference.
func (obj *VoltageSensor) ReadReferenceVoltage() (float64, error) {
	if err := obj.adc.SelectBandgap(); err != nil {
		return 0, fmt.Errorf("failed to select band-gap reference: %w", err)
	}
	obj.sleep(DefaultReferenceSettle)

	if err := obj.adc.StartConversion(); err != nil {
		return 0, fmt.Errorf("failed to start conversion: %w", err)
	}
	err := hal.WaitUntil("adc conversion", obj.timeout, func() (bool, error) {
		busy, err := obj.adc.Busy()
		return !busy, err
	})
	if err != nil {
		return 0, err
	}

	raw, err := obj.adc.Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read conversion result: %w", err)
	}
	if raw == 0 {
		return 0, fmt.Errorf("band-gap conversion: %w", hal.ErrInvalidSample)
	}
	return bandgapScale / float64(raw), nil
}

// ReadInputVoltage returns the voltage in front of the input divider.
func (obj *VoltageSensor) ReadInputVoltage() (float64, error) {
	ratio, err := obj.cfg.Config().DividerRatio()
	if err != nil {
		return 0, err
	}
	vcc, err := obj.ReadReferenceVoltage()
	if err != nil {
		return 0, err
	}
	sample, err := obj.sense.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to sample sense pin: %w", err)
	}
	vout := float64(sample) * (vcc / inputResolution)
	return vout * ratio, nil
}

// ReadAveragedInputVoltage returns the mean of many ReadInputVoltage
// readings. It blocks for the whole run.
func (obj *VoltageSensor) ReadAveragedInputVoltage() (float64, error) {
	mean := 0.0
	for i := 0; i < obj.averageOf; i++ {
		v, err := obj.ReadInputVoltage()
		if err != nil {
			return 0, err
		}
		// running mean keeps a constant input exact
		mean += (v - mean) / float64(i+1)
	}
	return mean, nil
}
