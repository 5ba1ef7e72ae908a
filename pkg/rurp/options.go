package rurp

import (
	"io"
	"log"
	"time"
)

// DefaultBaudRate is the host link speed.
const DefaultBaudRate = 115200

// DefaultReadTimeout bounds a ReadBytes call.
const DefaultReadTimeout = time.Second

// Config holds the shield tuning knobs.
type Config struct {
	// Logger receives debug output (optional)
	Logger *log.Logger

	// BaudRate of the host link
	BaudRate int

	// ReadyTimeout bounds the wait for the host link, 0 waits forever
	ReadyTimeout time.Duration

	// ReadTimeout bounds ReadBytes, 0 waits until the buffer is full
	ReadTimeout time.Duration

	// ConversionTimeout bounds the wait for an ADC conversion, 0 waits forever
	ConversionTimeout time.Duration

	// SettleDelay is the wait after releasing the programming voltage
	SettleDelay time.Duration

	// AverageOf is the sample count of averaged voltage readings
	AverageOf int
}

func defaultConfig() Config {
	return Config{
		Logger:            log.New(io.Discard, "", 0),
		BaudRate:          DefaultBaudRate,
		ReadyTimeout:      2 * time.Second,
		ReadTimeout:       DefaultReadTimeout,
		ConversionTimeout: DefaultConversionTimeout,
		SettleDelay:       DefaultSettleDelay,
		AverageOf:         DefaultAverageOf,
	}
}

// Option is a functional option for configuring the Shield.
type Option func(*Config)

// WithLogger sets the debug logger.
//
// Example:
//
//	shield := rurp.New(hw, cfg, rurp.WithLogger(log.Default()))
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithBaudRate sets the host link speed.
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		if baud > 0 {
			c.BaudRate = baud
		}
	}
}

// WithReadyTimeout bounds the host link ready wait. Zero restores the
// unbounded wait.
func WithReadyTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.ReadyTimeout = timeout
		}
	}
}

// WithReadTimeout sets how long ReadBytes waits for the buffer to fill.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithConversionTimeout bounds the ADC conversion wait. Zero restores the
// unbounded wait.
func WithConversionTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.ConversionTimeout = timeout
		}
	}
}

// WithSettleDelay sets the wait after releasing P1VPPEnable.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.SettleDelay = d
		}
	}
}

// WithAverageOf sets how many readings an averaged voltage takes.
//
// Example:
//
//	shield := rurp.New(hw, cfg, rurp.WithAverageOf(50))
func WithAverageOf(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.AverageOf = n
		}
	}
}
