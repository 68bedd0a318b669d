package iebus

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-iebus/hal"
	"github.com/arloliu/go-iebus/logger"
)

// Config holds all configuration for one IEBus controller: the three bus
// pins, the microsecond clock, the fixed local node address, the bit-timing
// profile and the logger.
type Config struct {
	rx     hal.Pin
	tx     hal.Pin
	enable hal.Pin
	clock  hal.Clock

	// address is the 12-bit local node address, compared against incoming
	// slave fields to decide whether this node answers handshakes.
	address Address

	timing Timing
	logger logger.Logger
}

// NewConfig creates a controller configuration.
//
// rx, tx and enable are the receive, transmit and output-enable pins; clock
// is the microsecond time source driving all pulse timing. address is the
// local 12-bit node address. opts are functional options applied in order;
// see With* functions.
func NewConfig(rx, tx, enable hal.Pin, clock hal.Clock, address Address, opts ...Option) (*Config, error) {
	if rx == nil || tx == nil || enable == nil {
		return nil, errors.New("iebus: rx, tx and enable pins must not be nil")
	}
	if clock == nil {
		return nil, errors.New("iebus: clock must not be nil")
	}
	if address > MaxAddress {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidAddress, uint16(address))
	}

	cfg := &Config{
		rx:      rx,
		tx:      tx,
		enable:  enable,
		clock:   clock,
		address: address,
		timing:  DefaultTiming(),
		logger:  logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// Address returns the local 12-bit node address.
func (cfg *Config) Address() Address { return cfg.address }

// Timing returns the bit-timing profile.
func (cfg *Config) Timing() Timing { return cfg.timing }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithTiming sets a custom bit-timing profile. The profile is validated;
// both peers of a bus must use identical profiles to interoperate.
func WithTiming(t Timing) Option {
	return optFunc(func(cfg *Config) error {
		if err := t.Validate(); err != nil {
			return err
		}
		cfg.timing = t

		return nil
	})
}

// WithLogger sets the logger for the controller.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("iebus: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
