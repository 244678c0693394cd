// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package binding

import (
	"errors"
	"strconv"

	"github.com/weathermat/weathermat/dht"
	"github.com/weathermat/weathermat/sht1x"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// Status codes returned as the first value of every binding.
const (
	Success        = 0
	StatusTimeout  = -1
	StatusChecksum = -2
	StatusArgument = -3
	StatusGPIO     = -4
)

// Names under which Register installs the bindings.
const (
	ReadDHTName   = "readdht"
	ReadSHT1xName = "readsht1x"
)

// Default BCM pins of the SHT1x, used when a binding receives a pin <= 0.
const (
	DefaultSHT1xData  = sht1x.DefaultDataPin
	DefaultSHT1xClock = sht1x.DefaultClockPin
)

// Status maps a driver error to a status code.
func Status(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, dht.ErrTimeout), errors.Is(err, sht1x.ErrTimeout), errors.Is(err, sht1x.ErrNoAck):
		return StatusTimeout
	case errors.Is(err, dht.ErrChecksum), errors.Is(err, sht1x.ErrChecksum):
		return StatusChecksum
	case errors.Is(err, dht.ErrArgument), errors.Is(err, sht1x.ErrArgument):
		return StatusArgument
	}
	return StatusGPIO
}

// measurer is the part of *sht1x.Dev used by the bindings.
type measurer interface {
	Measure() (sht1x.Measurement, error)
}

// BoardOpts configures a Board.
type BoardOpts struct {
	Logger *zap.Logger
	// Pin resolves a BCM number. The default looks it up in gpioreg, so
	// host.Init() must have been called.
	Pin   func(number int) gpio.PinIO
	DHT   dht.Opts
	SHT1x sht1x.Opts
}

// Board opens sensors on the GPIO header and reads them on behalf of
// scripts. Each call opens the driver, reads once and returns.
type Board struct {
	log       *zap.Logger
	pin       func(int) gpio.PinIO
	openDHT   func(gpio.PinIO, dht.Model) (physic.SenseEnv, error)
	openSHT1x func(gpio.PinIO, gpio.PinOut) (measurer, error)
}

// NewBoard returns a Board. opts may be nil.
func NewBoard(opts *BoardOpts) *Board {
	o := BoardOpts{}
	if opts != nil {
		o = *opts
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Pin == nil {
		o.Pin = ByNumber
	}
	dhtOpts := o.DHT
	shtOpts := o.SHT1x
	return &Board{
		log: o.Logger,
		pin: o.Pin,
		openDHT: func(p gpio.PinIO, m dht.Model) (physic.SenseEnv, error) {
			opts := dhtOpts
			opts.Model = m
			return dht.New(p, &opts)
		},
		openSHT1x: func(data gpio.PinIO, clock gpio.PinOut) (measurer, error) {
			return sht1x.New(data, clock, &shtOpts)
		},
	}
}

// ByNumber returns the GPIO registered under the BCM number n, or nil.
func ByNumber(n int) gpio.PinIO {
	return gpioreg.ByName(strconv.Itoa(n))
}

// ReadDHT reads a DHT sensor of type sensor (11, 22 or 2302) on BCM pin
// pin. It returns the status code, the relative humidity in percent and the
// temperature in °C.
func (b *Board) ReadDHT(sensor, pin int) (result int, humidity, temperature float64) {
	b.log.Debug("readdht", zap.Int("sensor", sensor), zap.Int("pin", pin))
	model, err := dht.ParseModel(sensor)
	if err != nil {
		return b.fail(ReadDHTName, err), 0, 0
	}
	if pin < 0 {
		return StatusArgument, 0, 0
	}
	p := b.pin(pin)
	if p == nil {
		b.log.Warn("unknown pin", zap.String("func", ReadDHTName), zap.Int("pin", pin))
		return StatusGPIO, 0, 0
	}
	s, err := b.openDHT(p, model)
	if err != nil {
		return b.fail(ReadDHTName, err), 0, 0
	}
	e := physic.Env{}
	if err := s.Sense(&e); err != nil {
		return b.fail(ReadDHTName, err), 0, 0
	}
	return Success, percent(e.Humidity), e.Temperature.Celsius()
}

// ReadSHT1x reads an SHT1x sensor on the BCM data and clock pins. A pin <= 0
// selects its default. It returns the status code, the temperature in °C,
// the relative humidity in percent and the dew point in °C.
func (b *Board) ReadSHT1x(data, clock int) (result int, temperature, humidity, dewpoint float64) {
	if data <= 0 {
		data = DefaultSHT1xData
	}
	if clock <= 0 {
		clock = DefaultSHT1xClock
	}
	b.log.Debug("readsht1x", zap.Int("data", data), zap.Int("clock", clock))
	if data == clock {
		return StatusArgument, 0, 0, 0
	}
	dp, cp := b.pin(data), b.pin(clock)
	if dp == nil || cp == nil {
		b.log.Warn("unknown pin", zap.String("func", ReadSHT1xName), zap.Int("data", data), zap.Int("clock", clock))
		return StatusGPIO, 0, 0, 0
	}
	s, err := b.openSHT1x(dp, cp)
	if err != nil {
		return b.fail(ReadSHT1xName, err), 0, 0, 0
	}
	m, err := s.Measure()
	if err != nil {
		return b.fail(ReadSHT1xName, err), 0, 0, 0
	}
	return Success, m.Temperature.Celsius(), percent(m.Humidity), m.DewPoint.Celsius()
}

// Register installs readdht and readsht1x in r.
func (b *Board) Register(r *Registry) error {
	err := r.Register(ReadDHTName, func(args ...float64) []float64 {
		res, h, t := b.ReadDHT(arg(args, 0), arg(args, 1))
		return []float64{float64(res), h, t}
	})
	if err != nil {
		return err
	}
	return r.Register(ReadSHT1xName, func(args ...float64) []float64 {
		res, t, h, dew := b.ReadSHT1x(arg(args, 0), arg(args, 1))
		return []float64{float64(res), t, h, dew}
	})
}

func (b *Board) fail(name string, err error) int {
	code := Status(err)
	b.log.Debug("read failed", zap.String("func", name), zap.Int("status", code), zap.Error(err))
	return code
}

func percent(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(physic.PercentRH)
}
