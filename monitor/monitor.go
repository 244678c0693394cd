// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor polls a set of sensors at a fixed interval and hands every
// round of readings to sinks.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weathermat/weathermat/binding"
	"github.com/weathermat/weathermat/config"
	"github.com/weathermat/weathermat/dht"
	"github.com/weathermat/weathermat/sht1x"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Source is a named sensor.
type Source struct {
	Name   string
	Sensor physic.SenseEnv
}

// Reading is the result of sensing one Source.
type Reading struct {
	Name string
	Time time.Time
	Env  physic.Env
	Err  error
}

// Sink receives every round of readings, in Source order.
type Sink interface {
	Publish(ctx context.Context, round []Reading) error
}

// Monitor polls Sources every Interval.
type Monitor struct {
	Interval time.Duration
	Sources  []Source
	Sinks    []Sink
	Logger   *zap.Logger

	now func() time.Time
}

func (m *Monitor) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// Once reads every source and publishes the round. Read failures are
// reported in the readings; the error is the join of the sink errors.
//
// Sources are read one at a time; concurrent bit-banging corrupts pulse
// timing.
func (m *Monitor) Once(ctx context.Context) ([]Reading, error) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	round := make([]Reading, len(m.Sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(1)
	for ix, src := range m.Sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := Reading{Name: src.Name}
			r.Err = src.Sensor.Sense(&r.Env)
			r.Time = now()
			round[ix] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var errs []error
	for _, s := range m.Sinks {
		if err := s.Publish(ctx, round); err != nil {
			errs = append(errs, err)
		}
	}
	return round, errors.Join(errs...)
}

// Run polls until ctx is canceled. Sink errors are logged and do not stop
// the loop.
func (m *Monitor) Run(ctx context.Context) error {
	if m.Interval <= 0 {
		return fmt.Errorf("monitor: invalid interval %s", m.Interval)
	}
	if len(m.Sources) == 0 {
		return errors.New("monitor: no sources")
	}
	log := m.logger()
	log.Info("monitor started", zap.Duration("interval", m.Interval), zap.Int("sources", len(m.Sources)))
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		if _, err := m.Once(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("publish failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			log.Info("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
	log.Info("monitor stopped")
	return nil
}

// Open validates cfg and creates the sensors it describes. resolve maps a
// BCM number to a pin; nil selects binding.ByNumber.
func Open(cfg *config.Config, resolve func(int) gpio.PinIO) ([]Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	if resolve == nil {
		resolve = binding.ByNumber
	}
	pin := func(n int) (gpio.PinIO, error) {
		p := resolve(n)
		if p == nil {
			return nil, fmt.Errorf("monitor: unknown pin %d", n)
		}
		return p, nil
	}
	sources := make([]Source, 0, len(cfg.Sensors))
	for _, s := range cfg.Sensors {
		var sensor physic.SenseEnv
		switch s.Kind {
		case config.KindDHT:
			p, err := pin(s.Pin)
			if err != nil {
				return nil, err
			}
			d, err := dht.New(p, &dht.Opts{Model: dht.Model(s.Model)})
			if err != nil {
				return nil, fmt.Errorf("monitor: %s: %w", s.Name, err)
			}
			sensor = d
		case config.KindSHT1x:
			data, clock := s.SHT1xPins()
			dp, err := pin(data)
			if err != nil {
				return nil, err
			}
			cp, err := pin(clock)
			if err != nil {
				return nil, err
			}
			opts := sht1x.Opts{Supply: physic.ElectricPotential(s.Supply * float64(physic.Volt))}
			d, err := sht1x.New(dp, cp, &opts)
			if err != nil {
				return nil, fmt.Errorf("monitor: %s: %w", s.Name, err)
			}
			sensor = d
		default:
			return nil, fmt.Errorf("monitor: %s: unknown kind %q", s.Name, s.Kind)
		}
		sources = append(sources, Source{Name: s.Name, Sensor: sensor})
	}
	return sources, nil
}
