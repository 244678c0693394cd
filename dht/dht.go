// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/weathermat/weathermat/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Model is the sensor variant. The numeric values are the ones used on the
// command line and by the scripting bindings.
type Model int

const (
	DHT11  Model = 11
	DHT22  Model = 22
	AM2302 Model = 2302
)

// ParseModel converts a numeric sensor type to a Model.
func ParseModel(n int) (Model, error) {
	switch m := Model(n); m {
	case DHT11, DHT22, AM2302:
		return m, nil
	}
	return 0, fmt.Errorf("%w: unknown sensor type %d", ErrArgument, n)
}

func (m Model) String() string {
	switch m {
	case DHT11:
		return "DHT11"
	case DHT22:
		return "DHT22"
	case AM2302:
		return "AM2302"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

var (
	ErrTimeout  = errors.New("dht: timeout waiting for sensor")
	ErrChecksum = errors.New("dht: checksum mismatch")
	ErrArgument = errors.New("dht: invalid argument")
	ErrGPIO     = errors.New("dht: gpio error")
)

const (
	// Number of low/high pulse pairs in a transaction: the sensor response
	// followed by 40 data bits.
	pulses = 41

	settleTime  = 500 * time.Millisecond
	startSignal = 20 * time.Millisecond

	minSampleDuration = 2 * time.Second
)

// Opts holds the configuration for a sensor.
type Opts struct {
	Model Model
	// MaxCount is the number of pin polls after which a pulse is considered
	// lost.
	MaxCount int
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Model:    DHT22,
	MaxCount: 32000,
}

// Dev represents a DHT11/DHT22/AM2302 sensor wired to a single GPIO pin.
type Dev struct {
	p        gpio.PinIO
	opts     Opts
	mu       sync.Mutex
	shutdown chan struct{}
	sleep    func(time.Duration)
}

// New returns a sensor on pin p. The pin needs an external or internal
// pull-up; the internal one is enabled while reading.
func New(p gpio.PinIO, opts *Opts) (*Dev, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil pin", ErrArgument)
	}
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if _, err := ParseModel(int(o.Model)); err != nil {
		return nil, err
	}
	if o.MaxCount <= 0 {
		o.MaxCount = DefaultOpts.MaxCount
	}
	return &Dev{p: p, opts: o, sleep: time.Sleep}, nil
}

// Sense performs one transaction with the sensor and returns the temperature
// and humidity. The sensor refreshes its values at most every 2 seconds.
func (d *Dev) Sense(e *physic.Env) error {
	e.Temperature = 0
	e.Pressure = 0
	e.Humidity = 0

	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := d.readFrame()
	if err != nil {
		return err
	}
	if common.Sum8(data[:4]) != data[4] {
		return fmt.Errorf("%w: frame %x", ErrChecksum, data)
	}
	e.Humidity, e.Temperature = d.decode(data)
	return nil
}

// decode converts a validated frame into physical values.
func (d *Dev) decode(data [5]byte) (physic.RelativeHumidity, physic.Temperature) {
	if d.opts.Model == DHT11 {
		return physic.RelativeHumidity(data[0]) * physic.PercentRH,
			physic.ZeroCelsius + physic.Temperature(data[2])*physic.Celsius
	}
	h := int(data[0])<<8 | int(data[1])
	t := int(data[2]&0x7f)<<8 | int(data[3])
	if data[2]&0x80 != 0 {
		t = -t
	}
	return physic.RelativeHumidity(h) * (physic.PercentRH / 10),
		physic.ZeroCelsius + physic.Temperature(t)*(physic.Celsius/10)
}

// readFrame sends the start signal and samples the 40 bit answer.
//
// Pulse widths are measured in poll iterations rather than wall time; only
// the ratio between the low and high durations matters, so the result does
// not depend on how fast the host polls.
func (d *Dev) readFrame() ([5]byte, error) {
	var data [5]byte
	if err := d.p.Out(gpio.High); err != nil {
		return data, fmt.Errorf("%w: %w", ErrGPIO, err)
	}
	d.sleep(settleTime)
	if err := d.p.Out(gpio.Low); err != nil {
		return data, fmt.Errorf("%w: %w", ErrGPIO, err)
	}
	d.sleep(startSignal)

	// Keep the goroutine on one thread while sampling to limit preemption
	// jitter.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := d.p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return data, fmt.Errorf("%w: %w", ErrGPIO, err)
	}

	maxCount := d.opts.MaxCount
	count := 0
	for d.p.Read() == gpio.High {
		if count++; count >= maxCount {
			return data, fmt.Errorf("%w: no response", ErrTimeout)
		}
	}
	var counts [pulses * 2]int
	for i := 0; i < pulses*2; i += 2 {
		for d.p.Read() == gpio.Low {
			if counts[i]++; counts[i] >= maxCount {
				return data, fmt.Errorf("%w: pulse %d low", ErrTimeout, i/2)
			}
		}
		for d.p.Read() == gpio.High {
			if counts[i+1]++; counts[i+1] >= maxCount {
				return data, fmt.Errorf("%w: pulse %d high", ErrTimeout, i/2)
			}
		}
	}

	// The low period before every data bit is fixed at ~50µs; use its mean
	// as the split between a 0 (~28µs high) and a 1 (~70µs high).
	threshold := 0
	for i := 2; i < pulses*2; i += 2 {
		threshold += counts[i]
	}
	threshold /= pulses - 1

	for i := 3; i < pulses*2; i += 2 {
		ix := (i - 3) / 16
		data[ix] <<= 1
		if counts[i] >= threshold {
			data[ix] |= 1
		}
	}
	return data, nil
}

// SenseContinuous returns a channel that receives a reading every interval.
// The minimum interval is 2 seconds. Failed readings are skipped. Call Halt
// to stop.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < minSampleDuration {
		return nil, errors.New("dht: invalid duration. minimum 2 seconds")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		return nil, errors.New("dht: sense continuous already running")
	}
	d.shutdown = make(chan struct{})
	ch := make(chan physic.Env, 16)
	go func(shutdown chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				e := physic.Env{}
				if err := d.Sense(&e); err == nil {
					ch <- e
				}
			}
		}
	}(d.shutdown)
	return ch, nil
}

// Halt interrupts a running SenseContinuous() operation.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		close(d.shutdown)
		d.shutdown = nil
	}
	return nil
}

// Precision returns the resolution of the device for its measured
// parameters.
func (d *Dev) Precision(e *physic.Env) {
	e.Pressure = 0
	if d.opts.Model == DHT11 {
		e.Temperature = physic.Celsius
		e.Humidity = physic.PercentRH
		return
	}
	e.Temperature = physic.Celsius / 10
	e.Humidity = physic.PercentRH / 10
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.opts.Model, d.p)
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
