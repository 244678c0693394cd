// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sht1x provides a driver for the Sensirion SHT10, SHT11 and SHT15
// temperature/humidity sensors.
//
// The sensors use a two-wire serial interface that resembles, but is not
// compatible with, I²C. DATA is open drain and is released (input with
// pull-up) to send a 1. The driver bit-bangs both lines on regular GPIO pins.
//
// # Datasheet
//
// https://sensirion.com/media/documents/BD45ECB5/61642783/Sensirion_Humidity_Sensors_SHT1x_Datasheet.pdf
//
// # Accuracy
//
// SHT10: ±4.5 %RH, ±0.5 °C
//
// SHT11: ±3.0 %RH, ±0.4 °C
//
// SHT15: ±2.0 %RH, ±0.3 °C
package sht1x

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/weathermat/weathermat/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var (
	ErrNoAck    = errors.New("sht1x: sensor did not acknowledge")
	ErrTimeout  = errors.New("sht1x: timeout waiting for measurement")
	ErrChecksum = errors.New("sht1x: crc mismatch")
	ErrArgument = errors.New("sht1x: invalid argument")
	ErrGPIO     = errors.New("sht1x: gpio error")
)

const (
	cmdMeasureTemperature byte = 0x03
	cmdMeasureHumidity    byte = 0x05
	cmdReadStatus         byte = 0x07
	cmdWriteStatus        byte = 0x06
	cmdSoftReset          byte = 0x1e

	statusLowResolution byte = 0x01
	statusHeater        byte = 0x04

	// Half a clock period. The sensor accepts up to 10MHz at 5V; GPIO
	// latency dominates anyway.
	halfPeriod   = time.Microsecond
	pollInterval = time.Millisecond
	resetTime    = 11 * time.Millisecond

	minSampleDuration = time.Second
)

// Humidity conversion coefficients for 12 bit readings.
const (
	c1 = -4.0
	c2 = 0.0405
	c3 = -2.8e-6
	t1 = 0.01
	t2 = 0.00008

	// Temperature coefficient for 14 bit readings, °C per count.
	d2 = 0.01

	minRH = 0.1
	maxRH = 100.0
)

// d1 is the temperature offset as a function of the supply voltage.
var d1Table = []struct {
	volts  float64
	offset float64
}{
	{2.5, -39.4},
	{3.0, -39.6},
	{3.5, -39.7},
	{4.0, -39.8},
	{5.0, -40.1},
}

// BCM pins of the Weather Mat SHT1x header.
const (
	DefaultDataPin  = 23
	DefaultClockPin = 24
)

// Opts holds the configuration for a sensor.
type Opts struct {
	// Supply is the sensor VDD. It selects the temperature offset. Zero
	// means 5V.
	Supply physic.ElectricPotential
	// Timeout bounds the wait for a conversion. A 14 bit conversion takes
	// up to 320ms.
	Timeout time.Duration
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Supply:  5 * physic.Volt,
	Timeout: 320 * time.Millisecond,
}

// Measurement is one compensated reading.
type Measurement struct {
	Temperature physic.Temperature
	Humidity    physic.RelativeHumidity
	DewPoint    physic.Temperature
}

// Dev represents an SHT1x sensor.
type Dev struct {
	data     gpio.PinIO
	clock    gpio.PinOut
	opts     Opts
	d1       float64
	status   byte
	mu       sync.Mutex
	shutdown chan struct{}
	sleep    func(time.Duration)
}

// New returns a sensor using the data and clock pins, after resetting the
// serial interface.
//
// The status register survives a connection reset, so it is read back. A
// low resolution setting left by another program is reverted to 14/12 bits;
// the heater is left as found.
func New(data gpio.PinIO, clock gpio.PinOut, opts *Opts) (*Dev, error) {
	if data == nil || clock == nil {
		return nil, fmt.Errorf("%w: nil pin", ErrArgument)
	}
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Supply == 0 {
		o.Supply = DefaultOpts.Supply
	}
	if o.Supply < 0 {
		return nil, fmt.Errorf("%w: supply %s", ErrArgument, o.Supply)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultOpts.Timeout
	}
	d := &Dev{data: data, clock: clock, opts: o, d1: offset(o.Supply), sleep: time.Sleep}
	if err := d.connectionReset(); err != nil {
		return nil, err
	}
	st, err := d.readStatus()
	if err != nil {
		return nil, err
	}
	if st&statusLowResolution != 0 {
		if err := d.writeStatus(st &^ statusLowResolution); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// offset interpolates d1 for the supply voltage.
func offset(v physic.ElectricPotential) float64 {
	volts := float64(v) / float64(physic.Volt)
	if volts <= d1Table[0].volts {
		return d1Table[0].offset
	}
	for ix := 1; ix < len(d1Table); ix++ {
		lo, hi := d1Table[ix-1], d1Table[ix]
		if volts <= hi.volts {
			return lo.offset + (volts-lo.volts)*(hi.offset-lo.offset)/(hi.volts-lo.volts)
		}
	}
	return d1Table[len(d1Table)-1].offset
}

// Measure reads the temperature then the humidity and returns the
// compensated values with the dew point.
func (d *Dev) Measure() (Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rawT, err := d.measure(cmdMeasureTemperature)
	if err != nil {
		return Measurement{}, err
	}
	rawRH, err := d.measure(cmdMeasureHumidity)
	if err != nil {
		return Measurement{}, err
	}
	t := d.celsius(rawT)
	rh := humidity(rawRH, t)
	return Measurement{
		Temperature: toTemperature(t),
		Humidity:    physic.RelativeHumidity(rh * float64(physic.PercentRH)),
		DewPoint:    toTemperature(dewPoint(rh, t)),
	}, nil
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	e.Temperature = 0
	e.Pressure = 0
	e.Humidity = 0
	m, err := d.Measure()
	if err != nil {
		return err
	}
	e.Temperature = m.Temperature
	e.Humidity = m.Humidity
	return nil
}

// SenseContinuous returns a channel that receives a reading every interval.
// Failed readings are skipped. Call Halt to stop.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < minSampleDuration {
		return nil, errors.New("sht1x: invalid duration. minimum 1 second")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		return nil, errors.New("sht1x: sense continuous already running")
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

// SoftReset resets the interface and clears the status register.
func (d *Dev) SoftReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.command(cmdSoftReset); err != nil {
		return err
	}
	d.sleep(resetTime)
	d.status = 0
	return nil
}

// ReadStatus returns the status register.
func (d *Dev) ReadStatus() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readStatus()
}

func (d *Dev) readStatus() (byte, error) {
	if err := d.command(cmdReadStatus); err != nil {
		return 0, err
	}
	s, err := d.readByte(true)
	if err != nil {
		return 0, err
	}
	crc, err := d.readByte(false)
	if err != nil {
		return 0, err
	}
	// The status reply is seeded with its own low nibble.
	if common.Reverse8(crc) != common.CRC8(common.Reverse8(s&0x0f), []byte{cmdReadStatus, s}) {
		return 0, fmt.Errorf("%w: status", ErrChecksum)
	}
	d.status = s
	return s, nil
}

// SetHeater switches the on-chip heater. It raises the temperature by
// 5-10°C and can be used to check the sensor or to dry it after
// condensation.
func (d *Dev) SetHeater(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.status &^ statusHeater
	if on {
		s |= statusHeater
	}
	return d.writeStatus(s)
}

// Heater reports whether the on-chip heater is on.
func (d *Dev) Heater() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status&statusHeater != 0
}

func (d *Dev) writeStatus(s byte) error {
	if err := d.command(cmdWriteStatus); err != nil {
		return err
	}
	if err := d.writeByte(s); err != nil {
		return err
	}
	d.status = s
	return nil
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
	e.Temperature = physic.Celsius / 100
	e.Pressure = 0
	e.Humidity = physic.PercentRH / 20
}

func (d *Dev) String() string {
	return fmt.Sprintf("sht1x{%s, %s}", d.data, d.clock)
}

// seed is the CRC start value: the low nibble of the status register, bit
// reversed.
func (d *Dev) seed() byte {
	return common.Reverse8(d.status & 0x0f)
}

// measure runs one conversion and returns the raw count.
func (d *Dev) measure(cmd byte) (uint16, error) {
	if err := d.command(cmd); err != nil {
		return 0, err
	}
	if err := d.waitReady(); err != nil {
		return 0, err
	}
	var b [3]byte
	for ix := range b {
		var err error
		if b[ix], err = d.readByte(ix < 2); err != nil {
			return 0, err
		}
	}
	if common.Reverse8(b[2]) != common.CRC8(d.seed(), []byte{cmd, b[0], b[1]}) {
		return 0, fmt.Errorf("%w: command 0x%02x", ErrChecksum, cmd)
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// waitReady waits for the sensor to pull DATA low at the end of a
// conversion.
func (d *Dev) waitReady() error {
	for waited := time.Duration(0); waited < d.opts.Timeout; waited += pollInterval {
		if d.data.Read() == gpio.Low {
			return nil
		}
		d.sleep(pollInterval)
	}
	return ErrTimeout
}

// command sends a transmission start followed by cmd.
func (d *Dev) command(cmd byte) error {
	if err := d.transmissionStart(); err != nil {
		return err
	}
	return d.writeByte(cmd)
}

// connectionReset clocks 9 or more cycles with DATA high, then a
// transmission start.
func (d *Dev) connectionReset() error {
	if err := d.setData(gpio.High); err != nil {
		return err
	}
	if err := d.setClock(gpio.Low); err != nil {
		return err
	}
	for range 9 {
		if err := d.pulse(); err != nil {
			return err
		}
	}
	return d.transmissionStart()
}

// transmissionStart lowers DATA while SCK is high, then raises it again
// during the next SCK high.
func (d *Dev) transmissionStart() error {
	for _, step := range []struct {
		clock bool
		level gpio.Level
	}{
		{false, gpio.High},
		{true, gpio.Low},
		{true, gpio.High},
		{false, gpio.Low},
		{true, gpio.Low},
		{true, gpio.High},
		{false, gpio.High},
		{true, gpio.Low},
	} {
		var err error
		if step.clock {
			err = d.setClock(step.level)
		} else {
			err = d.setData(step.level)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// writeByte shifts b out MSB first and checks the sensor acknowledge.
func (d *Dev) writeByte(b byte) error {
	for bit := 7; bit >= 0; bit-- {
		l := gpio.Level(b&(1<<bit) != 0)
		if err := d.setData(l); err != nil {
			return err
		}
		if err := d.pulse(); err != nil {
			return err
		}
	}
	if err := d.setData(gpio.High); err != nil {
		return err
	}
	if err := d.setClock(gpio.High); err != nil {
		return err
	}
	ack := d.data.Read() == gpio.Low
	if err := d.setClock(gpio.Low); err != nil {
		return err
	}
	if !ack {
		return fmt.Errorf("%w: byte 0x%02x", ErrNoAck, b)
	}
	return nil
}

// readByte shifts a byte in MSB first and acknowledges it when ack is true.
func (d *Dev) readByte(ack bool) (byte, error) {
	if err := d.setData(gpio.High); err != nil {
		return 0, err
	}
	var b byte
	for range 8 {
		if err := d.setClock(gpio.High); err != nil {
			return 0, err
		}
		b <<= 1
		if d.data.Read() == gpio.High {
			b |= 1
		}
		if err := d.setClock(gpio.Low); err != nil {
			return 0, err
		}
	}
	if err := d.setData(!gpio.Level(ack)); err != nil {
		return 0, err
	}
	if err := d.pulse(); err != nil {
		return 0, err
	}
	return b, d.setData(gpio.High)
}

func (d *Dev) pulse() error {
	if err := d.setClock(gpio.High); err != nil {
		return err
	}
	return d.setClock(gpio.Low)
}

func (d *Dev) setClock(l gpio.Level) error {
	if err := d.clock.Out(l); err != nil {
		return fmt.Errorf("%w: %w", ErrGPIO, err)
	}
	d.sleep(halfPeriod)
	return nil
}

// setData drives DATA low, or releases it to the pull-up for a high level.
func (d *Dev) setData(l gpio.Level) error {
	var err error
	if l == gpio.Low {
		err = d.data.Out(gpio.Low)
	} else {
		err = d.data.In(gpio.PullUp, gpio.NoEdge)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGPIO, err)
	}
	return nil
}

func (d *Dev) celsius(raw uint16) float64 {
	return d.d1 + d2*float64(raw)
}

// humidity returns the temperature compensated relative humidity in
// percent.
func humidity(raw uint16, celsius float64) float64 {
	so := float64(raw)
	linear := c1 + c2*so + c3*so*so
	rh := (celsius-25)*(t1+t2*so) + linear
	return math.Min(math.Max(rh, minRH), maxRH)
}

// dewPoint uses the Magnus formula with the coefficients for water.
func dewPoint(rh, celsius float64) float64 {
	k := (math.Log10(rh)-2)/0.4343 + (17.62*celsius)/(243.12+celsius)
	return 243.12 * k / (17.62 - k)
}

func toTemperature(celsius float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(celsius*float64(physic.Celsius))
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
