// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the sensor layout used by the watch command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/weathermat/weathermat/dht"
	"github.com/weathermat/weathermat/sht1x"
	"gopkg.in/yaml.v3"
)

// Sensor kinds.
const (
	KindDHT   = "dht"
	KindSHT1x = "sht1x"
)

// MinInterval is the shortest polling interval; DHT sensors cannot be read
// faster.
const MinInterval = 2 * time.Second

// Sensor describes one sensor on the GPIO header. Pins are BCM numbers.
type Sensor struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// DHT
	Model int `yaml:"model,omitempty"`
	Pin   int `yaml:"pin,omitempty"`

	// SHT1x
	Data  int `yaml:"data,omitempty"`
	Clock int `yaml:"clock,omitempty"`
	// Supply is the sensor VDD in volts.
	Supply float64 `yaml:"supply,omitempty"`
}

// Output selects where readings go.
type Output struct {
	Log        bool   `yaml:"log"`
	Gauge      bool   `yaml:"gauge"`
	GaugeWidth int    `yaml:"gaugeWidth,omitempty"`
	PNG        string `yaml:"png,omitempty"`
	PNGWidth   int    `yaml:"pngWidth,omitempty"`
	PNGHeight  int    `yaml:"pngHeight,omitempty"`
}

// Config is the top level document.
type Config struct {
	Interval time.Duration `yaml:"interval"`
	Sensors  []Sensor      `yaml:"sensors"`
	Output   Output        `yaml:"output"`
}

// Default returns the configuration used when a field is omitted.
func Default() Config {
	return Config{
		Interval: 10 * time.Second,
		Output: Output{
			Log:        true,
			GaugeWidth: 40,
			PNGWidth:   250,
			PNGHeight:  122,
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML document. Unknown fields are errors.
func Parse(b []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.Interval < MinInterval {
		errs = append(errs, fmt.Errorf("interval %s is below %s", c.Interval, MinInterval))
	}
	if len(c.Sensors) == 0 {
		errs = append(errs, errors.New("no sensors"))
	}
	if c.Output.GaugeWidth < 0 || c.Output.PNGWidth < 0 || c.Output.PNGHeight < 0 {
		errs = append(errs, errors.New("output dimensions must be positive"))
	}
	seen := map[string]bool{}
	owner := map[int]string{}
	for ix, s := range c.Sensors {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sensor %d: missing name", ix))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("sensor %q: duplicate name", s.Name))
		}
		seen[s.Name] = true
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("sensor %q: %w", s.Name, err))
			continue
		}
		for _, p := range s.Pins() {
			if other, ok := owner[p]; ok && other != s.Name {
				errs = append(errs, fmt.Errorf("sensor %q: pin %d already used by %q", s.Name, p, other))
				continue
			}
			owner[p] = s.Name
		}
	}
	return errors.Join(errs...)
}

// SHT1xPins returns the data and clock pins with the defaults applied to
// zero values.
func (s *Sensor) SHT1xPins() (data, clock int) {
	data, clock = s.Data, s.Clock
	if data == 0 {
		data = sht1x.DefaultDataPin
	}
	if clock == 0 {
		clock = sht1x.DefaultClockPin
	}
	return data, clock
}

// Pins returns the BCM pins the sensor uses.
func (s *Sensor) Pins() []int {
	switch s.Kind {
	case KindDHT:
		return []int{s.Pin}
	case KindSHT1x:
		data, clock := s.SHT1xPins()
		return []int{data, clock}
	}
	return nil
}

func (s *Sensor) validate() error {
	switch s.Kind {
	case KindDHT:
		if _, err := dht.ParseModel(s.Model); err != nil {
			return err
		}
		if s.Pin < 0 {
			return fmt.Errorf("invalid pin %d", s.Pin)
		}
	case KindSHT1x:
		if s.Data < 0 || s.Clock < 0 {
			return fmt.Errorf("invalid pins data=%d clock=%d", s.Data, s.Clock)
		}
		if data, clock := s.SHT1xPins(); data == clock {
			return fmt.Errorf("data and clock must be different pins, both are %d", data)
		}
		if s.Supply < 0 {
			return fmt.Errorf("invalid supply %gV", s.Supply)
		}
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	return nil
}
