// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"errors"
	"io"

	"github.com/weathermat/weathermat/config"
	"github.com/weathermat/weathermat/gauge"
	"github.com/weathermat/weathermat/render"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
)

// LogSink writes every reading as a structured log entry.
type LogSink struct {
	Logger *zap.Logger
}

func (s *LogSink) Publish(ctx context.Context, round []Reading) error {
	for _, r := range round {
		if r.Err != nil {
			s.Logger.Warn("read failed", zap.String("sensor", r.Name), zap.Error(r.Err))
			continue
		}
		s.Logger.Info("reading",
			zap.String("sensor", r.Name),
			zap.Time("time", r.Time),
			zap.Float64("temperature", r.Env.Temperature.Celsius()),
			zap.Float64("humidity", float64(r.Env.Humidity)/float64(physic.PercentRH)))
	}
	return nil
}

// GaugeSink prints one terminal bar per successful reading.
type GaugeSink struct {
	Dev *gauge.Dev
}

func (s *GaugeSink) Publish(ctx context.Context, round []Reading) error {
	var errs []error
	for _, r := range round {
		if r.Err != nil {
			continue
		}
		if err := s.Dev.Show(r.Name, r.Env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PanelSink renders the round on a display, a PNG file, or both.
type PanelSink struct {
	Panel   *render.Panel
	Display display.Drawer
	PNG     string
}

func (s *PanelSink) Publish(ctx context.Context, round []Reading) error {
	rows := make([]render.Row, len(round))
	for ix, r := range round {
		rows[ix] = render.Row{Name: r.Name, Temperature: r.Env.Temperature, Humidity: r.Env.Humidity, Err: r.Err}
	}
	var errs []error
	if s.Display != nil {
		errs = append(errs, s.Panel.Draw(s.Display, rows))
	}
	if s.PNG != "" {
		errs = append(errs, s.Panel.SavePNG(s.PNG, rows))
	}
	return errors.Join(errs...)
}

// NewSinks returns the sinks selected by out. Gauge bars go to w, or stdout
// when w is nil.
func NewSinks(out config.Output, log *zap.Logger, w io.Writer) ([]Sink, error) {
	var sinks []Sink
	if out.Log {
		sinks = append(sinks, &LogSink{Logger: log})
	}
	if out.Gauge {
		d, err := gauge.New(&gauge.Opts{X: out.GaugeWidth, W: w})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, &GaugeSink{Dev: d})
	}
	if out.PNG != "" {
		p, err := render.NewPanel(out.PNGWidth, out.PNGHeight)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, &PanelSink{Panel: p, PNG: out.PNG})
	}
	return sinks, nil
}
