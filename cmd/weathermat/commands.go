// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/weathermat/weathermat/binding"
	"github.com/weathermat/weathermat/config"
	"github.com/weathermat/weathermat/monitor"
	"github.com/weathermat/weathermat/script"
	"go.uber.org/zap"
)

func statusText(code int) string {
	switch code {
	case binding.Success:
		return "success"
	case binding.StatusTimeout:
		return "timeout"
	case binding.StatusChecksum:
		return "checksum mismatch"
	case binding.StatusArgument:
		return "invalid argument"
	case binding.StatusGPIO:
		return "gpio failure"
	default:
		return "unknown status"
	}
}

func statusError(name string, code int) error {
	return fmt.Errorf("%s failed: %s (%d)", name, statusText(code), code)
}

func newReadCmd(a *app) *cobra.Command {
	read := &cobra.Command{
		Use:   "read",
		Short: "Read a sensor once",
	}

	var model, pin int
	dhtCmd := &cobra.Command{
		Use:   "dht",
		Short: "Read a DHT11, DHT22 or AM2302",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.board()
			if err != nil {
				return err
			}
			res, h, t := b.ReadDHT(model, pin)
			if res != binding.Success {
				return statusError(binding.ReadDHTName, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Temp=%.1f°C Humidity=%.1f%%\n", t, h)
			return nil
		},
	}
	dhtCmd.Flags().IntVar(&model, "model", 22, "Sensor model: 11, 22 or 2302")
	dhtCmd.Flags().IntVar(&pin, "pin", 4, "BCM number of the data pin")

	var data, clock int
	shtCmd := &cobra.Command{
		Use:   "sht1x",
		Short: "Read a Sensirion SHT1x",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.board()
			if err != nil {
				return err
			}
			res, t, h, dew := b.ReadSHT1x(data, clock)
			if res != binding.Success {
				return statusError(binding.ReadSHT1xName, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Temp=%.2f°C Humidity=%.2f%% DewPoint=%.2f°C\n", t, h, dew)
			return nil
		},
	}
	shtCmd.Flags().IntVar(&data, "data", binding.DefaultSHT1xData, "BCM number of the data pin")
	shtCmd.Flags().IntVar(&clock, "clock", binding.DefaultSHT1xClock, "BCM number of the clock pin")

	read.AddCommand(dhtCmd, shtCmd)
	return read
}

// formatTuple prints values the way a script receives them.
func formatTuple(values []float64) string {
	s := make([]string, len(values))
	for ix, v := range values {
		s[ix] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(s, " ")
}

func newCallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call <name> [a] [b]",
		Short: "Call a registered binding and print its result tuple",
		Long: `Call invokes a binding by name with numeric arguments and prints the
returned values space separated, status code first.

  weathermat call readdht 22 4
  weathermat call readsht1x 23 24`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, err := a.board()
			if err != nil {
				return err
			}
			values := make([]float64, 0, len(args)-1)
			for _, s := range args[1:] {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return fmt.Errorf("invalid argument %q: %w", s, err)
				}
				values = append(values, v)
			}
			out, err := reg.Call(args[0], values...)
			if err != nil {
				return fmt.Errorf("%w; available: %s", err, strings.Join(reg.Names(), ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatTuple(out))
			return nil
		},
	}
}

func newScriptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "script <file.go> [args...]",
		Short: "Run a Go script with the weathermat bindings",
		Long: `Script interprets a Go main package. It may import "weathermat" for
ReadDHT, ReadSHT1x, Call, Names and the status codes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, reg, err := a.board()
			if err != nil {
				return err
			}
			s, err := script.New(reg, b, script.Options{
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
				Args:   args,
				Logger: a.logger,
			})
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return s.Run(ctx, args[0])
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var path string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Poll the configured sensors until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			sources, err := monitor.Open(cfg, a.pin)
			if err != nil {
				return err
			}
			defer func() {
				for _, s := range sources {
					_ = s.Sensor.Halt()
				}
			}()
			sinks, err := monitor.NewSinks(cfg.Output, a.logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return watchRun(ctx, a.logger, &monitor.Monitor{
				Interval: cfg.Interval,
				Sources:  sources,
				Sinks:    sinks,
				Logger:   a.logger,
			})
		},
	}
	watch.Flags().StringVarP(&path, "config", "c", "weathermat.yaml", "Path to the YAML configuration")
	return watch
}

// watchRun is replaced in tests.
var watchRun = func(ctx context.Context, log *zap.Logger, m *monitor.Monitor) error {
	log.Debug("watching", zap.Int("sources", len(m.Sources)))
	return m.Run(ctx)
}
