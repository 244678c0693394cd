// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// weathermat reads DHT and SHT1x sensors, runs scripts against them and
// monitors them continuously.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/weathermat/weathermat/binding"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
)

// app is the state shared by the commands.
type app struct {
	verbose bool
	logger  *zap.Logger
	stdout  io.Writer
	stderr  io.Writer

	// pin resolves BCM numbers. nil means the host drivers are loaded and
	// gpioreg is used.
	pin func(int) gpio.PinIO
	// newLogger builds the logger once flags are parsed.
	newLogger func(verbose bool) (*zap.Logger, error)
}

func productionLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// board returns a Board and a Registry holding its bindings.
func (a *app) board() (*binding.Board, *binding.Registry, error) {
	b := binding.NewBoard(&binding.BoardOpts{Logger: a.logger, Pin: a.pin})
	reg := binding.NewRegistry()
	if err := b.Register(reg); err != nil {
		return nil, nil, err
	}
	return b, reg, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "weathermat",
		Short: "Temperature and humidity sensors on the GPIO header",
		Long: `weathermat reads DHT11/DHT22/AM2302 and Sensirion SHT1x sensors.

Sensors can be read once, from a script with the weathermat bindings, or
polled continuously with the watch command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if a.logger, err = a.newLogger(a.verbose); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if a.pin == nil {
				state, err := host.Init()
				if err != nil {
					return fmt.Errorf("failed to initialize host drivers: %w", err)
				}
				a.logger.Debug("host initialized", zap.Int("drivers", len(state.Loaded)))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newReadCmd(a))
	root.AddCommand(newCallCmd(a))
	root.AddCommand(newScriptCmd(a))
	root.AddCommand(newWatchCmd(a))
	return root
}

func main() {
	a := &app{stdout: os.Stdout, stderr: os.Stderr, newLogger: productionLogger}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
