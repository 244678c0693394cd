// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package script runs Go scripts that read sensors through the bindings.
//
// Scripts are interpreted by yaegi and import the "weathermat" package:
//
//	package main
//
//	import (
//		"fmt"
//		"weathermat"
//	)
//
//	func main() {
//		res, humidity, temperature := weathermat.ReadDHT(22, 4)
//		fmt.Println(res, humidity, temperature)
//	}
package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/weathermat/weathermat/binding"
	"go.uber.org/zap"
)

// PackageName is the import path of the bindings inside scripts.
const PackageName = "weathermat"

// Options configures an Interpreter.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Args is os.Args as seen by the script.
	Args   []string
	Logger *zap.Logger
}

// Interpreter evaluates scripts against one Board and Registry.
type Interpreter struct {
	i   *interp.Interpreter
	log *zap.Logger
}

// New returns an interpreter with the standard library and the bindings
// available for import.
func New(reg *binding.Registry, board *binding.Board, opts Options) (*Interpreter, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	i := interp.New(interp.Options{
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		Args:   opts.Args,
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("script: failed to load stdlib: %w", err)
	}
	if err := i.Use(Exports(reg, board)); err != nil {
		return nil, fmt.Errorf("script: failed to load bindings: %w", err)
	}
	return &Interpreter{i: i, log: opts.Logger}, nil
}

// Exports returns the symbols of the "weathermat" script package:
//
//	func ReadDHT(sensor, pin int) (result int, humidity, temperature float64)
//	func ReadSHT1x(data, clock int) (result int, temperature, humidity, dewpoint float64)
//	func Call(name string, args ...float64) ([]float64, error)
//	func Names() []string
//
// The status codes are exported as Success, StatusTimeout, StatusChecksum,
// StatusArgument and StatusGPIO.
func Exports(reg *binding.Registry, board *binding.Board) interp.Exports {
	success, timeout, checksum, argument, gpio :=
		binding.Success, binding.StatusTimeout, binding.StatusChecksum, binding.StatusArgument, binding.StatusGPIO
	return interp.Exports{
		PackageName + "/" + PackageName: {
			"ReadDHT":        reflect.ValueOf(board.ReadDHT),
			"ReadSHT1x":      reflect.ValueOf(board.ReadSHT1x),
			"Call":           reflect.ValueOf(reg.Call),
			"Names":          reflect.ValueOf(reg.Names),
			"Success":        reflect.ValueOf(&success).Elem(),
			"StatusTimeout":  reflect.ValueOf(&timeout).Elem(),
			"StatusChecksum": reflect.ValueOf(&checksum).Elem(),
			"StatusArgument": reflect.ValueOf(&argument).Elem(),
			"StatusGPIO":     reflect.ValueOf(&gpio).Elem(),
		},
	}
}

// Eval evaluates src. A main package has its main function run. The
// returned value is the last expression evaluated.
func (s *Interpreter) Eval(ctx context.Context, src string) (reflect.Value, error) {
	v, err := s.i.EvalWithContext(ctx, src)
	if err != nil {
		return v, fmt.Errorf("script: %w", err)
	}
	return v, nil
}

// Run reads and evaluates the script at path.
func (s *Interpreter) Run(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	s.log.Debug("running script", zap.String("path", path))
	_, err = s.Eval(ctx, string(src))
	return err
}
