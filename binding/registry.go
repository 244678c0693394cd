// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package binding exposes sensor read routines to a scripting layer.
//
// A binding takes numeric arguments and returns a tuple of numbers, the
// first of which is a status code. Bindings are registered by name in a
// Registry, the same way a native module registers functions with a script
// runtime.
package binding

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Func is a function callable from scripts. Arguments missing from the call
// read as 0.
type Func func(args ...float64) []float64

// ErrUnknown is returned when calling a name that was never registered.
var ErrUnknown = errors.New("binding: unknown function")

// Registry maps script visible names to functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

// Register makes fn callable as name.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return errors.New("binding: empty function name")
	}
	if fn == nil {
		return fmt.Errorf("binding: nil function %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("binding: %q already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// Call invokes the function registered as name.
func (r *Registry) Call(name string, args ...float64) ([]float64, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	return fn(args...), nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// arg returns args[ix] truncated to an int, or 0 when absent.
func arg(args []float64, ix int) int {
	if ix < len(args) {
		return int(args[ix])
	}
	return 0
}
