// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weathermat/weathermat/monitor"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// run executes the CLI with no GPIO registered unless pins is set.
func run(t *testing.T, pins func(int) gpio.PinIO, args ...string) (string, *app, error) {
	t.Helper()
	var out bytes.Buffer
	if pins == nil {
		pins = func(int) gpio.PinIO { return nil }
	}
	a := &app{
		stdout:    &out,
		stderr:    &out,
		pin:       pins,
		newLogger: func(bool) (*zap.Logger, error) { return zap.NewNop(), nil },
	}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), a, err
}

func TestCall(t *testing.T) {
	out, _, err := run(t, nil, "call", "readdht", "22", "4")
	require.NoError(t, err)
	assert.Equal(t, "-4 0 0\n", out)

	out, _, err = run(t, nil, "call", "readsht1x")
	require.NoError(t, err)
	assert.Equal(t, "-4 0 0 0\n", out)

	out, _, err = run(t, nil, "call", "readdht", "5", "4")
	require.NoError(t, err)
	assert.Equal(t, "-3 0 0\n", out)
}

func TestCallErrors(t *testing.T) {
	_, _, err := run(t, nil, "call", "readbmp", "1")
	assert.ErrorContains(t, err, "readdht, readsht1x")

	_, _, err = run(t, nil, "call", "readdht", "x")
	assert.ErrorContains(t, err, `invalid argument "x"`)

	_, _, err = run(t, nil, "call")
	assert.Error(t, err)
	_, _, err = run(t, nil, "call", "readdht", "1", "2", "3")
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	_, _, err := run(t, nil, "read", "dht", "--model", "11", "--pin", "17")
	assert.EqualError(t, err, "readdht failed: gpio failure (-4)")

	_, _, err = run(t, nil, "read", "dht", "--model", "21")
	assert.EqualError(t, err, "readdht failed: invalid argument (-3)")

	_, _, err = run(t, nil, "read", "sht1x", "--data", "5", "--clock", "5")
	assert.EqualError(t, err, "readsht1x failed: invalid argument (-3)")
}

func TestStatusText(t *testing.T) {
	for code, want := range map[int]string{
		0:  "success",
		-1: "timeout",
		-2: "checksum mismatch",
		-3: "invalid argument",
		-4: "gpio failure",
		-9: "unknown status",
	} {
		assert.Equal(t, want, statusText(code), "code %d", code)
	}
}

func TestFormatTuple(t *testing.T) {
	assert.Equal(t, "0 45.5 21.25", formatTuple([]float64{0, 45.5, 21.25}))
	assert.Equal(t, "", formatTuple(nil))
}

func TestScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greenhouse.go")
	require.NoError(t, os.WriteFile(path, []byte(`package main

import (
	"fmt"
	"os"
	"weathermat"
)

func main() {
	res, h, t := weathermat.ReadDHT(22, 4)
	fmt.Println(len(os.Args), res == weathermat.StatusGPIO, h, t)
}
`), 0o644))
	out, _, err := run(t, nil, "script", path, "extra")
	require.NoError(t, err)
	assert.Equal(t, "2 true 0 0\n", out)

	_, _, err = run(t, nil, "script", filepath.Join(t.TempDir(), "missing.go"))
	assert.Error(t, err)
}

func TestVerbose(t *testing.T) {
	var got []bool
	a := &app{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		pin:    func(int) gpio.PinIO { return nil },
		newLogger: func(v bool) (*zap.Logger, error) {
			got = append(got, v)
			return zap.NewNop(), nil
		},
	}
	root := newRootCmd(a)
	root.SetArgs([]string{"--verbose", "call", "readsht1x"})
	require.NoError(t, root.Execute())
	assert.Equal(t, []bool{true}, got)

	a.newLogger = func(bool) (*zap.Logger, error) { return nil, fmt.Errorf("no sink") }
	root = newRootCmd(a)
	root.SetArgs([]string{"call", "readsht1x"})
	assert.ErrorContains(t, root.Execute(), "failed to initialize logger")
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weathermat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
interval: 30s
sensors:
  - {name: greenhouse, kind: dht, model: 22, pin: 4}
  - {name: porch, kind: dht, model: 11, pin: 17}
`), 0o644))

	var got *monitor.Monitor
	old := watchRun
	defer func() { watchRun = old }()
	watchRun = func(ctx context.Context, log *zap.Logger, m *monitor.Monitor) error {
		got = m
		return nil
	}
	pins := func(n int) gpio.PinIO {
		return &gpiotest.Pin{N: fmt.Sprintf("GPIO%d", n), Num: n}
	}
	_, _, err := run(t, pins, "watch", "--config", path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 30*time.Second, got.Interval)
	require.Len(t, got.Sources, 2)
	assert.Equal(t, "porch", got.Sources[1].Name)
	assert.Len(t, got.Sinks, 1)

	_, _, err = run(t, pins, "watch", "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
