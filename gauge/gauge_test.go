// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gauge

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/maruel/ansi256"
	"periph.io/x/conn/v3/physic"
)

func TestNew(t *testing.T) {
	if _, err := New(&Opts{}); err == nil {
		t.Error("zero width accepted")
	}
	if d, err := New(nil); err != nil || d.Bounds().Dx() != DefaultOpts.X {
		t.Errorf("New(nil) = %v, %v", d, err)
	}
	d, err := New(&Opts{X: 10})
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "Gauge" {
		t.Errorf("unexpected String() %q", d.String())
	}
	if b := d.Bounds(); b.Dx() != 10 || b.Dy() != 1 {
		t.Errorf("unexpected bounds %v", b)
	}
	if d.ColorModel() != color.NRGBAModel {
		t.Error("unexpected color model")
	}
}

func TestBar(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	img := Bar(10, 0.34, red)
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 1 {
		t.Fatalf("unexpected bounds %v", b)
	}
	lit := 0
	for x := range 10 {
		if img.At(x, 0) == color.Color(red) {
			lit++
		}
	}
	if lit != 3 {
		t.Errorf("%d pixels lit, expected 3", lit)
	}
	// Out of range fractions are clamped.
	if Bar(4, 2, red).At(3, 0) != color.Color(red) {
		t.Error("fraction > 1 not clamped")
	}
	if Bar(4, -1, red).At(0, 0) == color.Color(red) {
		t.Error("fraction < 0 not clamped")
	}
}

func TestTemperatureColor(t *testing.T) {
	var tests = []struct {
		celsius float64
		c       color.NRGBA
	}{
		{-40, color.NRGBA{B: 255, A: 255}},
		{-10, color.NRGBA{B: 255, A: 255}},
		{15, color.NRGBA{G: 255, A: 255}},
		{40, color.NRGBA{R: 255, A: 255}},
		{60, color.NRGBA{R: 255, A: 255}},
	}
	for _, test := range tests {
		temp := physic.ZeroCelsius + physic.Temperature(test.celsius*float64(physic.Celsius))
		if c := TemperatureColor(temp); c != test.c {
			t.Errorf("TemperatureColor(%s) = %v, expected %v", temp, c, test.c)
		}
	}
}

func TestShow(t *testing.T) {
	var buf bytes.Buffer
	d, err := New(&Opts{X: 8, W: &buf})
	if err != nil {
		t.Fatal(err)
	}
	e := physic.Env{Temperature: physic.ZeroCelsius + 40*physic.Celsius, Humidity: 50 * physic.PercentRH}
	if err := d.Show("greenhouse", e); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "greenhouse") {
		t.Errorf("label missing from %q", out)
	}
	red := ansi256.Default.Block(color.NRGBA{R: 255, A: 255})
	black := ansi256.Default.Block(color.NRGBA{A: 255})
	if n := strings.Count(out, red); n != 4 {
		t.Errorf("%d red blocks, expected 4 in %q", n, out)
	}
	if !strings.Contains(out, black) {
		t.Errorf("no black blocks in %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("line not terminated")
	}

	buf.Reset()
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "\033[0m\n" {
		t.Errorf("unexpected Halt() output %q", buf.String())
	}
}

func TestDrawOffset(t *testing.T) {
	var buf bytes.Buffer
	d, err := New(&Opts{X: 4, W: &buf})
	if err != nil {
		t.Fatal(err)
	}
	src := image.NewNRGBA(image.Rect(0, 0, 8, 2))
	src.Set(5, 1, color.NRGBA{G: 255, A: 255})
	if err := d.Draw(d.Bounds(), src, image.Point{X: 4, Y: 1}); err != nil {
		t.Fatal(err)
	}
	if d.pixels[1] != (color.NRGBA{G: 255, A: 255}) {
		t.Errorf("pixel 1 = %v, expected green", d.pixels[1])
	}
	if d.pixels[0] != (color.NRGBA{A: 255}) {
		t.Errorf("pixel 0 = %v, expected opaque black", d.pixels[0])
	}
}
