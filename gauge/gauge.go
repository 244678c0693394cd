// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gauge implements a one line display.Drawer that prints reading
// bars to a terminal using ANSI 256 colors.
//
// Useful on a headless board reached over ssh, where the only screen is the
// terminal.
package gauge

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
)

// Opts represents the options available for this display.
type Opts struct {
	// X is the bar length in characters.
	X       int
	Palette *ansi256.Palette
	// W is where the bars are printed. Defaults to stdout.
	W io.Writer

	_ struct{}
}

// DefaultOpts is a 40 character bar on stdout.
var DefaultOpts = Opts{X: 40}

// Dev is a one line bar display in the terminal.
type Dev struct {
	w       io.Writer
	l       int
	palette ansi256.Palette
	label   string

	pixels []color.NRGBA
	buf    bytes.Buffer
}

// New returns a Dev that draws on the terminal. nil opts selects
// DefaultOpts.
func New(opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.X <= 0 {
		return nil, errors.New("gauge: invalid width")
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{
		w:       w,
		l:       opts.X,
		palette: *p,
		pixels:  make([]color.NRGBA, opts.X),
	}, nil
}

func (d *Dev) String() string {
	return "Gauge"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors and ends the line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: d.l, Y: 1}}
}

// Draw implements display.Drawer. Only the first row of src is used.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		c := color.NRGBAModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y)).(color.NRGBA)
		c.A = 255
		d.pixels[x] = c
	}
	return d.refresh()
}

// Show draws a bar for the reading of a named sensor: the bar length is the
// humidity and its color follows the temperature.
func (d *Dev) Show(name string, e physic.Env) error {
	d.label = fmt.Sprintf(" %-12s %8s %9s", name, e.Temperature, e.Humidity)
	return d.Draw(d.Bounds(), Bar(d.l, HumidityFraction(e.Humidity), TemperatureColor(e.Temperature)), image.Point{})
}

func (d *Dev) refresh() error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\033[0m")
	for _, c := range d.pixels {
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m")
	_, _ = d.buf.WriteString(d.label)
	_ = d.buf.WriteByte('\n')
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Bar returns a width x 1 image with the first fraction of the pixels set to
// c and the rest black.
func Bar(width int, fraction float64, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, 1))
	n := int(math.Round(math.Max(0, math.Min(1, fraction)) * float64(width)))
	for x := range width {
		if x < n {
			img.Set(x, 0, c)
		} else {
			img.Set(x, 0, color.NRGBA{A: 255})
		}
	}
	return img
}

// HumidityFraction maps 0-100%rH to 0-1.
func HumidityFraction(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(100*physic.PercentRH)
}

// TemperatureColor maps -10°C (blue) through 15°C (green) to 40°C (red).
func TemperatureColor(t physic.Temperature) color.NRGBA {
	f := (t.Celsius() + 10) / 50
	f = math.Max(0, math.Min(1, f))
	if f < 0.5 {
		return color.NRGBA{G: uint8(510 * f), B: uint8(255 - 510*f), A: 255}
	}
	return color.NRGBA{R: uint8(510 * (f - 0.5)), G: uint8(255 - 510*(f-0.5)), A: 255}
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
