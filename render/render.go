// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render draws a summary panel of sensor readings, for e-paper and
// OLED displays or for a PNG file served by a web page.
package render

import (
	"fmt"
	"image"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
)

// Row is one sensor line of the panel.
type Row struct {
	Name        string
	Temperature physic.Temperature
	Humidity    physic.RelativeHumidity
	// Err replaces the values when the last read failed.
	Err error
}

func (r *Row) text() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Name, r.Err)
	}
	return fmt.Sprintf("%s  %.1f°C  %.1f%%", r.Name, r.Temperature.Celsius(),
		float64(r.Humidity)/float64(physic.PercentRH))
}

// Panel renders rows on a black on white canvas.
type Panel struct {
	w, h  int
	title font.Face
	body  font.Face
	now   func() time.Time
}

// NewPanel returns a panel of w x h pixels.
func NewPanel(w, h int) (*Panel, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: invalid size %dx%d", w, h)
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	size := float64(h) / 8
	return &Panel{
		w:     w,
		h:     h,
		title: truetype.NewFace(f, &truetype.Options{Size: size * 1.2}),
		body:  truetype.NewFace(f, &truetype.Options{Size: size}),
		now:   time.Now,
	}, nil
}

// Bounds returns the size of the rendered image.
func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.w, p.h)
}

// Render draws the rows under a time stamp header. Rows that do not fit are
// dropped.
func (p *Panel) Render(rows []Row) image.Image {
	dc := gg.NewContext(p.w, p.h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)

	padding := 4.0
	dc.SetFontFace(p.title)
	header := p.now().Format("2006-01-02 15:04")
	_, th := dc.MeasureString(header)
	y := padding + th
	dc.DrawString(header, padding, y)
	y += padding
	dc.DrawLine(padding, y, float64(p.w)-padding, y)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.SetFontFace(p.body)
	for ix := range rows {
		_, lh := dc.MeasureString(rows[ix].Name)
		if y+lh+padding > float64(p.h) {
			break
		}
		y += lh + padding
		dc.DrawString(rows[ix].text(), padding, y)
	}
	return dc.Image()
}

// Draw renders rows and sends them to a display.
func (p *Panel) Draw(d display.Drawer, rows []Row) error {
	return d.Draw(d.Bounds(), p.Render(rows), image.Point{})
}

// SavePNG renders rows to a PNG file.
func (p *Panel) SavePNG(path string, rows []Row) error {
	if err := gg.SavePNG(path, p.Render(rows)); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
