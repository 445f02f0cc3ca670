// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gauge shows SCD30 readings on the terminal as a coloured CO2 bar
// using ANSI color codes, like the traffic light of a room CO2 monitor.
package gauge

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/GermanBionicSystems/scd30/scd30"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// CO2 thresholds in ppm for the bar colour.
const (
	Good     = 800
	Moderate = 1000
	Poor     = 1400
)

var (
	green  = color.NRGBA{0x00, 0xc0, 0x00, 0xff}
	yellow = color.NRGBA{0xff, 0xd0, 0x00, 0xff}
	orange = color.NRGBA{0xff, 0x80, 0x00, 0xff}
	red    = color.NRGBA{0xff, 0x00, 0x00, 0xff}
	unlit  = color.NRGBA{0x30, 0x30, 0x30, 0xff}
)

// Opts represents the options available for the gauge.
type Opts struct {
	// Width of the bar in characters. Default is 40.
	Width int
	// CO2 concentration of a full bar. Default is 2000 ppm.
	FullScale float32
	Palette   *ansi256.Palette

	_ struct{}
}

// Dev is a CO2 bar that outputs to a terminal.
type Dev struct {
	w         io.Writer
	width     int
	fullScale float32
	palette   *ansi256.Palette

	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	return NewWriter(colorable.NewColorableStdout(), opts)
}

// NewWriter returns a Dev that writes the escape sequences to w.
func NewWriter(w io.Writer, opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{w: w, width: opts.Width, fullScale: opts.FullScale, palette: opts.Palette}
	if d.width <= 0 {
		d.width = 40
	}
	if d.fullScale <= 0 {
		d.fullScale = 2000
	}
	if d.palette == nil {
		d.palette = ansi256.Default
	}
	return d
}

func (d *Dev) String() string {
	return "Gauge"
}

// Halt resets the terminal attributes and ends the line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Level returns the colour of the bar for a CO2 concentration.
func Level(ppm float32) color.NRGBA {
	switch {
	case ppm < Good:
		return green
	case ppm < Moderate:
		return yellow
	case ppm < Poor:
		return orange
	default:
		return red
	}
}

// Lit returns how many cells of the bar are lit for ppm.
func (d *Dev) Lit(ppm float32) int {
	if ppm <= 0 {
		return 0
	}
	n := int(ppm / d.fullScale * float32(d.width))
	if n > d.width {
		n = d.width
	}
	return n
}

// Show redraws the current line with the reading.
func (d *Dev) Show(m scd30.Measurement) error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	lit := d.Lit(m.CO2)
	c := Level(m.CO2)
	for i := 0; i < d.width; i++ {
		if i < lit {
			_, _ = io.WriteString(&d.buf, d.palette.Block(c))
		} else {
			_, _ = io.WriteString(&d.buf, d.palette.Block(unlit))
		}
	}
	_, _ = fmt.Fprintf(&d.buf, "\033[0m %6.0f ppm %5.1f°C %5.1f%%rH ", m.CO2, m.Temperature, m.Humidity)
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ fmt.Stringer = &Dev{}
