// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/scd30/gauge"
	"github.com/GermanBionicSystems/scd30/scd30"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	chartWidth  = 640
	chartHeight = 240
	margin      = 40
)

type sample struct {
	t time.Time
	m scd30.Measurement
}

var labelFont *truetype.Font

func init() {
	var err error
	if labelFont, err = truetype.Parse(goregular.TTF); err != nil {
		panic(err)
	}
}

// drawChart plots the CO2 series with the gauge thresholds as dashed lines.
func drawChart(samples []sample) (*gg.Context, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples to draw")
	}
	top := float64(2000)
	for _, s := range samples {
		if v := float64(s.m.CO2); v > top {
			top = v
		}
	}
	start := samples[0].t
	span := samples[len(samples)-1].t.Sub(start).Seconds()
	if span <= 0 {
		span = 1
	}
	plotW := float64(chartWidth - 2*margin)
	plotH := float64(chartHeight - 2*margin)
	x := func(t time.Time) float64 { return margin + t.Sub(start).Seconds()/span*plotW }
	y := func(ppm float64) float64 { return chartHeight - margin - ppm/top*plotH }

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: 11}))

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, margin, margin, chartHeight-margin)
	dc.DrawLine(margin, chartHeight-margin, chartWidth-margin, chartHeight-margin)
	dc.Stroke()

	dc.SetDash(4, 4)
	for _, lvl := range []float64{gauge.Good, gauge.Moderate, gauge.Poor} {
		dc.SetColor(gauge.Level(float32(lvl)))
		dc.DrawLine(margin, y(lvl), chartWidth-margin, y(lvl))
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", lvl), margin-4, y(lvl), 1, 0.5)
	}
	dc.SetDash()

	dc.SetRGB(0, 0, 0.8)
	dc.SetLineWidth(2)
	for i, s := range samples {
		if i == 0 {
			dc.MoveTo(x(s.t), y(float64(s.m.CO2)))
		} else {
			dc.LineTo(x(s.t), y(float64(s.m.CO2)))
		}
	}
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	last := samples[len(samples)-1].m
	dc.DrawString(fmt.Sprintf("CO2 ppm, %d samples over %s, last %.0f ppm %.1f°C %.1f%%rH",
		len(samples), time.Duration(span*float64(time.Second)).Round(time.Second), last.CO2, last.Temperature, last.Humidity),
		margin, margin-12)
	return dc, nil
}

func saveChart(path string, samples []sample) error {
	dc, err := drawChart(samples)
	if err != nil {
		return err
	}
	return dc.SavePNG(path)
}
