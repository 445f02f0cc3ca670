// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// scd30 reads CO2, temperature and humidity from a Sensirion SCD30.
//
// Usage:
//
//	scd30 [-config scd30.yaml] [-bus name] [-interval s] [-n count] [-gauge] [-chart out.png]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/GermanBionicSystems/scd30/gauge"
	"github.com/GermanBionicSystems/scd30/scd30"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// sensor is the part of *scd30.Dev the polling loop uses.
type sensor interface {
	DataReady() (bool, error)
	ReadMeasurement() (scd30.Measurement, error)
}

func configure(dev *scd30.Dev, s *SensorConfig) error {
	v, err := dev.FirmwareVersion()
	if err != nil {
		return err
	}
	log.Printf("scd30 firmware %d.%d", v>>8, v&0xff)
	if err := dev.SetMeasurementInterval(s.Interval); err != nil {
		return err
	}
	if s.Altitude != nil {
		if err := dev.SetAltitude(*s.Altitude); err != nil {
			return err
		}
	}
	if s.TemperatureOffset != nil {
		if err := dev.SetTemperatureOffset(*s.TemperatureOffset); err != nil {
			return err
		}
	}
	if s.SelfCalibration != nil {
		if err := dev.SetSelfCalibration(*s.SelfCalibration); err != nil {
			return err
		}
	}
	return dev.StartContinuous(physic.Pressure(s.Pressure) * 100 * physic.Pascal)
}

// poll waits for each measurement and hands it to show until count readings
// were taken or stop is closed. Failed commands are logged and retried after
// retry.
func poll(dev sensor, count int, ready, retry time.Duration, stop <-chan struct{}, show func(scd30.Measurement) error) []sample {
	var samples []sample
	wait := func(d time.Duration) bool {
		select {
		case <-stop:
			return false
		case <-time.After(d):
			return true
		}
	}
	for count == 0 || len(samples) < count {
		ok, err := dev.DataReady()
		if err != nil {
			log.Printf("data ready: %v, waiting %s", err, retry)
			if !wait(retry) {
				break
			}
			continue
		}
		if !ok {
			if !wait(ready) {
				break
			}
			continue
		}
		m, err := dev.ReadMeasurement()
		if err != nil {
			log.Printf("read measurement: %v, waiting %s", err, retry)
			if !wait(retry) {
				break
			}
			continue
		}
		samples = append(samples, sample{t: time.Now(), m: m})
		if err := show(m); err != nil {
			log.Print(err)
		}
	}
	return samples
}

func mainImpl() error {
	cfgPath := flag.String("config", "", "YAML configuration file")
	busName := flag.String("bus", "", "I²C bus to use")
	interval := flag.Int("interval", 0, "measurement interval in seconds")
	count := flag.Int("n", -1, "number of readings, 0 for no limit")
	useGauge := flag.Bool("gauge", false, "draw a coloured bar")
	chart := flag.String("chart", "", "write a PNG chart of the readings on exit")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	cfg, err := Load(*cfgPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bus":
			cfg.Bus = *busName
		case "interval":
			cfg.Sensor.Interval = uint16(*interval)
		case "n":
			cfg.Poll.Count = *count
		case "gauge":
			cfg.Gauge = *useGauge
		case "chart":
			cfg.Chart = *chart
		}
	})
	if err := Validate(cfg); err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	dev, closer, err := scd30.Open(cfg.Bus, cfg.Sensor.opts())
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := configure(dev, &cfg.Sensor); err != nil {
		return err
	}
	defer func() {
		if err := dev.Halt(); err != nil {
			log.Print(err)
		}
	}()

	show := func(m scd30.Measurement) error {
		_, err := fmt.Printf("CO2: %.1f ppm Temperature: %.2f°C Humidity: %.2f%%rH\n", m.CO2, m.Temperature, m.Humidity)
		return err
	}
	if cfg.Gauge {
		g := gauge.New(nil)
		defer g.Halt()
		show = g.Show
	}

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		close(stop)
	}()

	samples := poll(dev, cfg.Poll.Count,
		time.Duration(cfg.Poll.ReadyDelayMs)*time.Millisecond,
		time.Duration(cfg.Poll.RetryDelayMs)*time.Millisecond,
		stop, show)
	if cfg.Chart != "" && len(samples) != 0 {
		if err := saveChart(cfg.Chart, samples); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "scd30: %s.\n", err)
		os.Exit(1)
	}
}
