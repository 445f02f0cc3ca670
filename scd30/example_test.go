//go:build examples
// +build examples

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30_test

import (
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/scd30/scd30"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	dev, err := scd30.NewI2C(bus, scd30.DefaultAddress, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := dev.SetMeasurementInterval(2); err != nil {
		log.Fatal(err)
	}
	if err := dev.TriggerContinuous(); err != nil {
		log.Fatal(err)
	}
	for {
		ready, err := dev.DataReady()
		if err != nil {
			log.Fatal(err)
		}
		if ready {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	env := scd30.Env{}
	if err := dev.Sense(&env); err != nil {
		log.Fatal(err)
	}
	fmt.Println(env.String())
}
