// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/odometry_computer/internal/app"
	"github.com/relabs-tech/odometry_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "", "optional configuration file for the vehicle geometry")
	name := flag.String("scenario", "racetrack", "scenario to drive: line, circle, figure8, racetrack")
	interval := flag.Duration("interval", 10*time.Millisecond, "delay between samples (0 = as fast as possible)")
	flag.Parse()

	log.Println("starting odometry-computer (local console)")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if err := app.RunConsole(cfg.Vehicle(), *name, *interval); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
