// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/odometry_computer/internal/app"
	"github.com/relabs-tech/odometry_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "", "optional configuration file for the vehicle geometry")
	outDir := flag.String("out", ".", "directory for the <scenario>.csv tracks")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	// Remaining arguments name the scenarios to run; none runs them all.
	if err := app.RunScenarios(cfg.Vehicle(), *outDir, flag.Args()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
