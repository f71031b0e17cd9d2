// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Replays a recorded drive through the pose estimator and writes the track
// as CSV. Input is either a sample CSV (as written by the producer with
// SAMPLE_RECORD_PATH) or a Wean Hall encoder/gyro log pair.
//
// Run:
//
//	go run ./cmd/replay -samples samples.csv -out track.csv
//	go run ./cmd/replay -encoder enc.log -gyro gyro.log -out odometry.csv
package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/odometry_computer/internal/app"
	"github.com/relabs-tech/odometry_computer/internal/config"
	"github.com/relabs-tech/odometry_computer/internal/samplelog"
)

func main() {
	def := samplelog.DefaultWeanOptions()

	configPath := flag.String("config", "", "optional configuration file for the vehicle geometry")
	samples := flag.String("samples", "", "sample CSV to replay")
	encoder := flag.String("encoder", "", "Wean Hall encoder log")
	gyro := flag.String("gyro", "", "Wean Hall gyro log")
	skip := flag.Int("skip", def.SkipEncoderLines, "encoder lines to skip before the origin")
	maxSamples := flag.Int("max", def.MaxSamples, "readings to use after the origin (0 = all)")
	out := flag.String("out", "odometry.csv", "track CSV to write")
	heading := flag.Bool("heading", false, "add a heading column to the track")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	opts := app.ReplayOptions{
		EncoderPath: *encoder,
		GyroPath:    *gyro,
		Wean:        samplelog.WeanOptions{SkipEncoderLines: *skip, MaxSamples: *maxSamples},
		SamplesPath: *samples,
		OutPath:     *out,
		WithHeading: *heading,
	}
	if err := app.RunReplay(cfg.Vehicle(), opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
