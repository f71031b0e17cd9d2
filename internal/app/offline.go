// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
	"github.com/relabs-tech/odometry_computer/internal/samplelog"
	"github.com/relabs-tech/odometry_computer/internal/scenario"
	"github.com/relabs-tech/odometry_computer/internal/track"
)

// ReplayOptions selects the input for an offline replay. Either SamplesPath
// or both EncoderPath and GyroPath must be set.
type ReplayOptions struct {
	EncoderPath string
	GyroPath    string
	Wean        samplelog.WeanOptions

	SamplesPath string

	OutPath     string
	WithHeading bool
}

// TrackStats summarizes one estimator run.
type TrackStats struct {
	Accepted int
	Rejected int
	Final    odometry.Pose
}

// writeTrack drains src through e and writes every accepted pose to tw.
// Rejected samples are logged and skipped.
func writeTrack(e *odometry.Estimator, src odometry.Source, tw *track.Writer) (TrackStats, error) {
	var stats TrackStats
	err := odometry.Run(e, src, func(in odometry.Sample, u *odometry.Update, err error) error {
		if err != nil {
			stats.Rejected++
			log.Printf("replay: sample at t=%.4f rejected: %v", in.Time, err)
			return nil
		}
		stats.Accepted++
		return tw.Write(u.State.Pose)
	})
	if err != nil {
		return stats, err
	}
	stats.Final = e.Pose()
	return stats, tw.Flush()
}

// openReplaySource returns the sample source and the file backing it, if the
// source streams from one.
func openReplaySource(opts ReplayOptions, v odometry.Vehicle) (odometry.Source, io.Closer, error) {
	if opts.SamplesPath != "" {
		f, err := os.Open(opts.SamplesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open samples: %w", err)
		}
		return samplelog.NewCSVSource(f), f, nil
	}

	if opts.EncoderPath == "" || opts.GyroPath == "" {
		return nil, nil, fmt.Errorf("replay needs a samples file or both encoder and gyro logs")
	}
	enc, err := os.Open(opts.EncoderPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open encoder log: %w", err)
	}
	defer enc.Close()
	gyro, err := os.Open(opts.GyroPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open gyro log: %w", err)
	}
	defer gyro.Close()

	l, err := samplelog.ReadWean(enc, gyro, opts.Wean)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("replay: loaded %d readings from %s", len(l.Time), opts.EncoderPath)
	return samplelog.NewSliceSource(l.Samples(v)), nil, nil
}

// RunReplay runs a recorded log through the estimator and writes the track.
func RunReplay(v odometry.Vehicle, opts ReplayOptions) error {
	est, err := odometry.NewEstimator(v)
	if err != nil {
		return err
	}
	src, in, err := openReplaySource(opts, v)
	if err != nil {
		return err
	}
	if in != nil {
		defer in.Close()
	}

	out, err := os.Create(opts.OutPath)
	if err != nil {
		return fmt.Errorf("create track: %w", err)
	}
	defer out.Close()

	stats, err := writeTrack(est, src, track.NewWriter(out, opts.WithHeading))
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	log.Printf("replay: wrote %d poses to %s (%d rejected), final x=%.3f y=%.3f heading=%.3f rad",
		stats.Accepted, opts.OutPath, stats.Rejected, stats.Final.X, stats.Final.Y, stats.Final.Heading)
	return nil
}

// RunScenarios writes <name>.csv into outDir for each named scenario, or for
// all of them when names is empty.
func RunScenarios(v odometry.Vehicle, outDir string, names []string) error {
	if len(names) == 0 {
		names = scenario.Names()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, name := range names {
		s, err := scenario.ByName(name, v)
		if err != nil {
			return err
		}
		est, err := odometry.NewEstimator(v)
		if err != nil {
			return err
		}

		path := filepath.Join(outDir, s.Name+".csv")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create track: %w", err)
		}
		stats, err := writeTrack(est, s.Source(), track.NewWriter(f, false))
		f.Close()
		if err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}

		log.Printf("scenarios: %-10s %5d poses -> %s, final x=%.4f y=%.4f heading=%.4f rad",
			s.Name, stats.Accepted, path, stats.Final.X, stats.Final.Y, stats.Final.Heading)
	}
	return nil
}
