// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// DriveReader is the drive board side of a live source.
type DriveReader interface {
	NextReading() (DriveReading, error)
}

// YawRateReader is the gyro side of a live source.
type YawRateReader interface {
	YawRate() (float64, error)
}

// LiveSource pairs each drive controller reading with a gyro read taken as
// it arrives. Time and ticks are rebased on the first reading so the
// estimator's zero state matches the vehicle at start-up.
type LiveSource struct {
	drive DriveReader
	gyro  YawRateReader

	started bool
	t0      float64
	tick0   int64
}

// NewLiveSource builds a source over a drive board and a gyro.
func NewLiveSource(drive DriveReader, gyro YawRateReader) *LiveSource {
	return &LiveSource{drive: drive, gyro: gyro}
}

// Next blocks for the next drive reading. The first reading only sets the
// origin and is not returned.
func (s *LiveSource) Next() (odometry.Sample, error) {
	for {
		r, err := s.drive.NextReading()
		if err != nil {
			return odometry.Sample{}, err
		}
		rate, err := s.gyro.YawRate()
		if err != nil {
			return odometry.Sample{}, fmt.Errorf("live source: %w", err)
		}
		if !s.started {
			s.started = true
			s.t0, s.tick0 = r.Time, r.EncoderTicks
			continue
		}
		return odometry.Sample{
			Time:            r.Time - s.t0,
			SteeringAngle:   r.SteeringAngle,
			EncoderTicks:    r.EncoderTicks - s.tick0,
			AngularVelocity: rate,
		}, nil
	}
}
