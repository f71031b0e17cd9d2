// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package samplelog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// WeanOptions selects the window read from a Wean Hall dataset pair.
type WeanOptions struct {
	// SkipEncoderLines drops this many encoder lines before the first one
	// used as the time and tick origin.
	SkipEncoderLines int
	// MaxSamples bounds the number of readings after the origin (0 = all).
	MaxSamples int
}

// DefaultWeanOptions reads the middle section of the dataset used for the
// reference runs.
func DefaultWeanOptions() WeanOptions {
	return WeanOptions{SkipEncoderLines: 20000, MaxSamples: 4404}
}

// Log is a replayable drive log: timestamps and ticks relative to the first
// reading, and yaw rates in rad/s. The steering angle is not logged.
type Log struct {
	Time            []float64
	Ticks           []int64
	AngularVelocity []float64
}

// ReadWean parses a Wean Hall encoder log ("<time> <ticks> ...") and gyro
// log (one comment line, then "<time> <temp> <rate deg/s> ...").
func ReadWean(encoder, gyro io.Reader, opts WeanOptions) (*Log, error) {
	l := &Log{}

	enc := bufio.NewScanner(encoder)
	for i := 0; i < opts.SkipEncoderLines; i++ {
		if !enc.Scan() {
			return nil, fmt.Errorf("encoder log: only %d lines, need more than %d", i, opts.SkipEncoderLines)
		}
	}

	var t0 float64
	var tick0 int64
	line := opts.SkipEncoderLines
	for enc.Scan() {
		line++
		fields := strings.Fields(enc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("encoder log line %d: want time and ticks, got %q", line, enc.Text())
		}
		ts, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("encoder log line %d: time: %w", line, err)
		}
		ticks, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("encoder log line %d: ticks: %w", line, err)
		}
		if len(l.Time) == 0 {
			t0, tick0 = ts, ticks
		}
		l.Time = append(l.Time, ts-t0)
		l.Ticks = append(l.Ticks, ticks-tick0)
		if opts.MaxSamples > 0 && len(l.Time) > opts.MaxSamples {
			break
		}
	}
	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("encoder log: %w", err)
	}
	if len(l.Time) == 0 {
		return nil, fmt.Errorf("encoder log: no readings after line %d", opts.SkipEncoderLines)
	}

	gyr := bufio.NewScanner(gyro)
	gyr.Scan() // header comment
	line = 1
	for gyr.Scan() {
		line++
		fields := strings.Fields(gyr.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("gyro log line %d: want time, temperature and rate, got %q", line, gyr.Text())
		}
		rate, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("gyro log line %d: rate: %w", line, err)
		}
		l.AngularVelocity = append(l.AngularVelocity, rate*math.Pi/180)
		if opts.MaxSamples > 0 && len(l.AngularVelocity) >= opts.MaxSamples {
			break
		}
	}
	if err := gyr.Err(); err != nil {
		return nil, fmt.Errorf("gyro log: %w", err)
	}

	return l, nil
}

// Samples turns the log into estimator input. The encoder and gyro are
// paired by index. The origin reading is skipped since it matches the
// estimator's initial state. With no steering sensor in the log, the angle
// is recovered from the yaw rate: sin(steering) = rate*axle/speed while the
// wheel moves forward, zero otherwise.
func (l *Log) Samples(v odometry.Vehicle) []odometry.Sample {
	n := len(l.Time)
	if len(l.AngularVelocity) < n {
		n = len(l.AngularVelocity)
	}
	if n < 2 {
		return nil
	}

	out := make([]odometry.Sample, 0, n-1)
	for i := 1; i < n; i++ {
		dt := l.Time[i] - l.Time[i-1]
		dTicks := l.Ticks[i] - l.Ticks[i-1]
		omega := l.AngularVelocity[i]

		var steering float64
		if dTicks > 0 && dt > 0 {
			speed := odometry.WheelSpeed(v, dt, dTicks)
			steering = math.Asin(clamp(omega*v.AxleLength/speed, -1, 1))
		}
		out = append(out, odometry.Sample{
			Time:            l.Time[i],
			SteeringAngle:   steering,
			EncoderTicks:    l.Ticks[i],
			AngularVelocity: omega,
		})
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
