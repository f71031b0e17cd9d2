// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scenario generates synthetic driving profiles at constant wheel
// speed. Each profile is a list of segments with fixed steering and yaw rate,
// sampled at a fixed interval.
package scenario

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// Segment is a run of samples with constant steering and yaw rate.
type Segment struct {
	Steps           int
	SteeringAngle   float64 // rad
	AngularVelocity float64 // rad/s
}

// Scenario is a complete synthetic profile.
type Scenario struct {
	Name         string
	Interval     float64 // s between samples
	TicksPerStep int64
	Segments     []Segment
}

// Len is the number of samples in the profile.
func (s Scenario) Len() int {
	n := 0
	for _, seg := range s.Segments {
		n += seg.Steps
	}
	return n
}

// Duration is the sample time of the last sample.
func (s Scenario) Duration() float64 {
	return float64(s.Len()) * s.Interval
}

// Samples materializes the whole profile. Sample i (from 1) is at time
// i*Interval with i*TicksPerStep cumulative ticks.
func (s Scenario) Samples() []odometry.Sample {
	out := make([]odometry.Sample, 0, s.Len())
	src := s.Source()
	for {
		in, err := src.Next()
		if err != nil {
			return out
		}
		out = append(out, in)
	}
}

// Source returns a fresh odometry.Source over the profile.
func (s Scenario) Source() *Source {
	return &Source{scenario: s}
}

// Source replays a Scenario sample by sample.
type Source struct {
	scenario Scenario
	segment  int
	inSeg    int
	step     int
}

// Next returns the next sample, or io.EOF after the last one.
func (src *Source) Next() (odometry.Sample, error) {
	segs := src.scenario.Segments
	for src.segment < len(segs) && src.inSeg >= segs[src.segment].Steps {
		src.segment++
		src.inSeg = 0
	}
	if src.segment >= len(segs) {
		return odometry.Sample{}, io.EOF
	}
	seg := segs[src.segment]
	src.inSeg++
	src.step++

	return odometry.Sample{
		Time:            float64(src.step) * src.scenario.Interval,
		SteeringAngle:   seg.SteeringAngle,
		EncoderTicks:    int64(src.step) * src.scenario.TicksPerStep,
		AngularVelocity: seg.AngularVelocity,
	}, nil
}

// ticksPerStep is the whole number of ticks the wheel turns at speed over
// one interval. The fraction is dropped, so the realized speed is slightly
// lower than requested.
func ticksPerStep(v odometry.Vehicle, speed, interval float64) int64 {
	return int64(speed / (2 * math.Pi * v.WheelRadius) * float64(v.TicksPerRev) * interval)
}

// yawRate is the rotation rate of a front-wheel-driven bicycle model at the
// given front wheel speed and steering angle.
func yawRate(v odometry.Vehicle, speed, steering float64) float64 {
	return speed * math.Sin(steering) / v.AxleLength
}

// Line drives straight at 5 m/s for one second.
func Line(v odometry.Vehicle) Scenario {
	const (
		speed    = 5.0
		interval = 0.001
	)
	return Scenario{
		Name:         "line",
		Interval:     interval,
		TicksPerStep: ticksPerStep(v, speed, interval),
		Segments:     []Segment{{Steps: 1000}},
	}
}

// Circle drives one full left circle at 5 m/s with 30° of steering.
func Circle(v odometry.Vehicle) Scenario {
	s := circleProfile(v)
	s.Name = "circle"
	return s
}

// Figure8 drives a left circle then a right circle.
func Figure8(v odometry.Vehicle) Scenario {
	s := circleProfile(v)
	left := s.Segments[0]
	s.Name = "figure8"
	s.Segments = append(s.Segments, Segment{
		Steps:           left.Steps,
		SteeringAngle:   -left.SteeringAngle,
		AngularVelocity: -left.AngularVelocity,
	})
	return s
}

func circleProfile(v odometry.Vehicle) Scenario {
	const speed = 5.0
	steering := 30 * math.Pi / 180
	omega := yawRate(v, speed, steering)
	interval := 2 * math.Pi / omega / 1000
	return Scenario{
		Interval:     interval,
		TicksPerStep: ticksPerStep(v, speed, interval),
		Segments:     []Segment{{Steps: 1000, SteeringAngle: steering, AngularVelocity: omega}},
	}
}

// Racetrack alternates half a second of straight driving with left half
// circles at 7 m/s and 45° of steering, twice.
func Racetrack(v odometry.Vehicle) Scenario {
	const speed = 7.0
	steering := 45 * math.Pi / 180
	omega := yawRate(v, speed, steering)
	interval := 2 * math.Pi / omega / 100
	turn := Segment{
		Steps:           int(math.Round(math.Pi / omega / interval)),
		SteeringAngle:   steering,
		AngularVelocity: omega,
	}
	straight := Segment{Steps: int(0.5 / interval)}

	return Scenario{
		Name:         "racetrack",
		Interval:     interval,
		TicksPerStep: ticksPerStep(v, speed, interval),
		Segments:     []Segment{straight, turn, straight, turn},
	}
}

var builders = map[string]func(odometry.Vehicle) Scenario{
	"line":      Line,
	"circle":    Circle,
	"figure8":   Figure8,
	"racetrack": Racetrack,
}

// Names lists the built-in profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName builds a built-in profile for the given vehicle.
func ByName(name string, v odometry.Vehicle) (Scenario, error) {
	build, ok := builders[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q (have %v)", name, Names())
	}
	return build(v), nil
}
