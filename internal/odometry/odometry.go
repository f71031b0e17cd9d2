// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package odometry estimates the planar pose of a three-wheeled, front-steered,
// rear-driven vehicle by dead reckoning from drive-wheel encoder ticks, the
// steering angle and the gyroscope yaw rate.
package odometry

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNonPositiveInterval is returned when a sample is not strictly later
	// than the last accepted one. Wheel speed is undefined for such a pair.
	ErrNonPositiveInterval = errors.New("odometry: sample time does not advance")

	// ErrNonFiniteSample is returned when a sample carries NaN or Inf.
	ErrNonFiniteSample = errors.New("odometry: non-finite sample value")

	// ErrInvalidVehicle is returned by NewEstimator for unusable geometry.
	ErrInvalidVehicle = errors.New("odometry: invalid vehicle parameters")
)

// Vehicle holds the fixed physical constants of the platform.
type Vehicle struct {
	WheelRadius float64 // m
	TicksPerRev int64   // encoder ticks per wheel revolution
	AxleLength  float64 // m, front wheel contact point to rear axle

	// SteeringDeadband is the steering magnitude (rad) at or below which the
	// vehicle is treated as driving straight. Zero keeps the exact-zero test.
	SteeringDeadband float64
}

// DefaultVehicle returns the reference platform: 0.2 m wheel, 512 ticks per
// revolution, 1 m from front wheel to rear axle.
func DefaultVehicle() Vehicle {
	return Vehicle{
		WheelRadius: 0.2,
		TicksPerRev: 512,
		AxleLength:  1.0,
	}
}

// Validate reports whether the vehicle geometry can be used for estimation.
func (v Vehicle) Validate() error {
	switch {
	case !(v.WheelRadius > 0) || math.IsInf(v.WheelRadius, 0):
		return fmt.Errorf("%w: wheel radius %v", ErrInvalidVehicle, v.WheelRadius)
	case v.TicksPerRev <= 0:
		return fmt.Errorf("%w: ticks per revolution %d", ErrInvalidVehicle, v.TicksPerRev)
	case !(v.AxleLength > 0) || math.IsInf(v.AxleLength, 0):
		return fmt.Errorf("%w: axle length %v", ErrInvalidVehicle, v.AxleLength)
	case !(v.SteeringDeadband >= 0) || math.IsInf(v.SteeringDeadband, 0):
		return fmt.Errorf("%w: steering deadband %v", ErrInvalidVehicle, v.SteeringDeadband)
	}
	return nil
}

// MetersPerTick is the distance travelled by the wheel rim for one tick.
func (v Vehicle) MetersPerTick() float64 {
	return 2 * math.Pi * v.WheelRadius / float64(v.TicksPerRev)
}

// Sample is one timestamped set of sensor readings, already in SI units.
type Sample struct {
	Time            float64 `json:"time"`             // s
	SteeringAngle   float64 `json:"steering_angle"`   // rad, positive turns left
	EncoderTicks    int64   `json:"encoder_ticks"`    // cumulative
	AngularVelocity float64 `json:"angular_velocity"` // rad/s, positive is counter-clockwise
}

func (s Sample) finite() bool {
	for _, f := range []float64{s.Time, s.SteeringAngle, s.AngularVelocity} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Pose is a planar position and heading. Heading is measured
// counter-clockwise from the initial heading and is not wrapped.
type Pose struct {
	X       float64 `json:"x"`       // m
	Y       float64 `json:"y"`       // m
	Heading float64 `json:"heading"` // rad
}

// Add returns p displaced by d.
func (p Pose) Add(d Pose) Pose {
	return Pose{X: p.X + d.X, Y: p.Y + d.Y, Heading: p.Heading + d.Heading}
}

// State is everything the estimator carries between samples. The zero value
// is the initial state: time 0, no ticks, at the origin facing heading 0.
type State struct {
	Time         float64
	EncoderTicks int64
	Pose         Pose
}

// NormalizeHeading wraps an angle into (-pi, pi].
func NormalizeHeading(rad float64) float64 {
	a := math.Mod(rad, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
