// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"fmt"
	"math"
)

// Motion is the kinematic model selected for one sample interval.
type Motion int

const (
	// Stationary: the drive wheel did not turn.
	Stationary Motion = iota
	// Straight: translation along the current heading.
	Straight
	// Arc: travel along a circle set by the steering geometry.
	Arc
)

func (m Motion) String() string {
	switch m {
	case Stationary:
		return "stationary"
	case Straight:
		return "straight"
	case Arc:
		return "arc"
	default:
		return fmt.Sprintf("Motion(%d)", int(m))
	}
}

// WheelSpeed converts a tick delta over deltaTime seconds into a signed
// wheel rim speed in m/s. deltaTime must be non-zero.
func WheelSpeed(v Vehicle, deltaTime float64, deltaTicks int64) float64 {
	return v.MetersPerTick() * float64(deltaTicks) / deltaTime
}

// Classify picks the motion model for an interval. Order matters: a still
// wheel wins over everything, and a zero reading on either the gyro or the
// steering sensor means straight travel. The straight branch is what keeps
// tan(0) out of the arc formula.
func Classify(v Vehicle, wheelSpeed, steeringAngle, angularVelocity float64) Motion {
	switch {
	case wheelSpeed == 0:
		return Stationary
	case angularVelocity == 0 || math.Abs(steeringAngle) <= v.SteeringDeadband:
		return Straight
	default:
		return Arc
	}
}

// Integrate returns the pose delta (dx, dy, dtheta) for one interval of the
// given motion, starting at heading.
func Integrate(m Motion, v Vehicle, heading, deltaTime, wheelSpeed, steeringAngle, angularVelocity float64) Pose {
	switch m {
	case Straight:
		dist := wheelSpeed * deltaTime
		return Pose{
			X: dist * math.Cos(heading),
			Y: dist * math.Sin(heading),
		}
	case Arc:
		dtheta := deltaTime * angularVelocity
		radius := v.AxleLength / math.Tan(steeringAngle)
		return Pose{
			X:       radius * (math.Sin(heading+dtheta) - math.Sin(heading)),
			Y:       radius * (-math.Cos(heading+dtheta) + math.Cos(heading)),
			Heading: dtheta,
		}
	default:
		return Pose{}
	}
}

// Update is the outcome of folding one sample into a state.
type Update struct {
	State      State
	Motion     Motion
	WheelSpeed float64
	Delta      Pose
}

// Advance folds one sample into s and returns the next state. It does not
// modify s. Samples that do not move time forward or carry non-finite values
// are rejected.
func Advance(v Vehicle, s State, in Sample) (Update, error) {
	if !in.finite() {
		return Update{State: s}, ErrNonFiniteSample
	}
	deltaTime := in.Time - s.Time
	if !(deltaTime > 0) {
		return Update{State: s}, fmt.Errorf("%w: t=%v after t=%v", ErrNonPositiveInterval, in.Time, s.Time)
	}
	deltaTicks := in.EncoderTicks - s.EncoderTicks

	speed := WheelSpeed(v, deltaTime, deltaTicks)
	m := Classify(v, speed, in.SteeringAngle, in.AngularVelocity)
	d := Integrate(m, v, s.Pose.Heading, deltaTime, speed, in.SteeringAngle, in.AngularVelocity)

	return Update{
		State: State{
			Time:         in.Time,
			EncoderTicks: in.EncoderTicks,
			Pose:         s.Pose.Add(d),
		},
		Motion:     m,
		WheelSpeed: speed,
		Delta:      d,
	}, nil
}
