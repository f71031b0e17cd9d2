// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry holds the JSON messages exchanged over MQTT and the web
// socket.
package telemetry

import (
	"math"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// PoseMessage is one pose estimate suitable for JSON and MQTT.
type PoseMessage struct {
	Time       float64 `json:"time"`        // s, sample time
	X          float64 `json:"x"`           // m
	Y          float64 `json:"y"`           // m
	Heading    float64 `json:"heading"`     // rad, unwrapped
	HeadingDeg float64 `json:"heading_deg"` // degrees, wrapped to (-180, 180]
	Motion     string  `json:"motion"`      // "stationary", "straight", "arc"
	WheelSpeed float64 `json:"wheel_speed"` // m/s
}

// SampleMessage is one raw sample as fed to the estimator.
type SampleMessage struct {
	Source string `json:"source"` // "live", "scenario:<name>", ...
	odometry.Sample
}

// NewPoseMessage builds the published form of an estimator update.
func NewPoseMessage(u odometry.Update) PoseMessage {
	p := u.State.Pose
	return PoseMessage{
		Time:       u.State.Time,
		X:          p.X,
		Y:          p.Y,
		Heading:    p.Heading,
		HeadingDeg: odometry.NormalizeHeading(p.Heading) * 180 / math.Pi,
		Motion:     u.Motion.String(),
		WheelSpeed: u.WheelSpeed,
	}
}

// Pose returns the pose carried by the message.
func (m PoseMessage) Pose() odometry.Pose {
	return odometry.Pose{X: m.X, Y: m.Y, Heading: m.Heading}
}
