// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

func TestNewPoseMessage(t *testing.T) {
	u := odometry.Update{
		State: odometry.State{
			Time:         2.5,
			EncoderTicks: 900,
			Pose:         odometry.Pose{X: 1.5, Y: -0.25, Heading: 2*math.Pi + math.Pi/2},
		},
		Motion:     odometry.Arc,
		WheelSpeed: 3.2,
	}

	m := NewPoseMessage(u)
	assert.Equal(t, 2.5, m.Time)
	assert.Equal(t, "arc", m.Motion)
	assert.Equal(t, 3.2, m.WheelSpeed)
	assert.InDelta(t, 90, m.HeadingDeg, 1e-9)
	assert.Equal(t, u.State.Pose, m.Pose())
}

func TestSampleMessageFlattensSample(t *testing.T) {
	msg := SampleMessage{
		Source: "scenario:line",
		Sample: odometry.Sample{Time: 0.5, SteeringAngle: 0.1, EncoderTicks: 42, AngularVelocity: -0.3},
	}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	assert.Equal(t, "scenario:line", fields["source"])
	assert.Equal(t, 42.0, fields["encoder_ticks"])
	assert.Equal(t, -0.3, fields["angular_velocity"])
}
