// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package track

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	require.NoError(t, w.Write(odometry.Pose{X: 0.5, Y: 0, Heading: 1}))
	require.NoError(t, w.Write(odometry.Pose{X: 1.25, Y: -2, Heading: 1}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "0.5,0\n1.25,-2\n", buf.String())
	assert.Equal(t, 2, w.Rows())
}

func TestWriterWithHeading(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	require.NoError(t, w.Write(odometry.Pose{X: 1, Y: 2, Heading: 0.125}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "1,2,0.125\n", buf.String())
}
