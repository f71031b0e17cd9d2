// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
	"github.com/relabs-tech/odometry_computer/internal/samplelog"
	"github.com/relabs-tech/odometry_computer/internal/scenario"
	"github.com/relabs-tech/odometry_computer/internal/sensors"
	"github.com/relabs-tech/odometry_computer/internal/telemetry"
	"github.com/relabs-tech/odometry_computer/internal/track"
)

type published struct {
	topic   string
	payload []byte
}

func newTestProducer(t *testing.T) (*poseProducer, *[]published) {
	t.Helper()
	est, err := odometry.NewEstimator(odometry.DefaultVehicle())
	require.NoError(t, err)

	var out []published
	p := &poseProducer{
		est:         est,
		source:      "test",
		topicPose:   "odometry/pose",
		topicSample: "odometry/sample",
		publish: func(topic string, payload []byte) error {
			out = append(out, published{topic, payload})
			return nil
		},
	}
	return p, &out
}

func TestProducerHandle(t *testing.T) {
	p, out := newTestProducer(t)
	var rec bytes.Buffer
	p.recorder = samplelog.NewRecorder(&rec)

	require.NoError(t, p.handle(odometry.Sample{Time: 0.1, EncoderTicks: 10}))
	require.NoError(t, p.handle(odometry.Sample{Time: 0.2, EncoderTicks: 20}))
	// Time going backwards is rejected but does not stop the producer.
	require.NoError(t, p.handle(odometry.Sample{Time: 0.15, EncoderTicks: 30}))

	assert.Equal(t, 2, p.accepted)
	assert.Equal(t, 1, p.rejected)

	topics := make([]string, len(*out))
	for i, m := range *out {
		topics[i] = m.topic
	}
	assert.Equal(t, []string{
		"odometry/sample", "odometry/pose",
		"odometry/sample", "odometry/pose",
		"odometry/sample",
	}, topics)

	var pose telemetry.PoseMessage
	require.NoError(t, json.Unmarshal((*out)[3].payload, &pose))
	assert.Equal(t, 0.2, pose.Time)
	assert.Equal(t, "straight", pose.Motion)
	assert.InDelta(t, 20*odometry.DefaultVehicle().MetersPerTick(), pose.X, 1e-12)
	assert.Equal(t, p.last, pose)

	var sample telemetry.SampleMessage
	require.NoError(t, json.Unmarshal((*out)[4].payload, &sample))
	assert.Equal(t, "test", sample.Source)
	assert.Equal(t, int64(30), sample.EncoderTicks)

	// Every sample is recorded, rejected ones included.
	src := samplelog.NewCSVSource(&rec)
	n := 0
	for {
		if _, err := src.Next(); err != nil {
			break
		}
		n++
	}
	assert.Equal(t, 3, n)
}

func TestProducerPublishError(t *testing.T) {
	in := odometry.Sample{Time: 0.1, SteeringAngle: 0.3, EncoderTicks: 100, AngularVelocity: 0.5}

	t.Run("sample topic down", func(t *testing.T) {
		p, out := newTestProducer(t)
		var rec bytes.Buffer
		p.recorder = samplelog.NewRecorder(&rec)
		ok := p.publish
		p.publish = func(topic string, payload []byte) error {
			if topic == p.topicSample {
				return errors.New("broker down")
			}
			return ok(topic, payload)
		}

		err := p.handle(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MQTT publish error (sample): broker down")

		// The estimate still advanced, matching what was recorded.
		assert.Equal(t, 1, p.accepted)
		assert.Equal(t, 0.1, p.est.State().Time)
		assert.Equal(t, int64(100), p.est.State().EncoderTicks)
		assert.NotZero(t, p.est.Pose().Heading)
		assert.Contains(t, rec.String(), "0.1,0.3,100,0.5")

		// The pose is published regardless.
		require.Len(t, *out, 1)
		assert.Equal(t, "odometry/pose", (*out)[0].topic)
	})

	t.Run("broker down", func(t *testing.T) {
		p, _ := newTestProducer(t)
		p.publish = func(string, []byte) error { return errors.New("broker down") }

		err := p.handle(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
		assert.Equal(t, 1, p.accepted)
		assert.Equal(t, 0.1, p.est.State().Time)

		// Later samples build on the earlier one.
		require.Error(t, p.handle(odometry.Sample{Time: 0.2, EncoderTicks: 200}))
		assert.Equal(t, 2, p.accepted)
		assert.Equal(t, int64(200), p.est.State().EncoderTicks)
	})
}

func TestStatusLine(t *testing.T) {
	pose := telemetry.PoseMessage{Time: 1.5, X: 2, Y: -1, HeadingDeg: 30, Motion: "arc", WheelSpeed: 4}
	in := odometry.Sample{SteeringAngle: 0.2, AngularVelocity: 0.1, EncoderTicks: 77}

	line := statusLine(pose, in, nil)
	assert.Contains(t, line, "x=2.000 y=-1.000 hdg=30.0°")
	assert.Contains(t, line, "ticks=77")
	assert.NotContains(t, line, "skipped")

	drive := sensors.NewDriveReader(strings.NewReader("$PODO,garbage*00\n" + sensors.FormatPODO(10, 5, 0) + "\n"))
	_, err := drive.NextReading()
	require.NoError(t, err)
	require.Equal(t, 1, drive.Skipped())
	assert.Contains(t, statusLine(pose, in, drive), "skipped lines=1")
}

func TestProducerWithoutSampleTopic(t *testing.T) {
	p, out := newTestProducer(t)
	p.topicSample = ""

	require.NoError(t, p.handle(odometry.Sample{Time: 0.1, EncoderTicks: 1}))
	require.Len(t, *out, 1)
	assert.Equal(t, "odometry/pose", (*out)[0].topic)
}

func TestFormatLines(t *testing.T) {
	line := formatPoseLine(telemetry.PoseMessage{X: 1.5, Y: -2, HeadingDeg: 90, Motion: "arc", WheelSpeed: 3})
	assert.Contains(t, line, "[POSE]")
	assert.Contains(t, line, "1.500")
	assert.Contains(t, line, "arc")

	line = formatSampleLine(telemetry.SampleMessage{
		Source: "live",
		Sample: odometry.Sample{Time: 1, EncoderTicks: 42},
	})
	assert.Contains(t, line, "ticks=      42")
	assert.Contains(t, line, "(live)")
}

func TestPoseHubAPI(t *testing.T) {
	hub := newPoseHub()
	srv := httptest.NewServer(hub.routes(""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/pose")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	want := telemetry.PoseMessage{Time: 1, X: 2, Y: 3, Motion: "straight"}
	hub.update(want)

	resp, err = http.Get(srv.URL + "/api/pose")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got telemetry.PoseMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, want, got)
}

func TestPoseHubWebsocket(t *testing.T) {
	hub := newPoseHub()
	first := telemetry.PoseMessage{Time: 1, X: 1}
	hub.update(first)

	srv := httptest.NewServer(hub.routes(""))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// The latest pose arrives on connect.
	var got telemetry.PoseMessage
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, first, got)

	// Registered before the first pose was written.
	assert.Equal(t, 1, hub.clientCount())

	next := telemetry.PoseMessage{Time: 2, X: 2, Motion: "arc"}
	hub.update(next)
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, next, got)

	// Closing the client unregisters it.
	conn.Close()
	require.Eventually(t, func() bool { return hub.clientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func litPixels(pix []byte) int {
	n := 0
	for _, b := range pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestRenderPose(t *testing.T) {
	waiting := renderPose(telemetry.PoseMessage{}, false)
	assert.Equal(t, displayWidth, waiting.Bounds().Dx())
	assert.Equal(t, displayHeight, waiting.Bounds().Dy())
	assert.Positive(t, litPixels(waiting.Pix))

	p := telemetry.PoseMessage{X: 12.5, Y: -3.25, HeadingDeg: 45, Motion: "arc", WheelSpeed: 7}
	img := renderPose(p, true)
	assert.Positive(t, litPixels(img.Pix))
	assert.NotEqual(t, waiting.Pix, img.Pix)

	lines := poseLines(p)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "12.50")
	assert.Contains(t, lines[1], "-3.25")
	assert.Contains(t, lines[2], "45.0")
	assert.Equal(t, "arc 7.0m/s", lines[3])

	assert.Positive(t, litPixels(renderSplash().Pix))
}

func TestWriteTrack(t *testing.T) {
	est, err := odometry.NewEstimator(odometry.DefaultVehicle())
	require.NoError(t, err)

	src := samplelog.NewSliceSource([]odometry.Sample{
		{Time: 0.1, EncoderTicks: 10},
		{Time: 0.1, EncoderTicks: 20}, // no time step, rejected
		{Time: 0.2, EncoderTicks: 20},
	})
	var buf bytes.Buffer
	stats, err := writeTrack(est, src, track.NewWriter(&buf, false))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)
	assert.InDelta(t, 20*odometry.DefaultVehicle().MetersPerTick(), stats.Final.X, 1e-12)
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 2)
}

func TestRunReplaySamples(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "samples.csv")
	out := filepath.Join(dir, "track.csv")

	var rec bytes.Buffer
	r := samplelog.NewRecorder(&rec)
	for _, s := range scenario.Line(odometry.DefaultVehicle()).Samples()[:50] {
		require.NoError(t, r.Record(s))
	}
	require.NoError(t, os.WriteFile(in, rec.Bytes(), 0o644))

	require.NoError(t, RunReplay(odometry.DefaultVehicle(), ReplayOptions{
		SamplesPath: in,
		OutPath:     out,
		WithHeading: true,
	}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, rows, 50)
	assert.Len(t, strings.Split(rows[0], ","), 3)
}

func TestRunReplayNeedsInput(t *testing.T) {
	err := RunReplay(odometry.DefaultVehicle(), ReplayOptions{OutPath: filepath.Join(t.TempDir(), "x.csv")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoder and gyro")
}

func TestRunScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RunScenarios(odometry.DefaultVehicle(), dir, []string{"line", "circle"}))

	for _, name := range []string{"line", "circle"} {
		data, err := os.ReadFile(filepath.Join(dir, name+".csv"))
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
	_, err := os.Stat(filepath.Join(dir, "figure8.csv"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, RunScenarios(odometry.DefaultVehicle(), dir, []string{"spiral"}))
}

func TestRunConsole(t *testing.T) {
	require.NoError(t, RunConsole(odometry.DefaultVehicle(), "line", 0))
	assert.Error(t, RunConsole(odometry.DefaultVehicle(), "spiral", 0))
	assert.Error(t, RunConsole(odometry.Vehicle{}, "line", 0))
}
