// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/odometry_computer/internal/config"
	"github.com/relabs-tech/odometry_computer/internal/odometry"
	"github.com/relabs-tech/odometry_computer/internal/samplelog"
	"github.com/relabs-tech/odometry_computer/internal/scenario"
	"github.com/relabs-tech/odometry_computer/internal/sensors"
	"github.com/relabs-tech/odometry_computer/internal/telemetry"
)

// publishFunc sends one retained payload to a topic.
type publishFunc func(topic string, payload []byte) error

func mqttPublisher(client mqtt.Client) publishFunc {
	return func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, true, payload)
		token.Wait()
		return token.Error()
	}
}

// poseProducer folds samples into the estimator, publishes each sample and
// the resulting pose, and optionally records the samples.
type poseProducer struct {
	est         *odometry.Estimator
	source      string
	topicPose   string
	topicSample string
	publish     publishFunc
	recorder    *samplelog.Recorder

	accepted int
	rejected int
	last     telemetry.PoseMessage
}

// handle processes one sample. The estimate never depends on the broker:
// the sample is applied first and then published. Estimator rejections are
// logged and counted; the first publish failure is returned.
func (p *poseProducer) handle(in odometry.Sample) error {
	if p.recorder != nil {
		if err := p.recorder.Record(in); err != nil {
			log.Printf("sample record error: %v", err)
		}
	}

	u, applyErr := p.est.Apply(in)
	if applyErr != nil {
		p.rejected++
		log.Printf("sample at t=%.4f rejected: %v", in.Time, applyErr)
	} else {
		p.accepted++
		p.last = telemetry.NewPoseMessage(u)
	}

	var pubErr error
	if p.topicSample != "" {
		payload, err := json.Marshal(telemetry.SampleMessage{Source: p.source, Sample: in})
		if err != nil {
			log.Printf("json marshal error (sample): %v", err)
		} else if err := p.publish(p.topicSample, payload); err != nil {
			pubErr = fmt.Errorf("MQTT publish error (sample): %w", err)
		}
	}

	if applyErr != nil {
		return pubErr
	}

	payload, err := json.Marshal(p.last)
	if err != nil {
		log.Printf("json marshal error (pose): %v", err)
		return pubErr
	}
	if err := p.publish(p.topicPose, payload); err != nil && pubErr == nil {
		pubErr = fmt.Errorf("MQTT publish error (pose): %w", err)
	}
	return pubErr
}

// skipCounter is implemented by sources that drop unparsable input.
type skipCounter interface {
	Skipped() int
}

// statusLine is the periodic producer log line. sc may be nil.
func statusLine(p telemetry.PoseMessage, in odometry.Sample, sc skipCounter) string {
	line := fmt.Sprintf("t=%.3fs pose x=%.3f y=%.3f hdg=%.1f° | %s v=%.2fm/s | steer=%.3f gyro=%.3f ticks=%d",
		p.Time, p.X, p.Y, p.HeadingDeg,
		p.Motion, p.WheelSpeed,
		in.SteeringAngle, in.AngularVelocity, in.EncoderTicks,
	)
	if sc != nil {
		line += fmt.Sprintf(" | skipped lines=%d", sc.Skipped())
	}
	return line
}

// openSource builds the configured sample source. The returned closer is
// never nil.
func openSource(cfg *config.Config, v odometry.Vehicle) (odometry.Source, string, io.Closer, error) {
	switch cfg.SampleSource {
	case config.SourceLive:
		drive, err := sensors.OpenDriveController(cfg.DriveSerialPort, cfg.DriveBaudRate)
		if err != nil {
			return nil, "", nil, err
		}
		gyro, err := sensors.NewGyro(cfg.GyroSPIDevice, cfg.GyroCSPin, cfg.GyroRange)
		if err != nil {
			drive.Close()
			return nil, "", nil, err
		}
		return sensors.NewLiveSource(drive, gyro), config.SourceLive, drive, nil

	case config.SourceScenario:
		s, err := scenario.ByName(cfg.Scenario, v)
		if err != nil {
			return nil, "", nil, err
		}
		return s.Source(), "scenario:" + s.Name, io.NopCloser(nil), nil

	default:
		return nil, "", nil, fmt.Errorf("unknown sample source %q", cfg.SampleSource)
	}
}

// RunOdometryProducer reads samples from the configured source, runs the
// pose estimator and publishes samples and poses to MQTT.
func RunOdometryProducer() error {
	log.Println("starting odometry producer")

	cfg := config.Get()
	vehicle := cfg.Vehicle()

	est, err := odometry.NewEstimator(vehicle)
	if err != nil {
		return err
	}
	log.Printf("vehicle: wheel radius %.3fm, %d ticks/rev, axle %.3fm, steering deadband %.4f rad",
		vehicle.WheelRadius, vehicle.TicksPerRev, vehicle.AxleLength, vehicle.SteeringDeadband)

	src, sourceName, closer, err := openSource(cfg, vehicle)
	if err != nil {
		return fmt.Errorf("open sample source: %w", err)
	}
	defer closer.Close()
	log.Printf("using sample source %s", sourceName)

	// The drive controller counts lines it could not parse.
	skipped, _ := closer.(skipCounter)

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Println("connected to MQTT, starting publish loop")

	p := &poseProducer{
		est:         est,
		source:      sourceName,
		topicPose:   cfg.TopicPose,
		topicSample: cfg.TopicSample,
		publish:     mqttPublisher(client),
	}

	if cfg.SampleRecordPath != "" {
		f, err := os.Create(cfg.SampleRecordPath)
		if err != nil {
			return fmt.Errorf("create sample record: %w", err)
		}
		defer f.Close()
		p.recorder = samplelog.NewRecorder(f)
		log.Printf("recording samples to %s", cfg.SampleRecordPath)
	}

	// Synthetic profiles are paced; live sensors pace themselves.
	var pace <-chan time.Time
	if cfg.SampleSource == config.SourceScenario {
		ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
		defer ticker.Stop()
		pace = ticker.C
	}

	logEvery := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond
	lastLog := time.Now()

	for {
		if pace != nil {
			<-pace
		}

		in, err := src.Next()
		if errors.Is(err, io.EOF) {
			log.Printf("sample source finished: %d accepted, %d rejected", p.accepted, p.rejected)
			return nil
		}
		if err != nil {
			return fmt.Errorf("sample source: %w", err)
		}

		if err := p.handle(in); err != nil {
			log.Printf("%v", err)
			continue
		}

		if time.Since(lastLog) >= logEvery {
			lastLog = time.Now()
			log.Println(statusLine(p.last, in, skipped))
		}
	}
}
