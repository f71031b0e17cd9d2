// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/odometry_computer/internal/config"
	"github.com/relabs-tech/odometry_computer/internal/telemetry"
)

func formatPoseLine(p telemetry.PoseMessage) string {
	return fmt.Sprintf(
		"[POSE]   t=%8.3f  X=%9.3f  Y=%9.3f  HDG=%7.2f°  %-10s v=%6.2fm/s",
		p.Time, p.X, p.Y, p.HeadingDeg, p.Motion, p.WheelSpeed,
	)
}

func formatSampleLine(s telemetry.SampleMessage) string {
	return fmt.Sprintf(
		"[SAMPLE] t=%8.3f  ticks=%8d  steer=%7.4f  gyro=%7.4f  (%s)",
		s.Time, s.EncoderTicks, s.SteeringAngle, s.AngularVelocity, s.Source,
	)
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to pose estimates
	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p telemetry.PoseMessage
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}
		fmt.Println(formatPoseLine(p))
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicPose)

	// Subscribe to raw samples
	if cfg.TopicSample != "" {
		sampleToken := client.Subscribe(cfg.TopicSample, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var s telemetry.SampleMessage
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("console: sample unmarshal error: %v", err)
				return
			}
			fmt.Println(formatSampleLine(s))
		})
		sampleToken.Wait()
		if sampleToken.Error() != nil {
			return sampleToken.Error()
		}
		log.Printf("console: subscribed to %s", cfg.TopicSample)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
