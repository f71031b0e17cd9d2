// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
	"github.com/relabs-tech/odometry_computer/internal/scenario"
	"github.com/relabs-tech/odometry_computer/internal/telemetry"
)

// RunConsole drives a synthetic scenario through a local estimator and prints
// every pose, without MQTT or hardware. An interval of zero prints as fast as
// possible.
func RunConsole(v odometry.Vehicle, name string, interval time.Duration) error {
	est, err := odometry.NewEstimator(v)
	if err != nil {
		return err
	}
	s, err := scenario.ByName(name, v)
	if err != nil {
		return err
	}
	log.Printf("console: running scenario %s (%d samples, %.2fs)", s.Name, s.Len(), s.Duration())

	var pace <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	err = odometry.Run(est, s.Source(), func(in odometry.Sample, u *odometry.Update, err error) error {
		if pace != nil {
			<-pace
		}
		if err != nil {
			log.Printf("console: sample at t=%.4f rejected: %v", in.Time, err)
			return nil
		}
		fmt.Println(formatPoseLine(telemetry.NewPoseMessage(*u)))
		return nil
	})
	if err != nil {
		return err
	}

	p := est.Pose()
	log.Printf("console: final pose x=%.4f y=%.4f heading=%.4f rad", p.X, p.Y, p.Heading)
	return nil
}
