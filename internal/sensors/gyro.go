// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"math"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// gyroLSBPerDPS is the MPU9250 gyro sensitivity for each full-scale range
// setting (GYRO_FS_SEL 0..3).
var gyroLSBPerDPS = [4]float64{131, 65.5, 32.8, 16.4}

// YawRateFromRaw converts a raw Z-axis gyro count to rad/s.
func YawRateFromRaw(raw int16, gyroRange byte) float64 {
	return float64(raw) / gyroLSBPerDPS[gyroRange&3] * math.Pi / 180
}

// Gyro reads the yaw rate from an MPU9250 mounted flat, Z axis up.
type Gyro struct {
	imu       *mpu9250.MPU9250
	gyroRange byte
}

// NewGyro initializes an MPU9250 over SPI for yaw rate reads.
func NewGyro(spiDev, csPin string, gyroRange byte) (*Gyro, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gyro: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("gyro: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("gyro: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("gyro: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("gyro: initialization: %w", err)
	}

	if err := imu.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("gyro: set range: %w", err)
	}
	log.Printf("gyro: range set to %d (±%d°/s)", gyroRange, []int{250, 500, 1000, 2000}[gyroRange&3])

	// Self-test only; no bias calibration is applied to the readings.
	if _, err := imu.SelfTest(); err != nil {
		log.Printf("Warning: gyro self-test failed: %v", err)
	} else {
		log.Println("gyro: self-test passed")
	}

	return &Gyro{imu: imu, gyroRange: gyroRange}, nil
}

// YawRate reads the Z-axis rotation rate in rad/s, counter-clockwise positive.
func (g *Gyro) YawRate() (float64, error) {
	gz, err := g.imu.GetRotationZ()
	if err != nil {
		return 0, fmt.Errorf("gyro Z: %w", err)
	}
	return YawRateFromRaw(gz, g.gyroRange), nil
}
