// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// Sample sources understood by the producer.
const (
	SourceLive     = "live"     // drive controller over serial + gyro over SPI
	SourceScenario = "scenario" // synthetic driving profile
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicPose   string
	TopicSample string

	// Vehicle geometry
	WheelRadius        float64 // m
	EncoderTicksPerRev int64
	AxleLength         float64 // m, front wheel contact to rear axle
	SteeringDeadband   float64 // rad, |steering| at or below this drives straight

	// Drive controller (encoder + steering) serial link
	DriveSerialPort string
	DriveBaudRate   int

	// Gyro Hardware
	GyroSPIDevice string
	GyroCSPin     string
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	GyroRange byte

	// Producer
	SampleSource     string // "live" or "scenario"
	Scenario         string // "line", "circle", "figure8", "racetrack"
	SampleRecordPath string // optional CSV of every sample fed to the estimator

	// Timing
	SampleInterval     int // milliseconds, pacing for scenario playback
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Display
	DisplayUpdateInterval int // milliseconds
}

// globalConfig is only reachable through InitGlobal and Get. configOnce makes
// InitGlobal idempotent; configMu guards reads against the single write.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with the reference vehicle and local
// broker settings. Load starts from these values.
func Default() *Config {
	v := odometry.DefaultVehicle()
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "odometry-producer",
		MQTTClientIDConsole:  "odometry-console-subscriber",
		MQTTClientIDWeb:      "odometry-web-subscriber",
		MQTTClientIDDisplay:  "odometry-display",

		TopicPose:   "odometry/pose",
		TopicSample: "odometry/sample",

		WheelRadius:        v.WheelRadius,
		EncoderTicksPerRev: v.TicksPerRev,
		AxleLength:         v.AxleLength,
		SteeringDeadband:   v.SteeringDeadband,

		DriveBaudRate: 115200,
		GyroRange:     1,

		SampleSource: SourceScenario,
		Scenario:     "racetrack",

		SampleInterval:     10,
		ConsoleLogInterval: 1000,

		WebServerPort: 8080,
		WebStaticDir:  "web",

		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default. Blank lines and lines
// starting with # are ignored; unknown keys are an error.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseMillis(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

func parseMeters(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if !(v > 0) {
		return 0, fmt.Errorf("%s must be positive, got %v", key, v)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_SAMPLE":
		c.TopicSample = value

	// Vehicle geometry
	case "WHEEL_RADIUS_M":
		c.WheelRadius, err = parseMeters(key, value)
	case "AXLE_LENGTH_M":
		c.AxleLength, err = parseMeters(key, value)
	case "ENCODER_TICKS_PER_REV":
		ticks, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid ENCODER_TICKS_PER_REV %q: %w", value, perr)
		}
		if ticks <= 0 {
			return fmt.Errorf("ENCODER_TICKS_PER_REV must be positive, got %d", ticks)
		}
		c.EncoderTicksPerRev = ticks
	case "STEERING_DEADBAND_RAD":
		band, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid STEERING_DEADBAND_RAD %q: %w", value, perr)
		}
		if !(band >= 0) {
			return fmt.Errorf("STEERING_DEADBAND_RAD must not be negative, got %v", band)
		}
		c.SteeringDeadband = band

	// Drive controller
	case "DRIVE_SERIAL_PORT":
		c.DriveSerialPort = value
	case "DRIVE_BAUD_RATE":
		rate, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid DRIVE_BAUD_RATE %q: %w", value, perr)
		}
		if rate <= 0 {
			return fmt.Errorf("DRIVE_BAUD_RATE must be positive, got %d", rate)
		}
		c.DriveBaudRate = rate

	// Gyro Hardware
	case "GYRO_SPI_DEVICE":
		c.GyroSPIDevice = value
	case "GYRO_CS_PIN":
		c.GyroCSPin = value
	case "GYRO_RANGE":
		rangeVal, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid GYRO_RANGE %q: %w", value, perr)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.GyroRange = byte(rangeVal)

	// Producer
	case "SAMPLE_SOURCE":
		if value != SourceLive && value != SourceScenario {
			return fmt.Errorf("SAMPLE_SOURCE must be %q or %q, got %q", SourceLive, SourceScenario, value)
		}
		c.SampleSource = value
	case "SCENARIO":
		c.Scenario = value
	case "SAMPLE_RECORD_PATH":
		c.SampleRecordPath = value

	// Timing
	case "SAMPLE_INTERVAL":
		c.SampleInterval, err = parseMillis(key, value)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseMillis(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		port, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, perr)
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseMillis(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPose == "" {
		return fmt.Errorf("TOPIC_POSE is required")
	}
	if c.SampleSource == SourceLive {
		if c.DriveSerialPort == "" {
			return fmt.Errorf("DRIVE_SERIAL_PORT is required for SAMPLE_SOURCE=%s", SourceLive)
		}
		if c.DriveBaudRate == 0 {
			return fmt.Errorf("DRIVE_BAUD_RATE is required for SAMPLE_SOURCE=%s", SourceLive)
		}
		if c.GyroSPIDevice == "" {
			return fmt.Errorf("GYRO_SPI_DEVICE is required for SAMPLE_SOURCE=%s", SourceLive)
		}
	}
	if err := c.Vehicle().Validate(); err != nil {
		return err
	}
	return nil
}

// Vehicle returns the configured vehicle geometry.
func (c *Config) Vehicle() odometry.Vehicle {
	return odometry.Vehicle{
		WheelRadius:      c.WheelRadius,
		TicksPerRev:      c.EncoderTicksPerRev,
		AxleLength:       c.AxleLength,
		SteeringDeadband: c.SteeringDeadband,
	}
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls are no-ops returning nil.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
