// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// TypePODO is the sentence type of the drive controller's odometry line:
//
//	$PODO,<millis>,<cumulative ticks>,<steering mrad>*hh
const TypePODO = "ODO"

// PODO is one parsed drive controller sentence.
type PODO struct {
	nmea.BaseSentence
	Millis       int64   // controller clock
	Ticks        int64   // cumulative drive encoder count
	SteeringMrad float64 // steering angle, positive left
}

func newPODO(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	m := PODO{
		BaseSentence: s,
		Millis:       p.Int64(0, "millis"),
		Ticks:        p.Int64(1, "ticks"),
		SteeringMrad: p.Float64(2, "steering"),
	}
	return m, p.Err()
}

var registerOnce sync.Once

func registerPODO() {
	registerOnce.Do(func() {
		if err := nmea.RegisterParser(TypePODO, newPODO); err != nil {
			log.Printf("drive: PODO parser registration: %v", err)
		}
	})
}

// FormatPODO renders a drive sentence with its checksum, as the controller
// firmware does. Bench tools use it to fake a controller.
func FormatPODO(millis, ticks int64, steeringMrad float64) string {
	body := fmt.Sprintf("P%s,%d,%d,%.1f", TypePODO, millis, ticks, steeringMrad)
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

// DriveReading is a drive controller sample in SI units.
type DriveReading struct {
	Time          float64 // s, controller clock
	EncoderTicks  int64
	SteeringAngle float64 // rad
}

// DriveController reads PODO sentences from the vehicle's drive board.
type DriveController struct {
	closer  io.Closer
	reader  *bufio.Reader
	skipped int
}

// OpenDriveController opens the drive board serial port.
func OpenDriveController(portName string, baudRate int) (*DriveController, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("drive: open %s: %w", portName, err)
	}
	log.Printf("drive: serial port opened on %s at %d baud", portName, baudRate)

	d := NewDriveReader(port)
	d.closer = port
	return d, nil
}

// NewDriveReader reads PODO sentences from any stream.
func NewDriveReader(r io.Reader) *DriveController {
	registerPODO()
	return &DriveController{reader: bufio.NewReader(r)}
}

// NextReading blocks until the next valid PODO sentence. Other sentences,
// partial lines and checksum failures are skipped.
func (d *DriveController) NextReading() (DriveReading, error) {
	for {
		line, err := d.reader.ReadString('\n')
		if err != nil && line == "" {
			return DriveReading{}, err
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			if err != nil {
				return DriveReading{}, err
			}
			continue
		}

		sentence, perr := nmea.Parse(line)
		if perr != nil {
			// noisy line or a sentence cut by a reconnect
			d.skipped++
			continue
		}
		m, ok := sentence.(PODO)
		if !ok {
			continue
		}
		return DriveReading{
			Time:          float64(m.Millis) / 1000,
			EncoderTicks:  m.Ticks,
			SteeringAngle: m.SteeringMrad / 1000,
		}, nil
	}
}

// Skipped counts lines dropped for failing to parse.
func (d *DriveController) Skipped() int { return d.skipped }

// Close releases the serial port.
func (d *DriveController) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
