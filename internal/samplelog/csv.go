// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package samplelog reads and writes recorded estimator input.
package samplelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// Header is the column layout of a sample CSV file.
var Header = []string{"time", "steering_angle", "encoder_ticks", "angular_velocity"}

// Recorder appends samples to a CSV stream.
type Recorder struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewRecorder returns a Recorder writing to w. The header goes out with the
// first sample.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: csv.NewWriter(w)}
}

// Record writes one sample and flushes it.
func (r *Recorder) Record(s odometry.Sample) error {
	if !r.wroteHeader {
		if err := r.w.Write(Header); err != nil {
			return fmt.Errorf("sample log header: %w", err)
		}
		r.wroteHeader = true
	}
	row := []string{
		strconv.FormatFloat(s.Time, 'g', -1, 64),
		strconv.FormatFloat(s.SteeringAngle, 'g', -1, 64),
		strconv.FormatInt(s.EncoderTicks, 10),
		strconv.FormatFloat(s.AngularVelocity, 'g', -1, 64),
	}
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("sample log row: %w", err)
	}
	r.w.Flush()
	return r.w.Error()
}

// CSVSource streams samples from a sample CSV file.
type CSVSource struct {
	r    *csv.Reader
	line int
}

// NewCSVSource returns a source reading from r. A header row matching
// Header is skipped.
func NewCSVSource(r io.Reader) *CSVSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	return &CSVSource{r: cr}
}

// Next returns the next sample or io.EOF.
func (s *CSVSource) Next() (odometry.Sample, error) {
	for {
		rec, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			return odometry.Sample{}, io.EOF
		}
		if err != nil {
			return odometry.Sample{}, fmt.Errorf("sample log: %w", err)
		}
		s.line++
		if s.line == 1 && rec[0] == Header[0] {
			continue
		}
		return parseRow(rec, s.line)
	}
}

func parseRow(rec []string, line int) (odometry.Sample, error) {
	var (
		in  odometry.Sample
		err error
	)
	if in.Time, err = strconv.ParseFloat(rec[0], 64); err != nil {
		return in, fmt.Errorf("sample log row %d: time: %w", line, err)
	}
	if in.SteeringAngle, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return in, fmt.Errorf("sample log row %d: steering_angle: %w", line, err)
	}
	if in.EncoderTicks, err = strconv.ParseInt(rec[2], 10, 64); err != nil {
		return in, fmt.Errorf("sample log row %d: encoder_ticks: %w", line, err)
	}
	if in.AngularVelocity, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return in, fmt.Errorf("sample log row %d: angular_velocity: %w", line, err)
	}
	return in, nil
}

// SliceSource serves samples from memory.
type SliceSource struct {
	samples []odometry.Sample
	next    int
}

// NewSliceSource wraps samples as an odometry.Source.
func NewSliceSource(samples []odometry.Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

// Next returns the next sample or io.EOF.
func (s *SliceSource) Next() (odometry.Sample, error) {
	if s.next >= len(s.samples) {
		return odometry.Sample{}, io.EOF
	}
	in := s.samples[s.next]
	s.next++
	return in, nil
}
