// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package track writes estimated paths as CSV, one pose per row.
package track

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// Writer emits "x,y" rows, or "x,y,heading" with the heading column
// enabled. There is no header row so the files plot directly.
type Writer struct {
	w           *csv.Writer
	withHeading bool
	rows        int
}

// NewWriter returns a Writer on w. withHeading adds the heading (rad) as a
// third column.
func NewWriter(w io.Writer, withHeading bool) *Writer {
	return &Writer{w: csv.NewWriter(w), withHeading: withHeading}
}

// Write appends one pose.
func (t *Writer) Write(p odometry.Pose) error {
	row := []string{format(p.X), format(p.Y)}
	if t.withHeading {
		row = append(row, format(p.Heading))
	}
	if err := t.w.Write(row); err != nil {
		return fmt.Errorf("track row %d: %w", t.rows+1, err)
	}
	t.rows++
	return nil
}

// Rows is the number of poses written so far.
func (t *Writer) Rows() int { return t.rows }

// Flush pushes buffered rows to the underlying writer.
func (t *Writer) Flush() error {
	t.w.Flush()
	return t.w.Error()
}

func format(f float64) string {
	return strconv.FormatFloat(f, 'g', 9, 64)
}
