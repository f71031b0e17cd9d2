// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"errors"
	"io"
)

// Estimator owns the running state for one vehicle. It is not safe for
// concurrent use; feed it from a single goroutine.
type Estimator struct {
	vehicle Vehicle
	state   State
}

// NewEstimator returns an estimator at the initial state.
func NewEstimator(v Vehicle) (*Estimator, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{vehicle: v}, nil
}

// Estimate folds one sample into the running state and returns the new pose.
// On error the state is left unchanged and the previous pose is returned.
func (e *Estimator) Estimate(in Sample) (Pose, error) {
	u, err := e.Apply(in)
	return u.State.Pose, err
}

// Apply is Estimate with the full update record.
func (e *Estimator) Apply(in Sample) (Update, error) {
	u, err := Advance(e.vehicle, e.state, in)
	if err != nil {
		return u, err
	}
	e.state = u.State
	return u, nil
}

// Pose returns the current pose estimate.
func (e *Estimator) Pose() Pose { return e.state.Pose }

// State returns a copy of the running state.
func (e *Estimator) State() State { return e.state }

// Vehicle returns the vehicle constants the estimator was built with.
func (e *Estimator) Vehicle() Vehicle { return e.vehicle }

// Reset returns the estimator to the initial state.
func (e *Estimator) Reset() { e.state = State{} }

// Source is anything that can provide samples over time: live sensors, a
// replayed log or a synthetic scenario. Finite sources return io.EOF.
type Source interface {
	Next() (Sample, error)
}

// Run drains src through e, calling fn after every accepted sample. Samples
// rejected by the estimator are passed to fn with a nil update and the error;
// returning a non-nil error from fn stops the run. Run returns nil at io.EOF.
func Run(e *Estimator, src Source, fn func(in Sample, u *Update, err error) error) error {
	for {
		in, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		u, err := e.Apply(in)
		if err != nil {
			if ferr := fn(in, nil, err); ferr != nil {
				return ferr
			}
			continue
		}
		if ferr := fn(in, &u, nil); ferr != nil {
			return ferr
		}
	}
}
