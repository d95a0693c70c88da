// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package provider

import (
	"context"
	"errors"

	"github.com/gogpu/ace/internal/decoder"
	"github.com/gogpu/ace/internal/loader"
	"github.com/gogpu/ace/internal/object"
)

// ErrClosed is reported to waiters whose work could not be scheduled.
var ErrClosed = errors.New("provider: pipeline closed")

// Step names the pipeline stage a request failed in.
type Step string

const (
	StepLoader Step = "loader unavailable"
	StepData   Step = "data unavailable"
	StepParse  Step = "parse failure"
	StepDecode Step = "decode failure"
	StepClosed Step = "pipeline closed"
)

// LoadError is delivered to OnLoadFail.
type LoadError struct {
	Step Step
	Key  string
	Err  error
}

func (e *LoadError) Error() string {
	msg := string(e.Step)
	if e.Key != "" {
		msg += ": " + e.Key
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// classify maps err to the step it came from. fallback is used for errors
// that carry no known sentinel.
func classify(key string, err error, fallback Step) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	step := fallback
	switch {
	case errors.Is(err, ErrClosed), errors.Is(err, context.Canceled):
		step = StepClosed
	case errors.Is(err, loader.ErrLoaderUnavailable):
		step = StepLoader
	case errors.Is(err, loader.ErrDataUnavailable),
		errors.Is(err, object.ErrNoData),
		errors.Is(err, decoder.ErrNoData):
		step = StepData
	case errors.Is(err, object.ErrParse):
		step = StepParse
	case errors.Is(err, decoder.ErrDecode):
		step = StepDecode
	}
	return &LoadError{Step: step, Key: key, Err: err}
}
