package aio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrBusPhase         = errors.New("bus phase failed")
	ErrTargetResolution = errors.New("target not resolved")
	ErrRange            = errors.New("value out of range")
	ErrShape            = errors.New("invalid value shape")
)

// Phase names one step of a bus exchange.
type Phase string

const (
	PhaseOpen     Phase = "open"
	PhaseTransfer Phase = "transfer"
	PhaseClose    Phase = "close"
)

// BusPhaseError annotates a bus failure with the phase it happened in.
type BusPhaseError struct {
	Phase Phase
	Err   error
}

func (e *BusPhaseError) Error() string {
	return fmt.Sprintf("bus %s failed: %v", e.Phase, e.Err)
}

func (e *BusPhaseError) Unwrap() error { return e.Err }

func (e *BusPhaseError) Is(target error) bool { return target == ErrBusPhase }

// TargetResolutionError is returned when no output channel matches a write target.
// ByMask is set when the target was a mask, so mask 0 is reported as such.
type TargetResolutionError struct {
	Name   string
	Mask   int
	ByMask bool
}

func (e *TargetResolutionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no output channel named %q", e.Name)
	}
	if e.ByMask {
		return fmt.Sprintf("no output channel for mask %d", e.Mask)
	}
	return "no output channels configured"
}

func (e *TargetResolutionError) Is(target error) bool { return target == ErrTargetResolution }

// RangeError lists every value that fell outside [0,100].
type RangeError struct {
	Values []float64
}

func (e *RangeError) Error() string {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprintf("analog value out of range [%g,%g]: %s", MinPercent, MaxPercent, strings.Join(vals, ","))
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string { return "invalid write value: " + e.Reason }

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

func phaseError(phase Phase, err error) error {
	return &BusPhaseError{Phase: phase, Err: err}
}
