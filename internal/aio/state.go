package aio

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of all channel values. Channels that
// were never read or written are absent.
type Snapshot struct {
	Inputs    map[string]float64 `json:"inputs"`
	Outputs   map[string]float64 `json:"outputs"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// State holds the last known value of every channel. It is only mutated by
// a Device after a successful exchange; readers never wait on the bus.
type State struct {
	mu        sync.RWMutex
	inputs    map[string]float64
	outputs   map[string]float64
	updatedAt time.Time
}

func NewState() *State {
	return &State{
		inputs:  make(map[string]float64),
		outputs: make(map[string]float64),
	}
}

func (s *State) Input(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.inputs[name]
	return v, ok
}

func (s *State) Output(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.outputs[name]
	return v, ok
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Inputs:    make(map[string]float64, len(s.inputs)),
		Outputs:   make(map[string]float64, len(s.outputs)),
		UpdatedAt: s.updatedAt,
	}
	for k, v := range s.inputs {
		snap.Inputs[k] = v
	}
	for k, v := range s.outputs {
		snap.Outputs[k] = v
	}
	return snap
}

func (s *State) setInputs(values map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.inputs[k] = v
	}
	s.updatedAt = time.Now()
}

func (s *State) setOutputs(values map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.outputs[k] = v
	}
	s.updatedAt = time.Now()
}
