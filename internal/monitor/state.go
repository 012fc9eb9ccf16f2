// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package monitor

import (
	"fmt"

	"github.com/goccy/go-json"
)

// State is the orchestrator lifecycle state.
//
//	Stopped ──Start──► Starting ──► Running ──Stop──► StopRequested ──loop exits──► Stopped
//	            └──startup failure──► Stopped
type State int32

const (
	Stopped State = iota
	Starting
	Running
	StopRequested
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case StopRequested:
		return "stop_requested"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name written by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, candidate := range []State{Stopped, Starting, Running, StopRequested} {
		if candidate.String() == name {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown monitor state %q", name)
}
