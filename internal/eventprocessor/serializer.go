// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// Metadata keys set on every message.
const (
	MetadataTrackID  = "track_id"
	MetadataCategory = "category"
	MetadataSource   = "source"
)

// SerializeEvent validates and encodes event.
func SerializeEvent(event *ScoreEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DeserializeEvent decodes a payload produced by SerializeEvent.
func DeserializeEvent(data []byte) (*ScoreEvent, error) {
	var event ScoreEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// ToMessage builds the Watermill message for event.
func ToMessage(event *ScoreEvent) (*message.Message, error) {
	data, err := SerializeEvent(event)
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set(MetadataTrackID, event.TrackID)
	msg.Metadata.Set(MetadataCategory, string(event.Category))
	msg.Metadata.Set(MetadataSource, event.Source)
	return msg, nil
}
