// Package events defines the notifications published after each action run.
package events

import (
	"time"
)

type EventType string

// Topic carries action execution events.
const Topic = "crmflow.actions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ActionExecutedEvent EventType = "action.executed"
	ActionFailedEvent   EventType = "action.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ActionExecuted is published when an action returns without error. Soft
// failures reported in the output still produce this event.
type ActionExecuted struct {
	BaseEvent

	ActionType  string         `json:"action_type"`
	RecordID    *int64         `json:"record_id,omitempty"`
	ModuleID    *int64         `json:"module_id,omitempty"`
	TriggeredBy *int64         `json:"triggered_by,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
}

func (a ActionExecuted) GetType() EventType {
	return ActionExecutedEvent
}

// ActionFailed is published when an action returns an error.
type ActionFailed struct {
	BaseEvent

	ActionType  string `json:"action_type"`
	RecordID    *int64 `json:"record_id,omitempty"`
	ModuleID    *int64 `json:"module_id,omitempty"`
	TriggeredBy *int64 `json:"triggered_by,omitempty"`
	Error       string `json:"error"`
	DurationMs  int64  `json:"duration_ms"`
}

func (a ActionFailed) GetType() EventType {
	return ActionFailedEvent
}
