// Package pubsub fans generation progress out to serve-mode clients.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topic names published during a generation pass.
const (
	TopicGenerationStatus = "generation_status"
	TopicReport           = "report"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "generation_status", "report")
	Type    string          `json:"type"`    // Event type (e.g., "extracting", "generating", "ready", "failed")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// GenerationStatus is the payload published on TopicGenerationStatus as
// a pass moves through its phases.
type GenerationStatus struct {
	State   string `json:"state"`   // idle, extracting, generating, writing, ready, failed
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current step number (1-based)
	Total   int    `json:"total"`   // Total number of steps
}
