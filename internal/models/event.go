package models

import "time"

// Portfolio event type constants
const (
	EventPositionCreated = "POSITION_CREATED"
	EventPositionUpdated = "POSITION_UPDATED"
	EventPositionDeleted = "POSITION_DELETED"
	EventTagDeleted      = "TAG_DELETED"
)

// Broker event type constants
const (
	BrokerEventPositionOpened = "POSITION_OPENED"
	BrokerEventPositionClosed = "POSITION_CLOSED"
)

// PortfolioEvent is published whenever a position or tag changes
type PortfolioEvent struct {
	EventType  string    `json:"event_type"`
	PositionID string    `json:"position_id,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Position   *Position `json:"position,omitempty"`
	TagID      string    `json:"tag_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// BrokerEvent is a fill notification received from a brokerage bridge
type BrokerEvent struct {
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Data      BrokerEventData `json:"data"`
}

// BrokerEventData carries the fill details. Numbers arrive as strings.
type BrokerEventData struct {
	Symbol       string   `json:"symbol"`
	Quantity     string   `json:"quantity,omitempty"`
	AveragePrice string   `json:"average_price"`
	Tags         []string `json:"tags,omitempty"`
}
