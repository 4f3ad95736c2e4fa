package domain

import "time"

// EventType names one of the typed events the core publishes (spec §4.5).
type EventType string

const (
	EventUserConnected     EventType = "userConnected"
	EventUserDisconnected  EventType = "userDisconnected"
	EventUserStatusChanged EventType = "userStatusChanged"
	EventPartyCreated      EventType = "partyCreated"
	EventPartyUpdated      EventType = "partyUpdated"
	EventPartyDeleted      EventType = "partyDeleted"
	EventPlayerJoined      EventType = "playerJoined"
	EventPlayerLeft        EventType = "playerLeft"
	EventRoundStarted      EventType = "roundStarted"
	EventRoundEnded        EventType = "roundEnded"
	EventGameEnded         EventType = "gameEnded"
	EventStateChanged      EventType = "stateChanged"
)

// Event is the tuple published on the Event Bus and delivered to
// subscribers (spec §4.5, §6).
type Event struct {
	Type      EventType
	PartyID   string
	UserID    string
	Timestamp time.Time
	Payload   map[string]any
}
