package services

import "time"

// Event kinds pushed to connected clients.
const (
	EventGroceryChanged = "grocery.changed"
	EventMealChanged    = "meal.changed"
)

// Event is a notification for every member of a team.
type Event struct {
	Kind   string    `json:"kind"`
	TeamID uint      `json:"team_id"`
	At     time.Time `json:"at"`
}

// EventPublisher fans team events out to listeners (the websocket hub).
type EventPublisher interface {
	Publish(teamID uint, event Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(uint, Event) {}

func publishOr(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func newEvent(kind string, teamID uint) Event {
	return Event{Kind: kind, TeamID: teamID, At: time.Now().UTC()}
}
