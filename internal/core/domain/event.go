package domain

import "time"

type EventKind string

const (
	EventLog   EventKind = "log"
	EventQueue EventKind = "queue"
)

type EventLevel string

const (
	LevelDebug EventLevel = "debug"
	LevelInfo  EventLevel = "info"
	LevelError EventLevel = "error"
)

// Event is a progress notification relayed from the pipeline to observers.
// Log events carry Message; queue events carry the ordered Snapshot.
type Event struct {
	Kind     EventKind  `json:"kind"`
	Level    EventLevel `json:"level,omitempty"`
	Time     time.Time  `json:"time"`
	Message  string     `json:"message,omitempty"`
	Path     string     `json:"path,omitempty"`
	Snapshot []string   `json:"snapshot,omitempty"`
}

func LogEvent(level EventLevel, path, message string) Event {
	return Event{
		Kind:    EventLog,
		Level:   level,
		Time:    time.Now(),
		Message: message,
		Path:    path,
	}
}

func QueueEvent(snapshot []string) Event {
	return Event{
		Kind:     EventQueue,
		Time:     time.Now(),
		Snapshot: snapshot,
	}
}
