package factory

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
)

const (
	EventProjectCreated       = "ProjectCreated"
	EventMilestoneReleased    = "MilestoneReleased"
	EventProjectCompleted     = "ProjectCompleted"
	EventReputationMinted     = "ReputationMinted"
	EventReputationMintFailed = "ReputationMintFailed"
)

type Event struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Project   string         `json:"project"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventFeed is a bounded in-memory feed of recent settlement events,
// consumed by the gig UI to refresh cached project status. When the feed
// reaches its capacity the oldest event is overwritten. The implementation
// uses a ring buffer (deque) to avoid unnecessary allocations.
type EventFeed struct {
	mutex sync.RWMutex
	data  *deque.Deque[Event]
	cap   int
}

func NewEventFeed(cap int) *EventFeed {
	return &EventFeed{
		data: deque.New[Event](cap, cap),
		cap:  cap,
	}
}

func (f *EventFeed) Add(kind, project string, payload map[string]any) Event {
	evt := Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Project:   project,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	f.mutex.Lock()
	if f.data.Len() >= f.cap {
		f.data.PopFront()
	}
	f.data.PushBack(evt)
	f.mutex.Unlock()

	return evt
}

func (f *EventFeed) Len() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.data.Len()
}

// Recent returns the buffered events, oldest first
func (f *EventFeed) Recent() []Event {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	out := make([]Event, 0, f.data.Len())
	for i := 0; i < f.data.Len(); i++ {
		out = append(out, f.data.At(i))
	}
	return out
}
