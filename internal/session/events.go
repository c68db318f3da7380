package session

import "time"

type EventKind string

const (
	EventUserReplaced  EventKind = "user.replaced"
	EventCropsReplaced EventKind = "crops.replaced"
	EventCropAdded     EventKind = "crop.added"
	EventCropUpdated   EventKind = "crop.updated"
	EventActivityAdded EventKind = "activity.added"
	EventChatAppended  EventKind = "chat.appended"
	EventSessionClosed EventKind = "session.closed"
)

// Event announces one store mutation. Payload is the new value: a
// models.User, []models.Crop, models.Crop, models.Activity or
// models.ChatMessage depending on Kind.
type Event struct {
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	CropID    string    `json:"crop_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

// Subscribe registers fn for every event of every session. Call the returned
// func to stop receiving events.
//
// Events are delivered one at a time in the order the mutations happened.
// fn runs on the mutating goroutine, so it must not block and must not call
// back into the Store; hand slow work to a queue.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(ev Event) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.deliver(ev)
}

// deliver runs the subscribers. The caller holds pubMu.
func (s *Store) deliver(ev Event) {
	s.subMu.RLock()
	subs := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
