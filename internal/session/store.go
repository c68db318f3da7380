// Package session holds the per-session crop and activity state that the
// screens read from, plus the chat transcripts for each crop.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"farmwise-api-server/internal/models"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCropNotFound    = errors.New("crop not found")
	ErrControlBusy     = errors.New("a request for this control is already in flight")
)

// State is a read-only copy of one session.
type State struct {
	ID        string        `json:"id"`
	User      *models.User  `json:"user"`
	Crops     []models.Crop `json:"crops"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type entry struct {
	state       State
	transcripts map[string]*Transcript
	inflight    map[string]bool
	touched     time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a concurrency-safe in-memory session store. Every mutation is a
// full replacement of the affected slice and is announced to subscribers
// after the lock is released.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	// pubMu orders event delivery. It is taken before mu is released, so
	// subscribers see events in mutation order. Lock order is mu, then pubMu.
	pubMu sync.Mutex

	subMu       sync.RWMutex
	subscribers map[int]func(Event)
	nextSub     int

	now func() time.Time
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:    make(map[string]*entry),
		subscribers: make(map[int]func(Event)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens an empty session.
func (s *Store) Create() State {
	now := s.now()
	e := &entry{
		state:       State{ID: uuid.NewString(), Crops: []models.Crop{}, CreatedAt: now, UpdatedAt: now},
		transcripts: make(map[string]*Transcript),
		inflight:    make(map[string]bool),
		touched:     now,
	}

	s.mu.Lock()
	s.sessions[e.state.ID] = e
	s.mu.Unlock()

	return copyState(e.state)
}

func (s *Store) Get(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	e.touched = s.now()
	return copyState(e.state), nil
}

// Observe hands fn a snapshot of the session while no event can be delivered,
// so a watcher registered inside fn sees every later mutation and none that
// the snapshot already contains. fn must not block or call back into the
// Store.
func (s *Store) Observe(id string, fn func(State)) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	e.touched = s.now()
	st := copyState(e.state)

	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	fn(st)
	return nil
}

func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// Delete drops the session and everything it holds.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, id)

	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	s.deliver(Event{SessionID: id, Kind: EventSessionClosed, At: s.now()})
	return nil
}

// ReplaceUser sets the session's user profile.
func (s *Store) ReplaceUser(id string, user models.User) error {
	return s.mutate(id, func(e *entry) (Event, error) {
		u := user
		u.Crops = append([]string(nil), user.Crops...)
		e.state.User = &u
		return Event{Kind: EventUserReplaced, Payload: u}, nil
	})
}

// ReplaceCrops sets the whole crop list. Transcripts of crops that are gone
// are dropped.
func (s *Store) ReplaceCrops(id string, crops []models.Crop) error {
	next := make([]models.Crop, len(crops))
	for i, c := range crops {
		next[i] = c.Clone()
	}

	return s.mutate(id, func(e *entry) (Event, error) {
		e.state.Crops = next
		keep := make(map[string]bool, len(next))
		for _, c := range next {
			keep[c.ID] = true
		}
		for cropID := range e.transcripts {
			if !keep[cropID] {
				delete(e.transcripts, cropID)
			}
		}
		return Event{Kind: EventCropsReplaced, Payload: cloneCrops(next)}, nil
	})
}

// AddCrop appends a crop.
func (s *Store) AddCrop(id string, crop models.Crop) (models.Crop, error) {
	added := crop.Clone()
	err := s.mutate(id, func(e *entry) (Event, error) {
		next := make([]models.Crop, 0, len(e.state.Crops)+1)
		next = append(next, e.state.Crops...)
		next = append(next, added)
		e.state.Crops = next
		return Event{Kind: EventCropAdded, CropID: added.ID, Payload: added.Clone()}, nil
	})
	if err != nil {
		return models.Crop{}, err
	}
	return added.Clone(), nil
}

// Crop returns one crop of the session.
func (s *Store) Crop(id, cropID string) (models.Crop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return models.Crop{}, ErrSessionNotFound
	}
	i := indexOf(e.state.Crops, cropID)
	if i < 0 {
		return models.Crop{}, ErrCropNotFound
	}
	return e.state.Crops[i].Clone(), nil
}

// AddActivity puts a at the front of the crop's activity list and moves the
// crop's last activity to a's date.
func (s *Store) AddActivity(id, cropID string, a models.Activity) (models.Crop, error) {
	a.CropID = cropID
	var updated models.Crop
	err := s.mutate(id, func(e *entry) (Event, error) {
		i := indexOf(e.state.Crops, cropID)
		if i < 0 {
			return Event{}, ErrCropNotFound
		}

		crop := e.state.Crops[i].Clone()
		acts := make([]models.Activity, 0, len(crop.Activities)+1)
		acts = append(acts, a)
		acts = append(acts, crop.Activities...)
		crop.Activities = acts
		date := a.Date
		crop.LastActivity = &date

		e.state.Crops = replaceAt(e.state.Crops, i, crop)
		updated = crop.Clone()
		return Event{Kind: EventActivityAdded, CropID: cropID, Payload: a}, nil
	})
	if err != nil {
		return models.Crop{}, err
	}
	return updated, nil
}

// SetCropImage points the crop at a newly uploaded photo.
func (s *Store) SetCropImage(id, cropID, url string) (models.Crop, error) {
	var updated models.Crop
	err := s.mutate(id, func(e *entry) (Event, error) {
		i := indexOf(e.state.Crops, cropID)
		if i < 0 {
			return Event{}, ErrCropNotFound
		}
		crop := e.state.Crops[i].Clone()
		crop.ImageURL = url
		now := s.now()
		crop.UpdatedAt = &now

		e.state.Crops = replaceAt(e.state.Crops, i, crop)
		updated = crop.Clone()
		return Event{Kind: EventCropUpdated, CropID: cropID, Payload: crop.Clone()}, nil
	})
	if err != nil {
		return models.Crop{}, err
	}
	return updated, nil
}

// Begin claims control for the session until release is called. A second
// claim on the same control fails with ErrControlBusy.
func (s *Store) Begin(id, control string) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if e.inflight[control] {
		return nil, ErrControlBusy
	}
	e.inflight[control] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(e.inflight, control)
			s.mu.Unlock()
		})
	}, nil
}

// Transcript returns the crop's chat transcript, creating it on first use.
func (s *Store) Transcript(id, cropID string) (*Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if indexOf(e.state.Crops, cropID) < 0 {
		return nil, ErrCropNotFound
	}
	t, ok := e.transcripts[cropID]
	if !ok {
		t = &Transcript{}
		e.transcripts[cropID] = t
	}
	e.touched = s.now()
	return t, nil
}

// SendChat sends one message on the crop's transcript. Both the question and
// the answer are announced as they are appended.
func (s *Store) SendChat(ctx context.Context, id, cropID string, msg Outgoing, reply Replier) (Exchange, error) {
	t, err := s.Transcript(id, cropID)
	if err != nil {
		return Exchange{}, err
	}
	return t.Send(ctx, msg, reply, s.now, func(m models.ChatMessage) {
		s.publish(Event{SessionID: id, Kind: EventChatAppended, CropID: cropID, Payload: m, At: s.now()})
	})
}

// Expire drops sessions untouched for longer than maxIdle and returns how
// many were dropped.
func (s *Store) Expire(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var expired []string
	for id, e := range s.sessions {
		if e.touched.Before(cutoff) {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	for _, id := range expired {
		s.deliver(Event{SessionID: id, Kind: EventSessionClosed, At: s.now()})
	}
	return len(expired)
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) mutate(id string, fn func(e *entry) (Event, error)) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	ev, err := fn(e)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.now()
	e.touched = now
	e.state.UpdatedAt = now

	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	ev.SessionID = id
	ev.At = now
	s.deliver(ev)
	return nil
}

func indexOf(crops []models.Crop, cropID string) int {
	for i, c := range crops {
		if c.ID == cropID {
			return i
		}
	}
	return -1
}

func replaceAt(crops []models.Crop, i int, crop models.Crop) []models.Crop {
	next := make([]models.Crop, len(crops))
	copy(next, crops)
	next[i] = crop
	return next
}

func cloneCrops(crops []models.Crop) []models.Crop {
	out := make([]models.Crop, len(crops))
	for i, c := range crops {
		out[i] = c.Clone()
	}
	return out
}

func copyState(st State) State {
	out := st
	if st.User != nil {
		u := *st.User
		u.Crops = append([]string(nil), st.User.Crops...)
		out.User = &u
	}
	out.Crops = cloneCrops(st.Crops)
	return out
}
