package repository

import (
	"context"
	"log"
	"sync"
	"time"

	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/session"
)

// Mirror writes users, crops and activities from the session store through
// to a Repository. Notify only queues; one goroutine writes the queue in the
// order the store announced it, so the request that caused an event never
// waits on the database. Failures are logged; the session state stays
// authoritative for the screens.
type Mirror struct {
	repo    Repository
	timeout time.Duration

	mu     sync.Mutex
	queue  []session.Event
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewMirror starts the writer. Call Close to drain and stop it.
func NewMirror(repo Repository, timeout time.Duration) *Mirror {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	m := &Mirror{
		repo:    repo,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Notify is a session.Store subscriber.
func (m *Mirror) Notify(ev session.Event) {
	switch ev.Payload.(type) {
	case models.User, models.Crop, []models.Crop, models.Activity:
	default:
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close writes whatever is still queued and stops the writer.
func (m *Mirror) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	<-m.done
}

func (m *Mirror) run() {
	defer close(m.done)
	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()

		for _, ev := range batch {
			m.write(ev)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-m.wake
	}
}

func (m *Mirror) write(ev session.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	switch p := ev.Payload.(type) {
	case models.User:
		err = m.repo.SaveUser(ctx, p)
	case models.Crop:
		err = m.repo.SaveCrop(ctx, p)
	case []models.Crop:
		for _, c := range p {
			if err = m.repo.SaveCrop(ctx, c); err != nil {
				break
			}
		}
	case models.Activity:
		_, err = m.repo.CreateActivity(ctx, p)
	}
	if err != nil {
		log.Printf("repository mirror: %s for session %s failed: %v", ev.Kind, ev.SessionID, err)
	}
}
