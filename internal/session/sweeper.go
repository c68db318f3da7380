package session

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper periodically expires idle sessions.
type Sweeper struct {
	scheduler *gocron.Scheduler
	store     *Store
	interval  time.Duration
	maxIdle   time.Duration
}

func NewSweeper(store *Store, interval, maxIdle time.Duration) *Sweeper {
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		interval:  interval,
		maxIdle:   maxIdle,
	}
}

// Start schedules the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	if s.maxIdle <= 0 {
		log.Println("session sweeper: maxIdle not set; sessions never expire")
		return nil
	}
	interval := s.interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		if n := s.store.Expire(s.maxIdle); n > 0 {
			log.Printf("session sweeper: expired %d idle sessions", n)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
