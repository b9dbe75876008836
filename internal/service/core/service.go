package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/geo"
	"github.com/surakshasphere/sentinel/internal/logger"
	repo "github.com/surakshasphere/sentinel/internal/repository/settings"
)

// Dispatcher hands the constructed emergency message to the collaborator
// responsible for the actual SMS/dial launch. The core never sends anything
// itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *safety.MessagePayload)
}

// Feedback is the haptic collaborator. Emergency is the strong burst on
// activation; Advisory is the short warning pattern for red-zone proximity.
type Feedback interface {
	Emergency()
	Advisory()
}

// ChangeListener observes committed state or settings transitions. Listeners
// run on the mailbox goroutine and must not call back into the service.
type ChangeListener func(state safety.State, settings *config.Settings)

// Snapshot is a consistent, fully cloned view of the aggregator.
type Snapshot struct {
	// State is the current emergency state.
	State safety.State `json:"state"`
	// Alerts is the alert log, newest first.
	Alerts []*safety.Alert `json:"alerts"`
	// Advisories are the most recent red-zone warnings, newest first.
	Advisories []safety.Advisory `json:"advisories"`
	// LastPayload is the message built on the latest activation, nil before
	// the first emergency.
	LastPayload *safety.MessagePayload `json:"last_payload,omitempty"`
	// Settings is the runtime configuration in effect.
	Settings *config.Settings `json:"settings"`
	// LastPosition is the most recent known position, nil without a fix.
	LastPosition *geo.Coordinate `json:"last_position,omitempty"`
}

const (
	// mailboxBuffer bounds how many requests may queue while one is handled.
	mailboxBuffer = 64

	// advisoryHistoryLimit caps the retained red-zone advisories.
	advisoryHistoryLimit = 20
)

var (
	// ErrNotActive is returned when cancelling while no emergency is active.
	ErrNotActive = errors.New("no active emergency")
	// ErrAlertNotFound is returned when acknowledging an unknown alert.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrClosed is returned when the service has been shut down.
	ErrClosed = errors.New("service is closed")
)

// Service is the emergency trigger aggregator.
type Service struct {
	// repo persists settings changes; nil disables persistence.
	repo repo.Repository
	// dispatcher receives the outgoing message payload on activation.
	dispatcher Dispatcher
	// feedback receives haptic cues; nil disables them.
	feedback Feedback

	// mailbox serializes every mutation and query.
	mailbox chan func()
	// closed is closed exactly once on shutdown.
	closed chan struct{}
	// closeOnce guards the closed channel.
	closeOnce sync.Once
	// loopDone is closed when the mailbox goroutine exits.
	loopDone chan struct{}

	// stateMirror lets hot paths (geofence checks) read the state without a
	// mailbox round trip. Written only by the mailbox goroutine.
	stateMirror atomic.Value

	// Everything below is owned by the mailbox goroutine.
	state        safety.State
	alerts       []*safety.Alert
	advisories   []safety.Advisory
	nextAlertID  uint64
	settings     *config.Settings
	lastPayload  *safety.MessagePayload
	lastPosition *geo.Coordinate
	listeners    []ChangeListener
}

// NewService builds the aggregator with the provided collaborators. Initial
// settings come from the repository when available, falling back to defaults.
func NewService(ctx context.Context, repository repo.Repository, dispatcher Dispatcher, feedback Feedback) (*Service, error) {
	s := &Service{
		repo:        repository,
		dispatcher:  dispatcher,
		feedback:    feedback,
		mailbox:     make(chan func(), mailboxBuffer),
		closed:      make(chan struct{}),
		loopDone:    make(chan struct{}),
		state:       safety.StateIdle,
		nextAlertID: 1,
		settings:    config.DefaultSettings(),
	}
	s.stateMirror.Store(safety.StateIdle)

	if repository != nil {
		stored, err := repository.Load(ctx)
		switch {
		case err == nil:
			if stored != nil {
				s.settings = stored
			}
		case errors.Is(err, repo.ErrNotFound):
			// Keep defaults.
		default:
			return nil, fmt.Errorf("load settings: %w", err)
		}
	}

	return s, nil
}

// Start launches the mailbox goroutine. Use Close to stop the service.
func (s *Service) Start() {
	go s.run()
}

// Close stops the mailbox goroutine and waits for it to drain.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})

	<-s.loopDone
}

// run processes requests strictly in arrival order.
func (s *Service) run() {
	defer close(s.loopDone)

	for {
		select {
		case <-s.closed:
			return
		case task := <-s.mailbox:
			task()
		}
	}
}

// submit runs fn on the mailbox goroutine and waits for completion.
func (s *Service) submit(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case s.mailbox <- wrapped:
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current emergency state without blocking on the mailbox.
func (s *Service) State() safety.State {
	state, _ := s.stateMirror.Load().(safety.State)

	return state
}

// OnChange registers a listener for committed transitions. Must be called
// before Start.
func (s *Service) OnChange(listener ChangeListener) {
	s.listeners = append(s.listeners, listener)
}

// Trigger requests a transition to ACTIVE for the given reason. The actor is
// recorded for manual triggers and may be nil for sensor-originated ones.
// Returns true when this call performed the IDLE→ACTIVE transition; false
// when an emergency was already active (triggers are idempotent while
// ACTIVE: no new alert, no haptics, no state change).
func (s *Service) Trigger(ctx context.Context, reason safety.Reason, actor *safety.Actor) (bool, error) {
	var activated bool

	err := s.submit(ctx, func() {
		activated = s.handleTrigger(ctx, reason, actor)
	})
	if err != nil {
		return false, err
	}

	return activated, nil
}

// Cancel requests the ACTIVE→IDLE transition. It is the only path back to
// IDLE and must come from a deliberate user action, never a sensor.
func (s *Service) Cancel(ctx context.Context, actor *safety.Actor) error {
	var cancelErr error

	err := s.submit(ctx, func() {
		if s.state != safety.StateActive {
			cancelErr = ErrNotActive
			return
		}

		s.setState(safety.StateIdle)
		logger.InfoKV(ctx, "Emergency cancelled", "actor", actor.String())
		s.notify()
	})
	if err != nil {
		return err
	}

	return cancelErr
}

// Acknowledge marks the addressed alert as seen.
func (s *Service) Acknowledge(ctx context.Context, id uint64) error {
	var ackErr error

	err := s.submit(ctx, func() {
		for _, alert := range s.alerts {
			if alert.ID == id {
				alert.Acknowledged = true
				return
			}
		}

		ackErr = ErrAlertNotFound
	})
	if err != nil {
		return err
	}

	return ackErr
}

// ClearAlerts empties the alert log. Accepted in any state; an active
// emergency stays active.
func (s *Service) ClearAlerts(ctx context.Context) error {
	return s.submit(ctx, func() {
		s.alerts = nil
		s.advisories = nil
		logger.Info(ctx, "Alert log cleared")
	})
}

// RecordPosition stores the last known position for payload construction.
func (s *Service) RecordPosition(ctx context.Context, position *geo.Coordinate) error {
	return s.submit(ctx, func() {
		s.lastPosition = position.Clone()
	})
}

// RecordAdvisory stores a red-zone advisory and emits the warning feedback.
func (s *Service) RecordAdvisory(ctx context.Context, advisory safety.Advisory) error {
	return s.submit(ctx, func() {
		s.advisories = append([]safety.Advisory{advisory}, s.advisories...)
		if len(s.advisories) > advisoryHistoryLimit {
			s.advisories = s.advisories[:advisoryHistoryLimit]
		}

		if s.feedback != nil {
			s.feedback.Advisory()
		}

		logger.WarnKV(ctx, "Entered high-risk zone",
			"zone", advisory.ZoneName,
			"distance_meters", advisory.DistanceMeters,
		)
	})
}

// UpdateSettings replaces the runtime settings, persists them, and notifies
// listeners so detectors and the siren re-evaluate immediately.
func (s *Service) UpdateSettings(ctx context.Context, updated *config.Settings) error {
	if updated == nil {
		updated = config.DefaultSettings()
	}

	var saveErr error

	err := s.submit(ctx, func() {
		s.settings = updated.Clone()

		logger.InfoKV(ctx, "Settings updated",
			"siren_enabled", s.settings.SirenEnabled,
			"shake_enabled", s.settings.ShakeEnabled,
			"contacts", len(s.settings.Contacts),
			"red_zones", len(s.settings.RedZones),
			"safe_zone_set", s.settings.SafeZone != nil,
		)

		// Listeners must see whatever the aggregator acts on, so fan-out
		// happens before persistence. A failed save leaves the settings in
		// effect for this process and is surfaced to the caller.
		s.notify()

		if s.repo != nil {
			if err := s.repo.Save(ctx, s.settings); err != nil {
				logger.Errorf(ctx, "Failed to persist settings: %v", err)

				saveErr = fmt.Errorf("persist settings: %w", err)
			}
		}
	})
	if err != nil {
		return err
	}

	return saveErr
}

// Settings returns a clone of the runtime settings in effect.
func (s *Service) Settings(ctx context.Context) (*config.Settings, error) {
	var settings *config.Settings

	err := s.submit(ctx, func() {
		settings = s.settings.Clone()
	})
	if err != nil {
		return nil, err
	}

	return settings, nil
}

// Snapshot returns a consistent view of the aggregator state.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snapshot *Snapshot

	err := s.submit(ctx, func() {
		alerts := make([]*safety.Alert, 0, len(s.alerts))
		for _, alert := range s.alerts {
			alerts = append(alerts, alert.Clone())
		}

		snapshot = &Snapshot{
			State:        s.state,
			Alerts:       alerts,
			Advisories:   append([]safety.Advisory(nil), s.advisories...),
			LastPayload:  s.lastPayload.Clone(),
			Settings:     s.settings.Clone(),
			LastPosition: s.lastPosition.Clone(),
		}
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// handleTrigger performs the IDLE→ACTIVE transition. Runs on the mailbox
// goroutine, so the state read-then-write is atomic with respect to every
// other trigger.
func (s *Service) handleTrigger(ctx context.Context, reason safety.Reason, actor *safety.Actor) bool {
	if s.state == safety.StateActive {
		// Detectors keep firing while the user is already in SOS mode;
		// repeats change nothing.
		logger.DebugKV(ctx, "Trigger ignored, emergency already active", "reason", reason)

		return false
	}

	now := time.Now()

	alert := &safety.Alert{
		ID:        s.nextAlertID,
		Reason:    reason,
		Timestamp: now,
		Actor:     actor.Clone(),
	}
	s.nextAlertID++

	// Newest first.
	s.alerts = append([]*safety.Alert{alert}, s.alerts...)
	s.setState(safety.StateActive)

	if s.feedback != nil {
		s.feedback.Emergency()
	}

	s.lastPayload = safety.NewMessagePayload(reason, s.lastPosition, s.settings.Contacts, now)
	if s.lastPayload.Recipient == safety.FallbackRecipient && len(s.settings.Contacts) == 0 {
		// Surfaced rather than silently dropped: the payload still carries
		// the reserved emergency number, but collaborators should know no
		// personal contact was reachable.
		logger.Warn(ctx, "No emergency contact configured, falling back to regional emergency number")
	}

	logger.InfoKV(ctx, "Emergency activated",
		"reason", reason,
		"alert_id", alert.ID,
		"actor", actor.String(),
		"recipient", s.lastPayload.Recipient,
	)

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, s.lastPayload.Clone())
	}

	s.notify()

	return true
}

// setState commits a state transition and refreshes the lock-free mirror.
func (s *Service) setState(state safety.State) {
	s.state = state
	s.stateMirror.Store(state)
}

// notify fans the committed state and settings out to listeners.
func (s *Service) notify() {
	for _, listener := range s.listeners {
		listener(s.state, s.settings.Clone())
	}
}
