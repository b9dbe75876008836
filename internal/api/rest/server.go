package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/detector/geofence"
	"github.com/surakshasphere/sentinel/internal/detector/shake"
	"github.com/surakshasphere/sentinel/internal/detector/vision"
	"github.com/surakshasphere/sentinel/internal/detector/voice"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/geo"
	"github.com/surakshasphere/sentinel/internal/logger"
	"github.com/surakshasphere/sentinel/internal/service/core"
	"github.com/surakshasphere/sentinel/internal/siren"
)

// Server wires the aggregator and the detectors into an HTTP handler.
type Server struct {
	// service is the emergency trigger aggregator.
	service *core.Service
	// shake consumes motion samples.
	shake *shake.Detector
	// vision consumes classifier frames.
	vision *vision.Debouncer
	// voice consumes speech transcripts.
	voice *voice.Spotter
	// geofence consumes position samples.
	geofence *geofence.Monitor
	// siren is queried for the emitting flag in snapshots.
	siren *siren.Scheduler

	// shakeEnabled mirrors the runtime toggle so the hot motion path skips
	// a mailbox round trip per sample.
	shakeEnabled atomic.Bool
}

// NewServer builds the HTTP transport over the provided components.
func NewServer(
	service *core.Service,
	shakeDetector *shake.Detector,
	visionDebouncer *vision.Debouncer,
	voiceSpotter *voice.Spotter,
	geofenceMonitor *geofence.Monitor,
	sirenScheduler *siren.Scheduler,
) *Server {
	s := &Server{
		service:  service,
		shake:    shakeDetector,
		vision:   visionDebouncer,
		voice:    voiceSpotter,
		geofence: geofenceMonitor,
		siren:    sirenScheduler,
	}
	s.shakeEnabled.Store(true)

	return s
}

// ApplySettings refreshes the transport's cached toggles. Wired as a
// settings listener so runtime changes take effect on the next sample.
func (s *Server) ApplySettings(settings *config.Settings) {
	if settings == nil {
		return
	}

	s.shakeEnabled.Store(settings.ShakeEnabled)
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)

	r.Route("/ingest", func(r chi.Router) {
		r.Post("/position", s.handlePosition)
		r.Post("/motion", s.handleMotion)
		r.Post("/hazard", s.handleHazard)
		r.Post("/transcript", s.handleTranscript)
	})

	r.Post("/trigger", s.handleTrigger)
	r.Post("/cancel", s.handleCancel)

	r.Route("/alerts", func(r chi.Router) {
		r.Post("/ack", s.handleAcknowledge)
		r.Post("/clear", s.handleClear)
	})

	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)

	return r
}

// stateResponse is the collaborator-facing snapshot.
type stateResponse struct {
	*core.Snapshot

	// SirenEmitting reports whether the siren is currently sounding.
	SirenEmitting bool `json:"siren_emitting"`
	// PulseCount is the shake detector's rolling pulse counter.
	PulseCount int `json:"pulse_count"`
}

// triggerRequest asks for a manual emergency activation.
type triggerRequest struct {
	Reason safety.Reason `json:"reason"`
	Actor  *safety.Actor `json:"actor,omitempty"`
}

// triggerResponse reports whether this request performed the transition.
type triggerResponse struct {
	Activated bool         `json:"activated"`
	State     safety.State `json:"state"`
}

// cancelRequest identifies who cancelled the emergency.
type cancelRequest struct {
	Actor *safety.Actor `json:"actor,omitempty"`
}

// ackRequest addresses one alert-log entry.
type ackRequest struct {
	ID uint64 `json:"id"`
}

// positionRequest is one GPS fix from the position adapter.
type positionRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// hazardRequest is one classifier frame from the vision adapter.
type hazardRequest struct {
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// transcriptRequest is one result from the speech adapter.
type transcriptRequest struct {
	Text string `json:"text"`
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleState returns the consistent snapshot plus derived fields.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.Snapshot(r.Context())
	if err != nil {
		httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusOK, &stateResponse{
		Snapshot:      snapshot,
		SirenEmitting: s.siren.Emitting(),
		PulseCount:    s.shake.PulseCount(),
	})
}

// handlePosition records the fix for payload construction, then re-evaluates
// the geofence checks.
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}

	position := &geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}

	if err := s.service.RecordPosition(r.Context(), position); err != nil {
		httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	s.geofence.Feed(position, time.Now())

	w.WriteHeader(http.StatusAccepted)
}

// handleMotion feeds one acceleration sample to the shake detector,
// honoring the runtime toggle.
func (s *Server) handleMotion(w http.ResponseWriter, r *http.Request) {
	var req shake.Sample
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}

	if s.shakeEnabled.Load() {
		s.shake.Feed(req, time.Now())
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleHazard feeds one classifier frame to the hazard debouncer.
func (s *Server) handleHazard(w http.ResponseWriter, r *http.Request) {
	var req hazardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}

	timestamp := time.Now()
	if req.TimestampMs > 0 {
		timestamp = time.UnixMilli(req.TimestampMs)
	}

	s.vision.Feed(vision.Classification{
		Label:      req.Label,
		Confidence: req.Confidence,
		Timestamp:  timestamp,
	})

	w.WriteHeader(http.StatusAccepted)
}

// handleTranscript feeds one transcript to the keyword spotter.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}

	s.voice.Feed(req.Text)

	w.WriteHeader(http.StatusAccepted)
}

// handleTrigger performs a manual emergency activation.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}

	if req.Reason == "" {
		httpError(w, r, http.StatusBadRequest, errors.New("reason is required"))
		return
	}

	activated, err := s.service.Trigger(r.Context(), req.Reason, req.Actor)
	if err != nil {
		httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusOK, &triggerResponse{
		Activated: activated,
		State:     s.service.State(),
	})
}

// handleCancel performs the explicit user cancellation.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}

	err := s.service.Cancel(r.Context(), req.Actor)
	switch {
	case errors.Is(err, core.ErrNotActive):
		httpError(w, r, http.StatusConflict, err)
		return
	case err != nil:
		httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusOK, &triggerResponse{
		Activated: false,
		State:     s.service.State(),
	})
}

// handleAcknowledge flips the acknowledged flag of one alert.
func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}

	err := s.service.Acknowledge(r.Context(), req.ID)
	switch {
	case errors.Is(err, core.ErrAlertNotFound):
		httpError(w, r, http.StatusNotFound, err)
		return
	case err != nil:
		httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleClear empties the alert log. Accepted in any state.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearAlerts(r.Context()); err != nil {
		httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetSettings returns the runtime settings in effect.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.Settings(r.Context())
	if err != nil {
		httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// handlePutSettings replaces the runtime settings; the change takes effect
// on the next relevant evaluation.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req config.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := s.service.UpdateSettings(r.Context(), &req); err != nil {
		httpError(w, r, http.StatusInternalServerError, err)
		return
	}

	settings, err := s.service.Settings(r.Context())
	if err != nil {
		httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// writeJSON encodes the payload with the proper content type.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(payload)
}

// httpError logs and reports a request failure.
func httpError(w http.ResponseWriter, r *http.Request, status int, err error) {
	logger.WarnKV(r.Context(), "Request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)

	http.Error(w, err.Error(), status)
}
