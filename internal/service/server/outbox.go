package server

import (
	"context"

	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/logger"
	"github.com/surakshasphere/sentinel/internal/siren"
)

// logDispatcher writes composed emergency messages to the log.
// Actual delivery (SMS, push) happens on the companion device; the server
// records what it would have handed over.
type logDispatcher struct {
	ctx context.Context
}

func newLogDispatcher(ctx context.Context) *logDispatcher {
	return &logDispatcher{ctx: logger.WithName(ctx, "outbox")}
}

// Dispatch logs the payload that a delivery channel would send.
func (d *logDispatcher) Dispatch(_ context.Context, payload *safety.MessagePayload) {
	if payload == nil {
		return
	}

	logger.InfoKV(d.ctx, "Emergency message composed",
		"id", payload.ID,
		"recipient", payload.Recipient,
		"body", payload.Body,
	)
}

// logFeedback stands in for the device's haptic engine.
type logFeedback struct {
	ctx context.Context
}

func newLogFeedback(ctx context.Context) *logFeedback {
	return &logFeedback{ctx: logger.WithName(ctx, "feedback")}
}

// Emergency marks an escalation cue.
func (f *logFeedback) Emergency() {
	logger.Info(f.ctx, "Feedback cue: emergency")
}

// Advisory marks a caution cue.
func (f *logFeedback) Advisory() {
	logger.Info(f.ctx, "Feedback cue: advisory")
}

// logSirenOutput stands in for the device's audio output.
type logSirenOutput struct {
	ctx context.Context
}

func newLogSirenOutput(ctx context.Context) *logSirenOutput {
	return &logSirenOutput{ctx: logger.WithName(ctx, "siren")}
}

// Play logs one sweep cycle.
func (o *logSirenOutput) Play(tone siren.Tone) {
	logger.DebugKV(o.ctx, "Siren cycle",
		"base_hz", tone.BaseHz,
		"peak_hz", tone.PeakHz,
	)
}

// Stop logs the cut-off.
func (o *logSirenOutput) Stop() {
	logger.Debug(o.ctx, "Siren stopped")
}
