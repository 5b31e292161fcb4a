// Package orch coordinates presence, voice sessions, participant state,
// signaling and calls on top of the app stores.
package orch

import (
	"context"
	"time"

	"github.com/dkeye/voicehub/internal/app"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/dkeye/voicehub/internal/metrics"
	"github.com/rs/zerolog/log"
)

type Config struct {
	GracePeriod time.Duration
	RingTimeout time.Duration
	// FanOut bounds concurrent deliveries of one chat-wide broadcast.
	FanOut int
	Policy app.Policy
}

type Orchestrator struct {
	Registry  *app.Registry
	Sessions  *app.SessionStore
	Calls     *app.CallBook
	Relay     *app.Relay
	Directory core.ChatDirectory
	Metrics   *metrics.Collector

	now func() time.Time
}

func New(cfg Config, dir core.ChatDirectory, out core.Deliverer, m *metrics.Collector) *Orchestrator {
	reg := app.NewRegistry()
	o := &Orchestrator{
		Registry:  reg,
		Sessions:  app.NewSessionStore(cfg.GracePeriod, nil),
		Relay:     app.NewRelay(out, reg, cfg.Policy, m, cfg.FanOut),
		Directory: dir,
		Metrics:   m,
		now:       time.Now,
	}
	o.Calls = app.NewCallBook(cfg.RingTimeout, o.onRingTimeout)
	o.Sessions.OnExpire(o.onSessionExpired)
	return o
}

// StateSource exposes live gauges for the metrics collector.
func (o *Orchestrator) StateSource() metrics.StateSource {
	return metrics.StateSource{
		OnlineUsers:  o.Registry.OnlineCount,
		Sessions:     o.Sessions.Len,
		Participants: o.Sessions.ParticipantCount,
	}
}

// Shutdown stops session and ring timers. Live state is dropped with the process.
func (o *Orchestrator) Shutdown() {
	o.Sessions.Stop()
	o.Calls.Stop()
	log.Info().Str("module", "orch").Msg("timers stopped")
}

// BroadcastToChatWatchers delivers to every member of the chat, voice or not.
// Recipients come from the chat directory; lookup failures are logged and swallowed.
func (o *Orchestrator) BroadcastToChatWatchers(ctx context.Context, chatID domain.ChatID, event string, payload any) {
	members, err := o.Directory.ResolveChatMembers(ctx, chatID)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("chat", string(chatID)).Str("event", event).Msg("resolve chat members")
		return
	}
	o.Relay.BroadcastToUsers(ctx, members, event, payload)
}
