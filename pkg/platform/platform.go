// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package platform wires the matchmaking components together: event bus, tick
// engine, party state machine and session channel manager, with the external
// adapters plugged into their seams. The bus and engine are explicitly
// constructed objects handed to their consumers; nothing here is a singleton.
package platform

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/adapters"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/config"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/engine"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/eventbus"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/party"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/session"
)

// Options carries the external collaborators. Identity is required for the
// streaming surface; Snapshots and Broker may be nil for a single-instance,
// non-durable deployment.
type Options struct {
	Identity  adapters.IdentityVerifier
	Snapshots adapters.SnapshotStore
	Broker    adapters.Broker
	Registry  *prometheus.Registry
}

// Platform is the assembled matchmaking service core.
type Platform struct {
	Config   *config.Config
	Bus      *eventbus.Bus
	Engine   *engine.Engine
	Parties  *party.StateMachine
	Sessions *session.Manager
	Metrics  metrics.MatchmakingMetrics
}

func New(cfg *config.Config, opts Options) *Platform {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := metrics.NewMetrics(registry)

	bus := eventbus.New(cfg.SubscriptionBufferSize)
	e := engine.New(cfg, m)
	parties := party.NewStateMachine(bus, e, opts.Snapshots)
	e.SetListener(parties)

	if opts.Broker != nil {
		e.SetBroker(opts.Broker)
		bus.SetExternalPublisher(&brokerEventPublisher{broker: opts.Broker})
	}

	return &Platform{
		Config:   cfg,
		Bus:      bus,
		Engine:   e,
		Parties:  parties,
		Sessions: session.NewManager(cfg, bus, opts.Identity, parties, m),
		Metrics:  m,
	}
}

// Run starts the tick worker.
func (p *Platform) Run(scope *envelope.Scope) {
	p.Engine.Run(scope)
}

// Shutdown stops the tick worker, draining its mailbox and running one final
// tick before refusing further commands.
func (p *Platform) Shutdown(ctx context.Context) error {
	return p.Engine.Shutdown(ctx)
}

// brokerEventPublisher forwards every bus event to the broker so instances
// sharing the same party observe it.
type brokerEventPublisher struct {
	broker adapters.Broker
}

func (b *brokerEventPublisher) PublishEvent(scope *envelope.Scope, event models.Event) error {
	return b.broker.Publish(scope, constants.SubjectPartyEvents, event)
}
