// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	TickIntervalMs          int     `env:"TICK_INTERVAL_MS"           envDefault:"200"            envDocs:"interval of the matchmaking tick loop in milliseconds"`
	MaxWaitTimeSecond       int     `env:"MAX_WAIT_TIME_SECOND"       envDefault:"120"            envDocs:"hard life-in-queue bound before an entry is retired with timeout"`
	MMRBandInitial          int     `env:"MMR_BAND_INITIAL"           envDefault:"100"            envDocs:"MMR tolerance applied to a freshly enqueued bucket"`
	MMRBandGrowthPerSecond  int     `env:"MMR_BAND_GROWTH_PER_SECOND" envDefault:"10"             envDocs:"MMR tolerance widening per second of the oldest entry's wait"`
	MMRBandMax              int     `env:"MMR_BAND_MAX"               envDefault:"500"            envDocs:"upper bound of the widened MMR tolerance"`
	MinMatchQuality         float64 `env:"MIN_MATCH_QUALITY"          envDefault:"0.6"            envDocs:"matches scoring below this quality are not emitted"`
	TeamCount               int     `env:"TEAM_COUNT"                 envDefault:"2"              envDocs:"number of teams per match"`
	MailboxSize             int     `env:"MAILBOX_SIZE"               envDefault:"1024"           envDocs:"bounded inbound command mailbox size of the tick worker"`
	SubscriptionBufferSize  int     `env:"SUBSCRIPTION_BUFFER_SIZE"   envDefault:"64"             envDocs:"bounded channel capacity handed to event bus subscribers"`
	OutboundQueueSize       int     `env:"OUTBOUND_QUEUE_SIZE"        envDefault:"256"            envDocs:"per-client outbound event queue, slowest subscriber is dropped on overflow"`
	PingIntervalSecond      int     `env:"PING_INTERVAL_SECOND"       envDefault:"30"             envDocs:"clients must ping at least this often or the channel is closed as idle"`
	ChannelGraceSecond      int     `env:"CHANNEL_GRACE_SECOND"       envDefault:"30"             envDocs:"grace period before an empty session channel is destroyed"`
	AdapterTimeoutSecond    int     `env:"ADAPTER_TIMEOUT_SECOND"     envDefault:"5"              envDocs:"per-call timeout for external adapter I/O"`
	AdapterMaxAttempts      int     `env:"ADAPTER_MAX_ATTEMPTS"       envDefault:"3"              envDocs:"adapter calls are retried with exponential backoff up to this many attempts"`
	BrokerDedupWindowSecond int     `env:"BROKER_DEDUP_WINDOW_SECOND" envDefault:"60"             envDocs:"window during which redelivered broker events are suppressed"`
	RedisAddr               string  `env:"REDIS_ADDR"                 envDefault:"localhost:6379" envDocs:"address of the Redis instance backing snapshots and cross-instance gossip"`
}

// FromEnv loads the configuration from environment variables, applying defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration with every field at its envDefault value.
func Default() *Config {
	return &Config{
		TickIntervalMs:          200,
		MaxWaitTimeSecond:       120,
		MMRBandInitial:          100,
		MMRBandGrowthPerSecond:  10,
		MMRBandMax:              500,
		MinMatchQuality:         0.6,
		TeamCount:               2,
		MailboxSize:             1024,
		SubscriptionBufferSize:  64,
		OutboundQueueSize:       256,
		PingIntervalSecond:      30,
		ChannelGraceSecond:      30,
		AdapterTimeoutSecond:    5,
		AdapterMaxAttempts:      3,
		BrokerDedupWindowSecond: 60,
		RedisAddr:               "localhost:6379",
	}
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c *Config) MaxWaitTime() time.Duration {
	return time.Duration(c.MaxWaitTimeSecond) * time.Second
}

func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSecond) * time.Second
}

func (c *Config) ChannelGrace() time.Duration {
	return time.Duration(c.ChannelGraceSecond) * time.Second
}

func (c *Config) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutSecond) * time.Second
}

func (c *Config) BrokerDedupWindow() time.Duration {
	return time.Duration(c.BrokerDedupWindowSecond) * time.Second
}
