// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/eventbus"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/transport"
)

// Client is one connected subscriber bound to a party channel. A dedicated
// writer goroutine drains the bounded outbound queue onto the connection.
type Client struct {
	PlayerID string
	PartyID  string

	conn      Conn
	outbound  chan transport.Frame
	done      chan struct{}
	closeOnce sync.Once

	reasonMu sync.Mutex
	reason   string
}

// enqueue pushes a frame onto the client's outbound queue without blocking.
// It reports false when the queue is full.
func (c *Client) enqueue(frame transport.Frame) bool {
	select {
	case c.outbound <- frame:
		return true
	default:
		return false
	}
}

// close stops the writer and closes the connection once.
func (c *Client) close(reason string) {
	c.closeOnce.Do(func() {
		c.reasonMu.Lock()
		c.reason = reason
		c.reasonMu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

// CloseReason returns why the client was closed, empty while connected.
func (c *Client) CloseReason() string {
	c.reasonMu.Lock()
	defer c.reasonMu.Unlock()
	return c.reason
}

func (c *Client) writePump() {
	for {
		select {
		case frame := <-c.outbound:
			if err := c.conn.WriteJSON(frame); err != nil {
				c.close("write_failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

// channel is the per-party fan-out point: the subscriber set, the bus
// subscription feeding it and the grace timer armed when the last subscriber
// detaches.
type channel struct {
	partyID string

	mu      sync.RWMutex
	clients map[*Client]struct{}

	sub        *eventbus.Subscription
	graceTimer *time.Timer
}

func (ch *channel) addClient(client *Client) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.clients[client] = struct{}{}
	if ch.graceTimer != nil {
		ch.graceTimer.Stop()
		ch.graceTimer = nil
	}
}

// removeClient drops the client and reports whether the channel is now empty.
func (ch *channel) removeClient(client *Client) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	delete(ch.clients, client)
	return len(ch.clients) == 0
}

func (ch *channel) isEmpty() bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return len(ch.clients) == 0
}

// fanOut enqueues the frame to every client and returns the clients whose
// outbound queue overflowed.
func (ch *channel) fanOut(frame transport.Frame) []*Client {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	var overflowed []*Client
	for client := range ch.clients {
		if !client.enqueue(frame) {
			overflowed = append(overflowed, client)
		}
	}
	return overflowed
}

func (ch *channel) allClients() []*Client {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	clients := make([]*Client, 0, len(ch.clients))
	for client := range ch.clients {
		clients = append(clients, client)
	}
	return clients
}
