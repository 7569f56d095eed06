// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

// command is one unit of work applied on the tick worker. Replies are sent on
// buffered channels so the worker never blocks on a slow caller. reject
// answers a command that arrived after shutdown so its caller never hangs.
type command interface {
	apply(scope *envelope.Scope, e *Engine)
	reject()
}

type enqueueCommand struct {
	entry models.QueueEntry
	reply chan error
}

func (c enqueueCommand) apply(scope *envelope.Scope, e *Engine) {
	err := e.store.Enqueue(c.entry)
	if err == nil {
		e.gossip(scope, constants.SubjectQueueEnqueue, c.entry)
	}
	c.reply <- err
}

func (c enqueueCommand) reject() {
	c.reply <- apierror.Wrap(apierror.ErrIllegalState, "engine is shut down")
}

type dequeueCommand struct {
	partyID string
	reply   chan error
}

func (c dequeueCommand) apply(scope *envelope.Scope, e *Engine) {
	if e.store.IsQueued(c.partyID) {
		e.store.Dequeue(c.partyID)
		e.gossip(scope, constants.SubjectQueueDequeue, map[string]string{"party_id": c.partyID})
	}
	c.reply <- nil
}

func (c dequeueCommand) reject() {
	c.reply <- apierror.Wrap(apierror.ErrIllegalState, "engine is shut down")
}

type isQueuedCommand struct {
	partyID string
	reply   chan bool
}

func (c isQueuedCommand) apply(scope *envelope.Scope, e *Engine) {
	c.reply <- e.store.IsQueued(c.partyID)
}

func (c isQueuedCommand) reject() {
	c.reply <- false
}

type sizesCommand struct {
	reply chan map[string]int
}

func (c sizesCommand) apply(scope *envelope.Scope, e *Engine) {
	c.reply <- e.store.SizesByBucket()
}

func (c sizesCommand) reject() {
	c.reply <- nil
}
