// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"

	"github.com/pdiddy/librarian/internal/backend"
)

// ErrClosed is returned by Loop methods after the loop has stopped.
var ErrClosed = errors.New("session loop stopped")

// Backend is the external search service.
type Backend interface {
	Search(ctx context.Context, query string) (backend.SearchResponse, error)
	Chat(ctx context.Context, message string) (backend.ChatReply, error)
}

// Loop owns a Session and applies every mutation on a single goroutine.
// Backend calls run concurrently; their completions are queued back onto
// the loop, where stale ones are discarded by sequence number.
type Loop struct {
	sess    *Session
	backend Backend
	events  chan func(context.Context)
	done    chan struct{}
}

// NewLoop returns a Loop for sess. Call Run to start processing.
func NewLoop(sess *Session, b Backend) *Loop {
	return &Loop{
		sess:    sess,
		backend: b,
		events:  make(chan func(context.Context)),
		done:    make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.events:
			fn(ctx)
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) do(ctx context.Context, fn func(loopCtx context.Context)) error {
	finished := make(chan struct{})
	event := func(loopCtx context.Context) {
		defer close(finished)
		fn(loopCtx)
	}
	select {
	case l.events <- event:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// post queues fn without waiting. It gives up when the loop stops.
func (l *Loop) post(fn func(loopCtx context.Context)) {
	select {
	case l.events <- fn:
	case <-l.done:
	}
}

// Result is the outcome of one Search or Chat call.
type Result struct {
	// Applied is false when a newer submission superseded this one.
	Applied bool
	State   State
}

// Search submits query, calls the backend and waits until the completion
// has been applied or dropped as stale.
func (l *Loop) Search(ctx context.Context, query string) (Result, error) {
	var (
		ticket Ticket
		err    error
	)
	if doErr := l.do(ctx, func(context.Context) { ticket, err = l.sess.Submit(query) }); doErr != nil {
		return Result{}, doErr
	}
	if err != nil {
		return Result{}, err
	}

	applied := make(chan Result, 1)
	go func() {
		resp, callErr := l.backend.Search(l.callContext(ctx), ticket.Query)
		l.post(func(loopCtx context.Context) {
			ok := l.sess.Complete(loopCtx, ticket, resp, callErr)
			applied <- Result{Applied: ok, State: l.sess.State()}
		})
	}()

	return l.await(ctx, applied)
}

// Chat sends one chat message and waits for its reply to be applied.
func (l *Loop) Chat(ctx context.Context, message string) (Result, error) {
	var (
		ticket Ticket
		err    error
	)
	if doErr := l.do(ctx, func(context.Context) { ticket, err = l.sess.SubmitChat(message) }); doErr != nil {
		return Result{}, doErr
	}
	if err != nil {
		return Result{}, err
	}

	applied := make(chan Result, 1)
	go func() {
		reply, callErr := l.backend.Chat(l.callContext(ctx), ticket.Query)
		l.post(func(context.Context) {
			ok := l.sess.CompleteChat(ticket, reply, callErr)
			applied <- Result{Applied: ok, State: l.sess.State()}
		})
	}()

	return l.await(ctx, applied)
}

// callContext keeps backend calls running after the caller stops waiting;
// the completion is still applied to the session.
func (l *Loop) callContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (l *Loop) await(ctx context.Context, applied <-chan Result) (Result, error) {
	select {
	case r := <-applied:
		return r, nil
	case <-l.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Select opens result i in the playground.
func (l *Loop) Select(ctx context.Context, i int) (bool, State, error) {
	var (
		opened bool
		st     State
		err    error
	)
	doErr := l.do(ctx, func(context.Context) {
		opened, err = l.sess.Select(i)
		st = l.sess.State()
	})
	if doErr != nil {
		return false, State{}, doErr
	}
	return opened, st, err
}

// ClearPlayground closes the open resource.
func (l *Loop) ClearPlayground(ctx context.Context) (State, error) {
	return l.mutate(ctx, func(context.Context) { l.sess.ClearPlayground() })
}

// RemoveHistory deletes one query from the history.
func (l *Loop) RemoveHistory(ctx context.Context, query string) (State, error) {
	return l.mutate(ctx, func(loopCtx context.Context) { l.sess.RemoveHistory(loopCtx, query) })
}

// ClearHistory empties the history.
func (l *Loop) ClearHistory(ctx context.Context) (State, error) {
	return l.mutate(ctx, func(loopCtx context.Context) { l.sess.ClearHistory(loopCtx) })
}

// ResetChat starts a fresh chat transcript.
func (l *Loop) ResetChat(ctx context.Context) (State, error) {
	return l.mutate(ctx, func(context.Context) { l.sess.ResetChat() })
}

// State returns a copy of the session.
func (l *Loop) State(ctx context.Context) (State, error) {
	return l.mutate(ctx, func(context.Context) {})
}

func (l *Loop) mutate(ctx context.Context, fn func(loopCtx context.Context)) (State, error) {
	var st State
	err := l.do(ctx, func(loopCtx context.Context) {
		fn(loopCtx)
		st = l.sess.State()
	})
	return st, err
}
