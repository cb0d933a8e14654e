// Package server implements the TCP accept loop: admission control,
// per-connection dispatch, and graceful shutdown drain.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"miniredis/internal/cmd"
	"miniredis/internal/config"
	"miniredis/internal/frame"
	"miniredis/internal/logger"
	"miniredis/internal/resp/conn"
	"miniredis/internal/shutdown"
	"miniredis/internal/store"
)

// acceptBackoffSchedule is the accept loop's retry delay sequence: doubling
// from config.AdmissionBackoffBase across 6 retries (1, 2, 4, 8, 16, 32
// seconds with the default base, 63s total).
var acceptBackoffSchedule = func() []time.Duration {
	schedule := make([]time.Duration, 6)
	delay := config.AdmissionBackoffBase
	for i := range schedule {
		schedule[i] = delay
		delay *= 2
	}
	return schedule
}()

// Listener accepts connections on a net.Listener, bounding concurrency with
// an admission semaphore and fanning a single shutdown signal out to every
// in-flight connection handler.
type Listener struct {
	listener net.Listener
	store    *store.Store
	sem      *semaphore.Weighted
	shutdown *shutdown.Broadcast
	wg       sync.WaitGroup
}

// New wraps listener with a fresh Store and admission control capped at
// maxConnections concurrent connections. pubsubBufferSize sets the
// per-subscriber channel capacity the Store hands every new subscription
// (config.StoreConfig.PubSubBufferSize); a non-positive value falls back
// to the Store's own default.
func New(listener net.Listener, maxConnections, pubsubBufferSize int) *Listener {
	return &Listener{
		listener: listener,
		store:    store.NewStore(pubsubBufferSize),
		sem:      semaphore.NewWeighted(int64(maxConnections)),
		shutdown: shutdown.New(),
	}
}

// Run accepts connections until ctx is canceled. On cancellation it stops
// accepting, signals every in-flight handler to shut down, waits for them
// to finish their current frame, and closes the Store.
func (l *Listener) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.shutdown.Trigger()
		l.listener.Close()
	}()

	err := l.acceptLoop(ctx)

	l.wg.Wait()
	l.store.Close()

	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (l *Listener) acceptLoop(ctx context.Context) error {
	retry := 0
	for {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		nc, err := l.listener.Accept()
		if err != nil {
			l.sem.Release(1)
			if ctx.Err() != nil {
				return nil
			}
			if retry >= len(acceptBackoffSchedule) {
				return err
			}
			delay := acceptBackoffSchedule[retry]
			logger.Warn("accept error, retrying in %s: %v", delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			retry++
			continue
		}
		retry = 0

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.sem.Release(1)
			l.handleConnection(nc)
		}()
	}
}

// connFrame is one read result handed from the background reader goroutine
// to handleConnection's select loop.
type connFrame struct {
	f   *frame.Frame
	err error
}

func (l *Listener) handleConnection(nc net.Conn) {
	c := conn.New(nc)
	defer c.Close()

	recv := l.shutdown.Listen()
	ctx := cmd.NewContext(l.store, c, recv)

	frameCh := make(chan connFrame)
	stopReader := make(chan struct{})
	defer close(stopReader)

	go func() {
		for {
			f, err := c.ReadFrame()
			select {
			case frameCh <- connFrame{f, err}:
			case <-stopReader:
				return
			}
			if err != nil || f == nil {
				return
			}
		}
	}()

	for {
		var res connFrame
		select {
		case <-recv.Done():
			return
		case res = <-frameCh:
		}

		if res.err != nil {
			if !errors.Is(res.err, conn.ErrConnReset) {
				logger.Debug("connection %s: read error: %v", c.RemoteAddr(), res.err)
			}
			return
		}
		if res.f == nil {
			return
		}

		command, err := cmd.FromFrame(*res.f)
		if err != nil {
			logger.Debug("connection %s: protocol error: %v", c.RemoteAddr(), err)
			return
		}
		if err := command.Apply(ctx); err != nil {
			logger.Debug("connection %s: write error: %v", c.RemoteAddr(), err)
			return
		}
	}
}
