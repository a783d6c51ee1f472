// Package graceful shutdown for server
package graceful

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/saba2003/devcamper-api/async"
	"github.com/saba2003/devcamper-api/log"
)

var (
	mu      sync.Mutex
	closers []func(ctx context.Context) error
	signals = make(chan os.Signal, 10)
)

// CloseTimeout bound every closer
var CloseTimeout = time.Minute

// Fn is a function with error.
type Fn func(context.Context) error

// AddCloser add closer, safe for concurrent use.
func AddCloser(closer func(ctx context.Context) error) {
	mu.Lock()
	closers = append(closers, closer)
	mu.Unlock()
}

// Close the app gracefully.
func Close() {
	signals <- nil
}

// Start run every fn in its own goroutine and block until SIGINT, SIGTERM,
// Close, ctx done or the first fn error. Then the closers run in the order of
// first-in-last-out. The first fn error is returned.
func Start(ctx context.Context, fn ...Fn) error {
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	pool := async.New(ctx)
	for _, f := range fn {
		pool.Go(f)
	}
	done := make(chan error, 1)
	go func() {
		done <- pool.Await()
	}()
	var err error
	select {
	case sig := <-signals:
		if sig != nil {
			log.Action("graceful.Start").Warn("closed by %s", sig.String())
		}
	case err = <-done:
		if err != nil {
			log.Action("graceful.Start").Error(err.Error())
		}
	case <-ctx.Done():
	}
	runClosers()
	return err
}

// runClosers close all registered closers, they are removed once run.
func runClosers() {
	mu.Lock()
	pending := closers
	closers = nil
	mu.Unlock()
	for i := len(pending) - 1; i > -1; i-- {
		ctx, cc := context.WithTimeout(context.Background(), CloseTimeout)
		err := pending[i](ctx)
		cc()
		if err == nil {
			continue
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) && strings.HasPrefix(pathErr.Path, "/dev/std") {
			continue
		}
		log.Action("graceful.Close").Warn(err.Error())
	}
}
