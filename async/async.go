package async

import (
	"context"
	"sync"
)

// Future is a function design pattern for async/await
// It can Execute pipeline functions concurrently
// Examples in async_test.go
type Future struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

// New promise. The context passed to every fn is cancelled on the first error.
func New(ctx context.Context) *Future {
	fu := &Future{}
	fu.ctx, fu.cancel = context.WithCancel(ctx)
	return fu
}

// Go execute fn in a goroutine.
func (f *Future) Go(fn func(ctx context.Context) error) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := fn(f.ctx); err != nil {
			f.fail(err)
		}
	}()
}

func (f *Future) fail(err error) {
	f.once.Do(func() {
		f.err = err
		f.cancel()
	})
}

// Async execute fn in async, the returned pointer is filled when Await returns nil.
//
//	count := async.Async(fu, db.Count, table)
//	if err := fu.Await(); err != nil { ... }
//	use(*count)
func Async[I, O any](f *Future, fn func(ctx context.Context, in I) (O, error), in I) *O {
	out := new(O)
	f.Go(func(ctx context.Context) error {
		v, err := fn(ctx, in)
		if err != nil {
			return err
		}
		*out = v
		return nil
	})
	return out
}

// Await wait for all pipeline functions done or context.Done()
// Await return the first error, or ctx.Err() or nil
func (f *Future) Await() error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-f.ctx.Done():
		<-done
	}
	f.once.Do(func() {
		f.err = f.ctx.Err()
	})
	f.cancel()
	return f.err
}
