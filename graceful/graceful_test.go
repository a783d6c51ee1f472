package graceful

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStartClosesInReverseOrder(t *testing.T) {
	var order []int
	for i := 1; i <= 3; i++ {
		AddCloser(func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}
	boom := errors.New("listen tcp :5000: bind: address already in use")
	err := Start(context.Background(), func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want %v", err, boom)
	}
	if got := fmt.Sprint(order); got != "[3 2 1]" {
		t.Errorf("closers ran in %s", got)
	}
}

func TestClose(t *testing.T) {
	closed := make(chan struct{})
	AddCloser(func(context.Context) error {
		close(closed)
		return nil
	})
	go func() {
		time.Sleep(10 * time.Millisecond)
		Close()
	}()
	err := Start(context.Background(), func(ctx context.Context) error {
		<-closed
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case <-closed:
	default:
		t.Fatal("closer did not run")
	}
}
