package memory_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saba2003/devcamper-api/dependencies/broker"
	_ "github.com/saba2003/devcamper-api/dependencies/broker/memory"
)

func TestMemoryBroker(t *testing.T) {
	ctx := context.Background()
	pub, err := broker.New(ctx, "memory://test-fanout/mail")
	if err != nil {
		t.Fatal(err)
	}
	sub, err := broker.New(ctx, "memory://test-fanout/mail")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close(ctx)
	if pub.Topic() != "mail" {
		t.Fatalf("topic = %s", pub.Topic())
	}
	got := make(chan *broker.Message, 4)
	var worker1, worker2 atomic.Int32
	handler := func(counter *atomic.Int32) broker.Handler {
		return func(p broker.Publication) error {
			counter.Add(1)
			got <- p.Message()
			return nil
		}
	}
	if err = sub.Subscribe(ctx, nil, "mailer", handler(&worker1), true); err != nil {
		t.Fatal(err)
	}
	other, _ := broker.New(ctx, "memory://test-fanout/mail")
	defer other.Close(ctx)
	if err = other.Subscribe(ctx, nil, "audit", handler(&worker2), true); err != nil {
		t.Fatal(err)
	}
	msg := &broker.Message{Header: map[string]string{broker.HeaderKey: "1"}, Body: []byte("hello")}
	if err = pub.Publish(ctx, "", msg); err != nil {
		t.Fatal(err)
	}
	msg.Body[0] = 'j'
	for i := 0; i < 2; i++ {
		select {
		case m := <-got:
			if string(m.Body) != "hello" || m.Header[broker.HeaderKey] != "1" {
				t.Errorf("unexpected message %+v", m)
			}
		case <-time.After(time.Second):
			t.Fatal("message not delivered to every queue")
		}
	}
	if worker1.Load() != 1 || worker2.Load() != 1 {
		t.Errorf("deliveries = %d, %d", worker1.Load(), worker2.Load())
	}
	if err = sub.Subscribe(ctx, nil, "mailer", handler(&worker1), true); err == nil {
		t.Error("subscribing the same topics twice should fail")
	}
}

func TestUnknownScheme(t *testing.T) {
	if _, err := broker.New(context.Background(), "nats://127.0.0.1:4222"); err == nil {
		t.Fatal("an unregistered scheme should fail")
	}
}
