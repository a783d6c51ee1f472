// Package memory an in process broker, brokers with the same uri host share
// their topics. It backs single instance deployments and tests.
package memory

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/saba2003/devcamper-api/dependencies/broker"
	"github.com/saba2003/devcamper-api/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func init() {
	broker.RegisterImplements("memory", func(_ context.Context, u *url.URL) (broker.MQ, error) {
		return New(u), nil
	})
}

var (
	busesMu sync.Mutex
	buses   = map[string]*bus{}
)

// bus the topics shared by every broker of one host
type bus struct {
	mu     sync.RWMutex
	queues map[string]map[string]*queue // topic -> queue name -> queue
}

type queue struct {
	ch   chan *broker.Message
	refs int
}

// Memory the broker instance
type Memory struct {
	bus          *bus
	defaultTopic string
	buffer       int
	mu           sync.Mutex
	cancels      map[string]context.CancelFunc
	closed       bool
}

// New memory broker of the uri host
func New(u *url.URL) *Memory {
	busesMu.Lock()
	b, ok := buses[u.Host]
	if !ok {
		b = &bus{queues: map[string]map[string]*queue{}}
		buses[u.Host] = b
	}
	busesMu.Unlock()
	return &Memory{
		bus:          b,
		defaultTopic: strings.TrimPrefix(u.Path, "/"),
		buffer:       256,
		cancels:      map[string]context.CancelFunc{},
	}
}

// Publish deliver msg to every queue of the topic, a full queue blocks until ctx is done.
func (m *Memory) Publish(ctx context.Context, topic string, msg *broker.Message) error {
	if topic == "" {
		topic = m.defaultTopic
	}
	m.bus.mu.RLock()
	targets := make([]chan *broker.Message, 0, len(m.bus.queues[topic]))
	for _, q := range m.bus.queues[topic] {
		targets = append(targets, q.ch)
	}
	m.bus.mu.RUnlock()
	for _, ch := range targets {
		select {
		case ch <- copyMessage(msg):
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		}
	}
	return nil
}

func copyMessage(msg *broker.Message) *broker.Message {
	c := &broker.Message{Header: make(map[string]string, len(msg.Header))}
	for k, v := range msg.Header {
		c.Header[k] = v
	}
	c.Body = append([]byte(nil), msg.Body...)
	return c
}

// Subscribe start one consumer goroutine per topic
func (m *Memory) Subscribe(ctx context.Context, topics []string, queueName string,
	h broker.Handler, _ bool,
) error {
	if len(topics) == 0 {
		topics = []string{m.defaultTopic}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return status.Error(codes.FailedPrecondition, "broker closed")
	}
	key := strings.Join(topics, ",")
	if _, ok := m.cancels[key]; ok {
		return status.Errorf(codes.AlreadyExists, "topics %s already subscribed", key)
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancels[key] = cancel
	for _, topic := range topics {
		q := m.bus.join(topic, queueName, m.buffer)
		go m.consume(ctx, topic, queueName, q, h)
	}
	return nil
}

func (b *bus) join(topic, name string, buffer int) *queue {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.queues[topic] == nil {
		b.queues[topic] = map[string]*queue{}
	}
	q, ok := b.queues[topic][name]
	if !ok {
		q = &queue{ch: make(chan *broker.Message, buffer)}
		b.queues[topic][name] = q
	}
	q.refs++
	return q
}

func (b *bus) leave(topic, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[topic][name]
	if !ok {
		return
	}
	if q.refs--; q.refs == 0 {
		delete(b.queues[topic], name)
	}
}

func (m *Memory) consume(ctx context.Context, topic, queueName string, q *queue, h broker.Handler) {
	defer m.bus.leave(topic, queueName)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q.ch:
			if err := h(&publication{topic: topic, m: msg}); err != nil {
				log.Extract(ctx).With(map[string]any{
					"action": "memory.Subscribe",
					"topic":  topic,
				}).Error(err.Error())
			}
		}
	}
}

// Unsubscribe stop the consumers of the topics
func (m *Memory) Unsubscribe(_ context.Context, topics []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.Join(topics, ",")
	if cancel, ok := m.cancels[key]; ok {
		cancel()
		delete(m.cancels, key)
	}
	return nil
}

// Close stop every consumer of this broker
func (m *Memory) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, cancel := range m.cancels {
		cancel()
		delete(m.cancels, key)
	}
	m.closed = true
	return nil
}

type publication struct {
	topic string
	m     *broker.Message
}

func (p *publication) Message() *broker.Message { return p.m }

// Ack is a no-op, messages are not redelivered
func (p *publication) Ack() error { return nil }

func (p *publication) Topic() string { return p.topic }
