// Package mqlru a ttl cache whose writes are fanned out to the other
// instances through a broker, so an updated user is evicted everywhere.
//
//	cache://memory?ttl=1m&capacity=10000          local only
//	kafka://127.0.0.1:9092/devcamper-cache?ttl=1m  fanout through kafka
//	memory://local/devcamper-cache?ttl=1m          fanout inside the process
package mqlru

import (
	"context"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	ttlcache "github.com/jellydator/ttlcache/v3"
	jsoniter "github.com/json-iterator/go"
	"github.com/saba2003/devcamper-api/dependencies/broker"
	"github.com/saba2003/devcamper-api/dependencies/uri"
	"github.com/saba2003/devcamper-api/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// message headers of the fanout
const (
	headerID       = "id"
	headerInstance = "instance"
	headerTTL      = "ttl"
)

// Lru the lru cache instance
type Lru struct {
	broker     *broker.Broker
	cache      *ttlcache.Cache[string, []byte]
	instanceID string
	topic      string
	ttl        time.Duration
}

type lruOpts struct {
	TTL      time.Duration
	Capacity uint64
	// Touch extend the ttl of an item on every hit
	Touch bool
	// Local keeps the cache local even with a broker uri
	Local bool
}

// New lru cache
func New(ctx context.Context, configURL string) (*Lru, error) {
	if configURL == "" {
		configURL = "cache://memory?ttl=5m"
	}
	u, err := url.Parse(configURL)
	if err != nil {
		return nil, err
	}
	cache := &Lru{}
	return cache, cache.Init(ctx, u)
}

// Init by uri
func (l *Lru) Init(ctx context.Context, u *url.URL) error {
	var o lruOpts
	if err := uri.DecodeQuery(u.Query(), &o); err != nil {
		return err
	}
	l.ttl = o.TTL
	if l.ttl <= 0 {
		l.ttl = 5 * time.Minute
	}
	opts := []ttlcache.Option[string, []byte]{ttlcache.WithTTL[string, []byte](l.ttl)}
	if o.Capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []byte](o.Capacity))
	}
	if !o.Touch {
		opts = append(opts, ttlcache.WithDisableTouchOnHit[string, []byte]())
	}
	l.cache = ttlcache.New[string, []byte](opts...)
	go l.cache.Start()
	if u.Scheme == "cache" || o.Local {
		return nil
	}
	l.broker = &broker.Broker{}
	if err := l.broker.Init(ctx, u); err != nil {
		l.cache.Stop()
		return err
	}
	l.instanceID = instanceID()
	l.topic = l.broker.Topic()
	return l.broker.Subscribe(context.Background(), []string{l.topic}, l.instanceID, l.receive, true)
}

func instanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return uuid.New().String()
	}
	if len(hostname) > 16 {
		hostname = hostname[len(hostname)-16:]
	}
	return hostname + "-" + strconv.Itoa(os.Getpid()) + "-" + uuid.New().String()[:8]
}

// receive apply a write of another instance
func (l *Lru) receive(publication broker.Publication) error {
	msg := publication.Message()
	key := msg.Header[headerID]
	if msg.Header[headerInstance] == l.instanceID {
		return nil
	}
	ttl, err := time.ParseDuration(msg.Header[headerTTL])
	if err != nil {
		log.Action("lru.Subscribe").Warn("invalid ttl for %s: %v", key, err)
		return nil
	}
	if ttl <= 0 || len(msg.Body) == 0 {
		l.cache.Delete(key)
		return nil
	}
	l.cache.Set(key, msg.Body, ttl)
	return nil
}

// Set with ttl, a nil data or a non-positive ttl deletes the key
func (l *Lru) Set(ctx context.Context, key string, data any, ttl time.Duration) error {
	var bytesData []byte
	if data == nil || ttl <= 0 {
		l.cache.Delete(key)
		ttl = 0
	} else {
		var err error
		if bytesData, err = json.Marshal(data); err != nil {
			return status.Errorf(codes.Internal, "cache marshal error %v", err)
		}
		l.cache.Set(key, bytesData, ttl)
	}
	if l.broker == nil {
		return nil
	}
	err := l.broker.Publish(ctx, l.topic, &broker.Message{
		Header: map[string]string{
			broker.HeaderKey: key,
			headerID:         key,
			headerInstance:   l.instanceID,
			headerTTL:        ttl.String(),
		},
		Body: bytesData,
	})
	if err != nil {
		log.Extract(ctx).Action("lru.Publish").Warn(err.Error())
	}
	return err
}

// Delete the key on every instance
func (l *Lru) Delete(ctx context.Context, key string) error {
	return l.Set(ctx, key, nil, 0)
}

// Get the data into ptr, NotFound when missing or expired
func (l *Lru) Get(_ context.Context, key string, ptr any) error {
	item := l.cache.Get(key)
	if item == nil || item.IsExpired() {
		return status.Error(codes.NotFound, "cache not found")
	}
	if err := json.Unmarshal(item.Value(), ptr); err != nil {
		return status.Errorf(codes.Internal, "cache unmarshal error %v", err)
	}
	return nil
}

// GetOrNew get the cached value of key, or load it with newFn and cache it
// with the default ttl. A value which can not be cached is still returned.
func GetOrNew[T any](ctx context.Context, l *Lru, key string, newFn func(ctx context.Context) (T, error)) (T, error) {
	var v T
	if err := l.Get(ctx, key, &v); err == nil {
		return v, nil
	}
	v, err := newFn(ctx)
	if err != nil {
		return v, err
	}
	_ = l.Set(ctx, key, v, l.ttl)
	return v, nil
}

// Close stop the expiration loop and the fanout
func (l *Lru) Close(ctx context.Context) error {
	l.cache.Stop()
	if l.broker != nil {
		return l.broker.Close(ctx)
	}
	return nil
}
