// Package redis implements dependency of rueidis, it backs token revocation,
// the distributed rate limit and the recompute locks of the api.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidiscompat"
	"github.com/redis/rueidis/rueidislock"
	"github.com/saba2003/devcamper-api/dependencies/uri"
)

// Redis instance
type Redis struct {
	client      rueidis.Client
	locker      rueidislock.Locker
	rateLimiter *rateLimiter
	cmdable     rueidiscompat.Cmdable
}

// lockerOptions the locker settings read from the uri query,
// redis://host:6379?keyPrefix=devcamper:lock&keyValidity=5s
type lockerOptions struct {
	KeyPrefix      string
	KeyValidity    time.Duration
	TryNextAfter   time.Duration
	KeyMajority    int32
	NoLoopTracking bool
}

// New redis instance
func New(ctx context.Context, uri string) (*Redis, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	cli := &Redis{}
	err = cli.Init(ctx, u)
	return cli, err
}

// Init initialization
func (r *Redis) Init(ctx context.Context, u *url.URL) error {
	query := u.Query()
	opts := rueidis.ClientOption{
		InitAddress:  strings.Split(u.Host, ","),
		ClientName:   query.Get("client"),
		ShuffleInit:  query.Get("shuffle") == "true",
		DisableCache: query.Get("cache") != "true",
	}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}
	if masterSet := query.Get("master"); masterSet != "" {
		opts.Sentinel = rueidis.SentinelOption{
			MasterSet:  masterSet,
			Username:   opts.Username,
			Password:   opts.Password,
			ClientName: opts.ClientName,
		}
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		opts.SelectDB, _ = strconv.Atoi(db)
	} else {
		opts.SelectDB, _ = strconv.Atoi(query.Get("db"))
	}
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return err
	}
	if err = client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return errors.New("redis can not dial " + u.Redacted() + " - " + err.Error())
	}
	var lo lockerOptions
	if err = uri.DecodeQuery(query, &lo); err != nil {
		client.Close()
		return fmt.Errorf("unmarshal to redis locker error %w", err)
	}
	if lo.KeyPrefix == "" {
		lo.KeyPrefix = "devcamper:lock"
	}
	r.locker, err = rueidislock.NewLocker(rueidislock.LockerOption{
		ClientOption:   opts,
		KeyPrefix:      lo.KeyPrefix,
		KeyValidity:    lo.KeyValidity,
		TryNextAfter:   lo.TryNextAfter,
		KeyMajority:    lo.KeyMajority,
		NoLoopTracking: lo.NoLoopTracking,
	})
	if err != nil {
		client.Close()
		return errors.New("redis locker error " + u.Redacted() + " - " + err.Error())
	}
	r.client = client
	r.rateLimiter = newRateLimiter(r.client, time.Minute, 10*time.Minute)
	r.cmdable = rueidiscompat.NewAdapter(r.client)
	return nil
}

// Close redis
func (r *Redis) Close(_ context.Context) error {
	r.rateLimiter.stop()
	r.locker.Close()
	r.client.Close()
	return nil
}

// WithLock hold the named lock until cancel is called or ctx is done
func (r *Redis) WithLock(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	return r.locker.WithContext(ctx, name)
}

// Client redis client
func (r *Redis) Client() rueidis.Client {
	return r.client
}

// Cmdable the redis cmdable
func (r *Redis) Cmdable() rueidiscompat.Cmdable {
	return r.cmdable
}
