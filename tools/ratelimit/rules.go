// Package ratelimit limit the api requests by route prefix, client ip and
// header values, the counters live in memory or in redis.
package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// Rules the rate limit by router, bound from the RateLimit section of the config:
//
//	rateLimit:
//	  default: {headers: [ip], quota: 100, duration: 10m}
//	  limit:
//	    - {prefix: /api/v1/auth/login, headers: [ip], quota: 10, duration: 10m}
//	  block:
//	    - {key: ip, value: 10.0.0.66}
type Rules struct {
	// Limit match the header keys under the route prefix as a limit.
	Limit []Limit `yaml:"limit"`
	// Allow is the whitelist, a matching rule replaces the limits.
	Allow []Allow `yaml:"allow"`
	// Block is the blacklist, a match is refused.
	Block []KV `yaml:"block"`
	// Default limit for every other route.
	Default Default `yaml:"default"`
	// Disabled turn off the limit
	Disabled bool `yaml:"disabled"`
}

// KeyIP the special key resolved to the client ip instead of a header
const KeyIP = "ip"

const (
	// NoLimit no limit
	NoLimit int = -1
	// Blocked the request is refused
	Blocked int = 0
)

// Match frequency limit rule
func (r *Rules) Match(path string, header Getter) *Value {
	if r.Disabled {
		return &Value{Quota: NoLimit}
	}
	for _, kv := range r.Block {
		headerValue := header.Get(kv.Key)
		if headerValue != "" && headerValue == kv.Value {
			return &Value{
				Quota:   Blocked,
				Message: fmt.Sprintf("%s %s is in the blacklist", getKeyName(kv.Key), headerValue),
			}
		}
	}
	for _, v := range r.Allow {
		if !strings.HasPrefix(path, v.Prefix) {
			continue
		}
		if v.Quota < 0 {
			return &Value{Quota: NoLimit}
		}
		value := &Value{
			Quota:    v.Quota,
			Duration: v.Duration,
		}
		if len(v.Match) == 0 && v.Duration > 0 {
			value.Key = v.Prefix
			value.Message = "limit key " + value.Key
			return value
		}
		for _, headerKV := range v.Match {
			if headerValue := header.Get(headerKV.Key); headerValue != "" && headerKV.Value == headerValue {
				value.Key = v.Prefix + ":" + headerValue
				value.Message = "limit key " + getKeyName(headerKV.Key)
				return value
			}
		}
	}
	for _, v := range r.Limit {
		if !strings.HasPrefix(path, v.Prefix) {
			continue
		}
		return getQuota(v, v.Prefix, header)
	}
	return getQuota(Limit{
		Headers:  r.Default.Headers,
		Quota:    r.Default.Quota,
		Duration: r.Default.Duration,
	}, "", header)
}

// getQuota the counter key is the prefix joined with every present header
// value, the default counter is shared by all routes.
func getQuota(quotaLimit Limit, prefix string, header Getter) *Value {
	if quotaLimit.Quota <= 0 || quotaLimit.Duration <= 0 {
		return &Value{Quota: NoLimit}
	}
	value := &Value{
		Quota:    quotaLimit.Quota,
		Duration: quotaLimit.Duration,
		Key:      prefix,
	}
	var keys []string
	for _, headerKey := range quotaLimit.Headers {
		if headerValue := header.Get(headerKey); headerValue != "" {
			value.Key += ":" + headerValue
			keys = append(keys, getKeyName(headerKey))
		}
	}
	if len(keys) == 0 {
		return &Value{Quota: NoLimit}
	}
	value.Message = "limit key " + strings.Join(keys, ",")
	return value
}

// Limit data
type Limit struct {
	Prefix   string        `yaml:"prefix"`
	Headers  []string      `yaml:"headers"`
	Quota    int           `yaml:"quota"`
	Duration time.Duration `yaml:"duration"`
}

// Default the default limit
type Default struct {
	Headers  []string      `yaml:"headers"`
	Quota    int           `yaml:"quota"`
	Duration time.Duration `yaml:"duration"`
}

// Value the limit matched for a request
type Value struct {
	// Key the counter key
	Key string
	// Message the hint for logs and the error
	Message string
	// Duration cycle
	Duration time.Duration
	// Quota per cycle, NoLimit or Blocked
	Quota int
}

func getKeyName(key string) string {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "x-") {
		return key[2:]
	}
	return key
}

// Allow is a whitelist rule
type Allow struct {
	Prefix string `yaml:"prefix"`
	// Match when one header matches
	Match []KV `yaml:"match"`
	// Quota -1 means no limit
	Quota    int           `yaml:"quota"`
	Duration time.Duration `yaml:"duration"`
}

// KV kv
type KV struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Getter the getter interface for map or http header
type Getter interface {
	Get(key string) string
}

// MapGetter a Getter on a map
type MapGetter map[string]string

// Get implement map value
func (m MapGetter) Get(key string) string {
	return m[key]
}
