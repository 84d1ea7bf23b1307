// Package query is a key-based read cache with stale-while-revalidate
// semantics, retry on failed reads and prefix invalidation.
//
// Reads go through Fetch. A fresh entry is returned as is. An entry older than
// its staleness window is returned marked Stale while a background refresh
// replaces it. Missing or invalidated entries are fetched synchronously, and
// concurrent fetches of one key share a single call.
package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/metrics"
)

const (
	DefaultStaleTime  = 60 * time.Second
	DefaultRetry      = 3
	DefaultBackoff    = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// Status is the lifecycle state of a read.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status by name in JSON view models.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options control a single Fetch.
type Options struct {
	// Enabled false skips the read entirely; the result is StatusIdle.
	Enabled bool
	// StaleTime is how long a fetched value counts as fresh.
	StaleTime time.Duration
	// Retry is the number of extra attempts after a failed read.
	Retry int
}

// Result is what a read yields.
type Result[T any] struct {
	Data      T         `json:"data"`
	Err       error     `json:"-"`
	Status    Status    `json:"status"`
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetched_at"`
}

// OK reports whether the result carries data.
func (r Result[T]) OK() bool { return r.Status == StatusSuccess }

type entry struct {
	value       interface{}
	hasValue    bool
	err         error
	fetchedAt   time.Time
	invalidated bool
	refreshing  bool
	generation  uint64
}

type subscription struct {
	id int
	fn func(keys []Key)
}

// Cache is safe for concurrent use. The lock is never held while fetching.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	subs    map[string][]subscription
	nextSub int

	group singleflight.Group
	bg    sync.WaitGroup

	staleTime  time.Duration
	retry      int
	backoff    time.Duration
	maxBackoff time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	log        logrus.FieldLogger
}

// Option customises a Cache.
type Option func(*Cache)

// WithStaleTime sets the default staleness window.
func WithStaleTime(d time.Duration) Option { return func(c *Cache) { c.staleTime = d } }

// WithRetry sets the default retry count for reads.
func WithRetry(n int) Option { return func(c *Cache) { c.retry = n } }

// WithBackoff sets the first retry delay and its cap; delays double per attempt.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Cache) { c.backoff, c.maxBackoff = base, max }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithSleep replaces the retry delay function.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Cache) { c.sleep = sleep }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = logging.Component(log, "query_cache") }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[Key]*entry),
		subs:       make(map[string][]subscription),
		staleTime:  DefaultStaleTime,
		retry:      DefaultRetry,
		backoff:    DefaultBackoff,
		maxBackoff: DefaultMaxBackoff,
		now:        time.Now,
		sleep:      sleepContext,
		log:        logging.Component(nil, "query_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Options returns enabled read options with the cache defaults.
func (c *Cache) Options() Options {
	return Options{Enabled: true, StaleTime: c.staleTime, Retry: c.retry}
}

// Fetch reads key through the cache, calling fn when the entry is missing,
// invalidated or stale.
func Fetch[T any](ctx context.Context, c *Cache, key Key, opts Options, fn func(ctx context.Context) (T, error)) Result[T] {
	if !opts.Enabled {
		return Result[T]{Status: StatusIdle}
	}

	c.mu.Lock()
	e := c.entries[key]
	if e != nil && e.hasValue && !e.invalidated {
		data, ok := e.value.(T)
		if !ok {
			c.mu.Unlock()
			return Result[T]{Status: StatusError, Err: fmt.Errorf("query: cached value for %s has type %T", key, e.value)}
		}
		res := Result[T]{Data: data, Status: StatusSuccess, FetchedAt: e.fetchedAt}
		if c.now().Sub(e.fetchedAt) <= opts.StaleTime {
			c.mu.Unlock()
			metrics.RecordCache(key.Kind, metrics.CacheHit)
			return res
		}
		res.Stale = true
		startRefresh := !e.refreshing
		if startRefresh {
			e.refreshing = true
		}
		c.mu.Unlock()
		metrics.RecordCache(key.Kind, metrics.CacheStale)
		if startRefresh {
			c.refresh(ctx, key, opts, erase(fn))
		}
		return res
	}
	c.mu.Unlock()

	metrics.RecordCache(key.Kind, metrics.CacheMiss)
	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		return c.load(ctx, key, opts, erase(fn))
	})
	if err != nil {
		return Result[T]{Status: StatusError, Err: err}
	}
	data, ok := v.(T)
	if !ok {
		return Result[T]{Status: StatusError, Err: fmt.Errorf("query: fetched value for %s has type %T", key, v)}
	}
	return Result[T]{Data: data, Status: StatusSuccess, FetchedAt: c.fetchedAt(key)}
}

func erase[T any](fn func(ctx context.Context) (T, error)) func(ctx context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	}
}

// refresh reloads key in the background. It is detached from the caller's
// cancellation but keeps its values.
func (c *Cache) refresh(ctx context.Context, key Key, opts Options, fn func(ctx context.Context) (interface{}, error)) {
	bgCtx := context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		_, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
			return c.load(bgCtx, key, opts, fn)
		})
		if err != nil {
			c.log.WithError(err).WithField("key", key.String()).Warn("background refresh failed")
		}
		c.mu.Lock()
		if e := c.entries[key]; e != nil {
			e.refreshing = false
		}
		c.mu.Unlock()
	}()
}

// load runs fn with retries and stores the outcome. A value fetched while the
// key was invalidated is stored but stays invalidated.
func (c *Cache) load(ctx context.Context, key Key, opts Options, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}
	gen := e.generation
	c.mu.Unlock()

	v, err := c.withRetry(ctx, key, opts.Retry, fn)

	c.mu.Lock()
	defer c.mu.Unlock()
	e = c.entries[key]
	if e == nil {
		// Removed while loading; return the value without caching it.
		return v, err
	}
	if err != nil {
		e.err = err
		return nil, err
	}
	e.value, e.hasValue, e.err = v, true, nil
	e.fetchedAt = c.now()
	e.invalidated = e.generation != gen
	return v, nil
}

func (c *Cache) withRetry(ctx context.Context, key Key, retries int, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	delay := c.backoff
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= retries || !Retryable(err) {
			return nil, err
		}
		c.log.WithError(err).WithFields(logrus.Fields{
			"key":     key.String(),
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Debug("read failed, retrying")
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, err
		}
		delay *= 2
		if delay > c.maxBackoff {
			delay = c.maxBackoff
		}
	}
}

// Retryable reports whether a failed read is worth another attempt.
// Authentication failures, cancellations and client errors other than
// 408 and 429 are final.
func Retryable(err error) bool {
	if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status == http.StatusRequestTimeout || apiErr.Status == http.StatusTooManyRequests
	}
	return true
}

func (c *Cache) fetchedAt(key Key) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[key]; e != nil {
		return e.fetchedAt
	}
	return time.Time{}
}

// --- Mutation-side API ---

// Invalidate marks every entry under prefix as invalidated so the next read
// refetches it, and tells subscribers of the kind. It returns the keys hit.
func (c *Cache) Invalidate(prefix Key) []Key {
	c.mu.Lock()
	var keys []Key
	for k, e := range c.entries {
		if k.HasPrefix(prefix) {
			e.invalidated = true
			e.generation++
			keys = append(keys, k)
		}
	}
	subs := append([]subscription(nil), c.subs[prefix.Kind]...)
	c.mu.Unlock()

	metrics.RecordCache(prefix.Kind, metrics.CacheInvalidate)
	c.log.WithFields(logrus.Fields{"prefix": prefix.String(), "keys": len(keys)}).Debug("invalidated")
	for _, s := range subs {
		s.fn(keys)
	}
	return keys
}

// Set stores value under key as freshly fetched. A load already in flight
// for key finishes with the entry invalidated, so the next read refetches.
func (c *Cache) Set(key Key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}
	e.value, e.hasValue, e.err = value, true, nil
	e.fetchedAt = c.now()
	e.invalidated = false
	e.generation++
}

// Remove drops every entry under prefix.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.HasPrefix(prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Subscribe registers fn to be called with the invalidated keys whenever a
// prefix of kind is invalidated. The returned func unsubscribes.
func (c *Cache) Subscribe(kind string, fn func(keys []Key)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs[kind] = append(c.subs[kind], subscription{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.subs[kind]
		for i, s := range list {
			if s.id == id {
				c.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Wait blocks until background refreshes have finished.
func (c *Cache) Wait() {
	c.bg.Wait()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
