// Package workspace bundles everything one browser session owns: its session
// context, API client, query cache, data hooks and UI-state stores.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/data"
	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/metrics"
	"marketplace-storefront/internal/notify"
	"marketplace-storefront/internal/query"
	"marketplace-storefront/internal/service"
	"marketplace-storefront/internal/session"
	"marketplace-storefront/internal/state"
	"marketplace-storefront/internal/store"
)

// Workspace is the per-session bundle.
type Workspace struct {
	ID          string
	Session     *session.Session
	Client      *client.Client
	Services    *service.Services
	Cache       *query.Cache
	Queries     *data.Queries
	Sidebar     *state.Sidebar
	ProductList *state.ProductList
	Notices     *notify.Queue

	unauthorized atomic.Bool
}

// TakeUnauthorized reports whether an upstream call answered 401 since the
// last call, and resets the flag.
func (w *Workspace) TakeUnauthorized() bool {
	return w.unauthorized.Swap(false)
}

// Options configures the Manager.
type Options struct {
	Client            client.Config
	HTTPClient        *http.Client
	StaleTime         time.Duration
	WishlistStaleTime time.Duration
	Retry             int
	IdleTTL           time.Duration
	MaxWorkspaces     int
}

// Manager keeps live workspaces in an expiring LRU keyed by session id.
// Opening a workspace pushes its expiry back by IdleTTL.
type Manager struct {
	opts  Options
	store store.Store
	log   logrus.FieldLogger
	lru   *expirable.LRU[string, *Workspace]
	group singleflight.Group
}

// NewManager creates a Manager persisting sessions and preferences in st.
func NewManager(opts Options, st store.Store, log logrus.FieldLogger) *Manager {
	if opts.MaxWorkspaces <= 0 {
		opts.MaxWorkspaces = 10000
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.StaleTime <= 0 {
		opts.StaleTime = query.DefaultStaleTime
	}
	m := &Manager{
		opts:  opts,
		store: st,
		log:   logging.Component(log, "workspace"),
	}
	m.lru = expirable.NewLRU[string, *Workspace](opts.MaxWorkspaces, m.onEvict, opts.IdleTTL)
	return m
}

// Open returns the workspace of session id, creating and hydrating it when
// it is not live.
func (m *Manager) Open(ctx context.Context, id string) (*Workspace, error) {
	if ws, ok := m.lru.Get(id); ok {
		m.lru.Add(id, ws)
		return ws, nil
	}
	v, err, _ := m.group.Do(id, func() (interface{}, error) {
		if ws, ok := m.lru.Get(id); ok {
			return ws, nil
		}
		ws, err := m.build(ctx, id)
		if err != nil {
			return nil, err
		}
		m.lru.Add(id, ws)
		metrics.SetWorkspaces(m.lru.Len())
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Workspace), nil
}

// Resume returns the workspace of a session id the server issued earlier:
// one that is live or has a persisted session record. ok is false for any
// other id, and the caller must mint a fresh one instead of adopting it.
func (m *Manager) Resume(ctx context.Context, id string) (ws *Workspace, ok bool, err error) {
	if ws, ok := m.lru.Get(id); ok {
		m.lru.Add(id, ws)
		return ws, true, nil
	}
	if _, err := m.store.GetSession(ctx, id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("workspace: resume: %w", err)
	}
	ws, err = m.Open(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return ws, true, nil
}

// Rotate moves the browsing state of old to a workspace under a fresh
// session id and discards old along with its persisted session record.
// It is called when the identity of a session changes.
func (m *Manager) Rotate(ctx context.Context, old *Workspace) (*Workspace, error) {
	ws, err := m.Open(ctx, session.NewID())
	if err != nil {
		return nil, err
	}
	ws.ProductList = old.ProductList
	if old.Sidebar.Collapsed() {
		if err := ws.Sidebar.SetCollapsed(ctx, true); err != nil {
			m.log.WithError(err).WithField("session_id", ws.ID).Warn("failed to carry sidebar preference over")
		}
	}
	if err := old.Session.Clear(ctx); err != nil {
		m.log.WithError(err).WithField("session_id", old.ID).Warn("failed to clear rotated session")
	}
	m.Discard(old.ID)
	m.log.WithFields(logrus.Fields{"from": old.ID, "to": ws.ID}).Debug("session id rotated")
	return ws, nil
}

// Discard drops the live workspace of id. Persisted state is untouched.
func (m *Manager) Discard(id string) {
	m.lru.Remove(id)
	metrics.SetWorkspaces(m.lru.Len())
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	return m.lru.Len()
}

func (m *Manager) build(ctx context.Context, id string) (*Workspace, error) {
	log := m.log.WithField("session_id", id)
	ws := &Workspace{
		ID:          id,
		Session:     session.New(id, m.store, m.log),
		ProductList: state.NewProductList(),
		Notices:     &notify.Queue{},
		Sidebar:     state.NewSidebar(id, m.store, m.log),
	}

	clientOpts := []client.Option{
		client.WithLogger(m.log),
		client.WithUnauthorizedHandler(func(context.Context, string) {
			ws.unauthorized.Store(true)
			ws.Queries.Forget()
		}),
	}
	if m.opts.HTTPClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(m.opts.HTTPClient))
	}
	ws.Client = client.New(m.opts.Client, ws.Session, clientOpts...)
	ws.Services = service.New(ws.Client)

	cacheOpts := []query.Option{query.WithStaleTime(m.opts.StaleTime), query.WithLogger(m.log)}
	if m.opts.Retry > 0 {
		cacheOpts = append(cacheOpts, query.WithRetry(m.opts.Retry))
	}
	ws.Cache = query.New(cacheOpts...)

	queryOpts := []data.Option{data.WithLogger(m.log)}
	if m.opts.WishlistStaleTime > 0 {
		queryOpts = append(queryOpts, data.WithWishlistStaleTime(m.opts.WishlistStaleTime))
	}
	ws.Queries = data.New(ws.Services, ws.Cache, ws.Notices, queryOpts...)

	if err := ws.Session.Init(ctx); err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if err := ws.Sidebar.Load(ctx); err != nil {
		log.WithError(err).Warn("sidebar preference unavailable, using default")
	}
	log.Debug("workspace opened")
	return ws, nil
}

func (m *Manager) onEvict(id string, _ *Workspace) {
	m.log.WithField("session_id", id).Debug("workspace evicted")
}
