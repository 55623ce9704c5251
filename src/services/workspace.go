package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/backoffice/backend/src/controller"
	"github.com/username/backoffice/backend/src/gateway"
)

// Workspace is the screen state of one session.
type Workspace struct {
	screens         map[string]Screen
	paymentRequests *paymentRequests
	Customers       *CustomerSearch
}

func (w *Workspace) Screen(name string) (Screen, error) {
	s, ok := w.screens[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScreen, name)
	}
	return s, nil
}

func (w *Workspace) PaymentRequests() PaymentRequestService { return w.paymentRequests }

type WorkspaceOptions struct {
	TTL            time.Duration
	SearchDebounce time.Duration
	PageSize       int
	Now            func() time.Time
}

// Workspaces keeps one Workspace per session id, expiring after TTL of inactivity.
type Workspaces struct {
	gw      *gateway.Client
	lookups LookupService
	opts    WorkspaceOptions

	mu    sync.Mutex
	cache *cache.Cache
}

func NewWorkspaces(gw *gateway.Client, lookups LookupService, opts WorkspaceOptions) *Workspaces {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Workspaces{
		gw:      gw,
		lookups: lookups,
		opts:    opts,
		cache:   cache.New(opts.TTL, opts.TTL),
	}
}

// Get returns the workspace of the session, creating it on first use. Every
// access pushes the expiry forward.
func (ws *Workspaces) Get(sessionID string) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if x, found := ws.cache.Get(sessionID); found {
		w := x.(*Workspace)
		ws.cache.Set(sessionID, w, cache.DefaultExpiration)
		return w
	}
	w := ws.build()
	ws.cache.Set(sessionID, w, cache.DefaultExpiration)
	return w
}

func (ws *Workspaces) Drop(sessionID string) {
	ws.cache.Delete(sessionID)
}

func (ws *Workspaces) Count() int {
	return ws.cache.ItemCount()
}

func (ws *Workspaces) build() *Workspace {
	initial := controller.CurrentMonth(ws.opts.Now())
	size := ws.opts.PageSize
	now := ws.opts.Now

	pr := newPaymentRequestsScreen(ws.gw, initial, size, now)
	screens := []Screen{
		newPayablesScreen(ws.gw, initial, size, now),
		newReceivablesScreen(ws.gw, initial, size, now),
		newAppointmentsScreen(ws.gw, initial, size, now),
		newProcessedAppointmentsScreen(ws.gw, initial, size, now),
		pr,
	}
	w := &Workspace{
		screens:         make(map[string]Screen, len(screens)),
		paymentRequests: pr,
		Customers:       NewCustomerSearch(ws.lookups, ws.opts.SearchDebounce),
	}
	for _, s := range screens {
		w.screens[s.Name()] = s
	}
	return w
}
