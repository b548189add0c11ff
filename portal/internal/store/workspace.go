package store

import (
	"sync"
	"time"
)

// Route is the view state of a workspace: the current page, its filters and an open popup.
type Route struct {
	Name   string
	Filter Filter
	// Popup is the id of the entity whose edit form is open, "new" for a blank form.
	Popup string
}

type Filter struct {
	Query   string
	Status  string
	Subject string
}

// Workspace is everything one signed-in browser session works on.
type Workspace struct {
	Store *Store

	mu       sync.Mutex
	loadMu   sync.Mutex
	route    Route
	loaded   bool
	lastSeen time.Time
}

func (w *Workspace) Route() Route {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.route
}

// Navigate makes name the current route. Leaving a route closes its popup and
// the filters belong to the route they were typed on.
func (w *Workspace) Navigate(name string) Route {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.route.Name != name {
		w.route = Route{Name: name}
	}
	return w.route
}

func (w *Workspace) SetFilter(f Filter) Route {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.route.Filter = f
	return w.route
}

func (w *Workspace) OpenPopup(id string) Route {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.route.Popup = id
	return w.route
}

func (w *Workspace) ClosePopup() Route {
	return w.OpenPopup("")
}

// MarkLoaded reports whether this call is the one that flipped the workspace to loaded.
func (w *Workspace) MarkLoaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	first := !w.loaded
	w.loaded = true
	return first
}

// LoadOnce runs load unless the workspace is already loaded. Callers arriving while a
// load runs wait for it. The workspace is loaded once load returns true. LoadOnce
// reports whether load ran.
func (w *Workspace) LoadOnce(load func() bool) bool {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	if w.Loaded() {
		return false
	}
	if load() {
		w.MarkLoaded()
	}
	return true
}

// Unload makes the next MarkLoaded report a first load again.
func (w *Workspace) Unload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaded = false
}

func (w *Workspace) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// Workspaces maps session ids to their workspace.
type Workspaces struct {
	mu    sync.Mutex
	items map[string]*Workspace
	now   func() time.Time
}

func NewWorkspaces() *Workspaces {
	return &Workspaces{items: make(map[string]*Workspace), now: time.Now}
}

// Acquire returns the workspace of sessionID, creating an empty one on first use.
func (ws *Workspaces) Acquire(sessionID string) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w, ok := ws.items[sessionID]
	if !ok {
		w = &Workspace{Store: New()}
		ws.items[sessionID] = w
	}
	w.mu.Lock()
	w.lastSeen = ws.now()
	w.mu.Unlock()
	return w
}

func (ws *Workspaces) Drop(sessionID string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if w, ok := ws.items[sessionID]; ok {
		w.Store.Reset()
		delete(ws.items, sessionID)
	}
}

func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.items)
}

// Evict drops workspaces unused for longer than idle and returns how many were dropped.
func (ws *Workspaces) Evict(idle time.Duration) int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	deadline := ws.now().Add(-idle)
	n := 0
	for id, w := range ws.items {
		w.mu.Lock()
		stale := w.lastSeen.Before(deadline)
		w.mu.Unlock()
		if stale {
			w.Store.Reset()
			delete(ws.items, id)
			n++
		}
	}
	return n
}
