package view

import "github.com/Astemirdum/library-portal/portal/internal/store"

type Area string

const (
	AreaAdmin   Area = "admin"
	AreaStudent Area = "student"
)

type RouteInfo struct {
	Key   string
	Title string
}

var (
	adminRoutes = []RouteInfo{
		{Key: "dashboard", Title: "Dashboard"},
		{Key: "books", Title: "Books"},
		{Key: "users", Title: "Users"},
		{Key: "borrow", Title: "Borrow Records"},
		{Key: "profile", Title: "Profile"},
	}
	studentRoutes = []RouteInfo{
		{Key: "dashboard", Title: "Dashboard"},
		{Key: "catalog", Title: "Catalog"},
		{Key: "loans", Title: "My Loans"},
		{Key: "history", Title: "History"},
		{Key: "fines", Title: "Fines"},
		{Key: "profile", Title: "Profile"},
	}
)

// Router knows the views of one area of the portal.
type Router struct {
	area   Area
	routes []RouteInfo
	index  map[string]RouteInfo
}

func NewRouter(area Area) *Router {
	routes := studentRoutes
	if area == AreaAdmin {
		routes = adminRoutes
	}
	index := make(map[string]RouteInfo, len(routes))
	for _, r := range routes {
		index[r.Key] = r
	}
	return &Router{area: area, routes: routes, index: index}
}

func (r *Router) Area() Area { return r.area }

func (r *Router) Routes() []RouteInfo { return r.routes }

func (r *Router) Default() RouteInfo { return r.routes[0] }

func (r *Router) Resolve(key string) (RouteInfo, bool) {
	info, ok := r.index[key]
	return info, ok
}

// Navigate moves w to view key. An unknown key leaves w where it was.
func (r *Router) Navigate(w *store.Workspace, key string) store.Route {
	if _, ok := r.Resolve(key); ok {
		return w.Navigate(key)
	}
	cur := w.Route()
	if _, ok := r.Resolve(cur.Name); !ok {
		return w.Navigate(r.Default().Key)
	}
	return cur
}
