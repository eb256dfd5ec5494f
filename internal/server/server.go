package server

import "net/http"

// Middleware decorates an [http.Handler].
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows its own mux patterns.
type Handler interface {
	http.Handler
	// Routes returns patterns in [http.ServeMux] syntax, for example "GET /callback".
	Routes() []string
}

// Router registers handlers behind a shared middleware chain.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
}
