/*
Package networksocket is a connection-oriented server framework: one
listener, multiple application protocols, one action pipeline.

Every accepted connection becomes a transport session with its own receive
buffer. A middleware chain inspects the buffered bytes and pins the session
to the first protocol handler that claims them; from then on that handler
owns the stream. Two protocols ship in-tree and share a port:

  - Fast: a compact length-prefixed RPC protocol with pluggable body
    serialization (JSON, gob, protobuf)
  - HTTP/1.x: routed actions plus a static file fallback

Both protocols invoke services through the same dispatch pipeline:
parameter binding, a before/after filter chain, the action method, and
exactly-once response delivery, with failures funneled through exception
filters and reported to the peer.

Quick start:

	cfg := config.Default()
	a, err := app.New(cfg)
	if err != nil {
	    log.Fatal(err)
	}

	svc := &UserService{}
	a.Fast().Register("users", svc)
	a.HTTP().POST("/api/users", svc, "Create")

	a.Run()

Modules:

  - app: application assembly and lifecycle
  - config: defaults + YAML file + env + flags
  - server: accept loop, TLS, session tracking, graceful shutdown
  - core/session: TCP/TLS transport sessions and receive loops
  - core/middleware: protocol detection chain
  - core/dispatch: action pipeline, filters, dependency resolution
  - core/fast: the Fast RPC protocol
  - core/http: the HTTP protocol, router and static files
  - core/serializer: pluggable body codecs
  - core/pool: the dispatch worker pool
  - core/metrics: Prometheus instrumentation
*/
package networksocket
