// Package app wires configuration, the dispatch pipeline, the protocol
// chain and the listener into a runnable application.
package app

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/pkg/errors"

	"github.com/jerrygaohk/networksocket/config"
	"github.com/jerrygaohk/networksocket/core/dispatch"
	"github.com/jerrygaohk/networksocket/core/fast"
	"github.com/jerrygaohk/networksocket/core/http"
	"github.com/jerrygaohk/networksocket/core/metrics"
	"github.com/jerrygaohk/networksocket/core/middleware"
	"github.com/jerrygaohk/networksocket/core/pool"
	"github.com/jerrygaohk/networksocket/server"
)

// App is the assembled application: one listener, one dispatch pipeline,
// a Fast endpoint and an HTTP endpoint sharing the port.
type App struct {
	cfg *config.Config

	dispatcher *dispatch.Dispatcher
	registry   *fast.Registry
	fast       *fast.Handler
	http       *http.Handler
	workers    *pool.WorkerPool
	srv        *server.Server
}

// New builds an application from cfg.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics.RegisterDefault()

	a := &App{cfg: cfg}
	a.dispatcher = dispatch.New()
	a.registry = fast.NewRegistry(a.dispatcher)

	workerCount := cfg.Workers
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	a.workers = pool.NewWorkerPool(workerCount, 4*workerCount)

	a.fast = fast.NewHandler(a.dispatcher, a.registry,
		fast.WithMaxFrameSize(cfg.MaxFrameSize),
		fast.WithWorkerPool(a.workers),
	)

	var httpOpts []http.HandlerOption
	if cfg.StaticRoot != "" {
		httpOpts = append(httpOpts, http.WithStaticRoot(cfg.StaticRoot))
	}
	a.http = http.NewHandler(a.dispatcher, httpOpts...)

	chain := middleware.NewChain(a.fast, a.http)

	srvOpts := []server.Option{
		server.WithMaxConnections(cfg.MaxConnections),
		server.WithReadBufferSize(cfg.ReadBufferSize),
		server.WithHandshakeTimeout(cfg.HandshakeTimeout.Std()),
	}
	if cfg.Secure() {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, errors.Wrap(err, "load TLS key pair")
		}
		srvOpts = append(srvOpts, server.WithTLS(&tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}))
	}
	a.srv = server.New(cfg.Addr, chain, srvOpts...)

	return a, nil
}

// Dispatcher exposes the pipeline for global filter registration.
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.dispatcher }

// Fast exposes the RPC registry for service registration.
func (a *App) Fast() *fast.Registry { return a.registry }

// HTTP exposes the HTTP handler for route registration.
func (a *App) HTTP() *http.Handler { return a.http }

// Server exposes the underlying listener owner.
func (a *App) Server() *server.Server { return a.srv }

// Run serves until SIGINT/SIGTERM, then shuts down gracefully within the
// configured timeout.
func (a *App) Run() error {
	errc := make(chan error, 1)
	go func() { errc <- a.srv.ListenAndServe() }()

	log.Printf("listening on %s (tls=%v, fast actions=%d)",
		a.cfg.Addr, a.cfg.Secure(), len(a.registry.Actions()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		a.workers.Close()
		return err
	case sig := <-quit:
		log.Printf("signal %v received, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout.Std())
	defer cancel()
	err := a.srv.Shutdown(ctx)
	a.workers.Close()
	if err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if serr := <-errc; serr != nil && serr != server.ErrClosed {
		return serr
	}
	return nil
}
