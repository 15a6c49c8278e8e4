// Command stubd is a demo responder: it serves arithmetic and text services over TCP
// and JSON-RPC HTTP and can announce itself in etcd.
//
//	stubd -config server.toml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"stub-rpc/config"
	"stub-rpc/middleware"
	"stub-rpc/registry"
	"stub-rpc/server"
)

func main() {
	cfgPath := flag.String("config", "", "TOML config file")
	printConfig := flag.Bool("print-config", false, "print the effective config and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stubd:", err)
		os.Exit(1)
	}
	if *printConfig {
		if err := cfg.Write(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "stubd:", err)
			os.Exit(1)
		}
		return
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stubd:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("stubd", zap.Error(err))
	}
}

// run serves until ctx is done, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	opts := []server.Option{server.WithLogger(logger)}
	if len(cfg.Etcd.Endpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.Etcd.Endpoints, cfg.Etcd.DialTimeout, logger)
		if err != nil {
			return err
		}
		defer reg.Close()
		opts = append(opts, server.WithRegistry(reg, cfg.Server.Endpoint, cfg.Server.Advertise, cfg.Server.TTL))
	}

	svr := server.New(opts...)
	svr.Use(middleware.LoggingMiddleware(logger))
	svr.Use(middleware.RecoverMiddleware(logger))
	if cfg.Server.RateLimit > 0 {
		svr.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimit, max(cfg.Server.RateBurst, 1)))
	}
	if err := registerServices(svr); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return err
	}
	errc := make(chan error, 2)
	go func() { errc <- svr.Serve(ln) }()

	var hs *http.Server
	if cfg.Server.HTTPListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/rpc", svr.HTTPHandler())
		hs = &http.Server{Addr: cfg.Server.HTTPListen, Handler: mux}
		go func() {
			logger.Info("serving http", zap.String("addr", hs.Addr))
			if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}
	logger.Info("stubd started", zap.Strings("services", svr.Services()))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errc:
		logger.Error("serve", zap.Error(serveErr))
	}

	if hs != nil {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}
	if err := svr.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	return serveErr
}
