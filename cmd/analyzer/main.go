package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/atinyakov/go-page-analyzer/internal/app/server"
	grpcserver "github.com/atinyakov/go-page-analyzer/internal/app/server/grpc"
	"github.com/atinyakov/go-page-analyzer/internal/app/service"
	"github.com/atinyakov/go-page-analyzer/internal/checker"
	"github.com/atinyakov/go-page-analyzer/internal/config"
	"github.com/atinyakov/go-page-analyzer/internal/flash"
	"github.com/atinyakov/go-page-analyzer/internal/logger"
	"github.com/atinyakov/go-page-analyzer/internal/repository"
	"github.com/atinyakov/go-page-analyzer/internal/view"

	_ "net/http/pprof"
)

var buildVersion string
var buildDate string
var buildCommit string

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 15 * time.Second
	pprofAddr       = "localhost:6060"
)

func main() {
	fmt.Printf("Build version: %s\n", orNA(buildVersion))
	fmt.Printf("Build date: %s\n", orNA(buildDate))
	fmt.Printf("Build commit: %s\n", orNA(buildCommit))

	log := logger.New()
	if err := log.Init("info"); err != nil {
		panic(err)
	}

	options, err := config.Parse()
	if err != nil {
		log.Log.Fatal("invalid configuration", zap.Error(err))
	}

	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("invalid log level", zap.Error(err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, log.Log); err != nil {
		log.Log.Fatal("analyzer stopped", zap.Error(err))
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// app holds everything run needs to serve and to release on exit.
type app struct {
	handler http.Handler
	db      *repository.DB
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func build(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (*app, error) {
	db, err := repository.InitDB(ctx, options.DatabaseURL, zapLogger)
	if err != nil {
		return nil, err
	}
	a := &app{db: db, closers: []func() error{db.Close}}

	store, closeStore, err := newFlashStore(ctx, options, zapLogger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	views, err := view.New()
	if err != nil {
		a.Close()
		return nil, err
	}

	svc := service.NewURL(
		repository.CreateURLRepository(db, zapLogger),
		repository.CreateCheckRepository(db, zapLogger),
		checker.New(options.CheckTimeout, zapLogger),
		zapLogger,
		options.RecordFailedChecks,
	)

	a.handler = server.Init(svc, views, store, zapLogger, options.TrustedSubnet)
	return a, nil
}

func newFlashStore(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (flash.Store, func() error, error) {
	noop := func() error { return nil }

	switch options.FlashStore {
	case config.FlashMemory:
		return flash.NewSessionStore(flash.NewMemoryBackend(flash.DefaultTTL), flash.DefaultTTL), noop, nil
	case config.FlashRedis:
		client, err := flash.DialRedis(ctx, options.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return flash.NewSessionStore(flash.NewRedisBackend(client), flash.DefaultTTL), client.Close, nil
	default:
		secret := options.FlashSecret
		if secret == "" {
			secret = uuid.NewString()
			zapLogger.Warn("FLASH_SECRET is not set, flash cookies will not survive a restart")
		}
		return flash.NewCookieStore(secret, flash.DefaultTTL), noop, nil
	}
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	a, err := build(ctx, options, zapLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	if options.EnablePprof {
		go func() {
			zapLogger.Info("Starting pprof server", zap.String("addr", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				zapLogger.Error("pprof server error", zap.Error(err))
			}
		}()
	}

	var grpcSrv *grpcserver.Server
	if options.GRPCPort > 0 {
		grpcSrv = grpcserver.New(zapLogger, a.db, options.GRPCPort, options.TrustedSubnet)
		go grpcSrv.Watch(ctx, healthInterval)
		go func() {
			if err := grpcSrv.Start(); err != nil {
				zapLogger.Error("gRPC server error", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              options.ServerAddress,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if options.EnableHTTPS {
			errCh <- serveTLS(srv, options.ServerAddress, zapLogger)
			return
		}
		zapLogger.Info("Server is running", zap.String("hostname", options.ServerAddress))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zapLogger.Info("Shutting down")
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// serveTLS serves srv on :443 with certificates issued for the host of addr.
func serveTLS(srv *http.Server, addr string, zapLogger *zap.Logger) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	manager := &autocert.Manager{
		Cache:      autocert.DirCache("cache-dir"),
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(host, "www."+host),
	}

	srv.Addr = ":443"
	srv.TLSConfig = manager.TLSConfig()

	zapLogger.Info("Server is running with TLS", zap.String("hostname", host))
	return srv.ListenAndServeTLS("", "")
}
