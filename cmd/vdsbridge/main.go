// cmd/vdsbridge/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vds-bridge/internal/bridge"
	"github.com/tamzrod/vds-bridge/internal/config"
	"github.com/tamzrod/vds-bridge/internal/scope"
	"github.com/tamzrod/vds-bridge/internal/status"
	"github.com/tamzrod/vds-bridge/internal/transport/usb"
	"github.com/tamzrod/vds-bridge/internal/webservice"
	"github.com/tamzrod/vds-bridge/internal/writer"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: vdsbridge <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validation failed")
	}
	config.Normalize(cfg)

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Msg("bad log level")
	}
	log = log.Level(level)

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Uint16("code", scope.ErrorCode(err)).Msg("vdsbridge stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Device + session
	// --------------------

	dev, err := usb.Open(usb.Config{VendorID: cfg.Device.VendorID, ProductID: cfg.Device.ProductID})
	if err != nil {
		return err
	}
	// released last: after the bridge stopped touching the session
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn().Err(err).Msg("usb close failed")
		}
	}()

	sess := scope.New(dev,
		scope.WithLogger(log.With().Str("component", "scope").Logger()),
		scope.WithCommandTimeout(time.Duration(cfg.Device.CommandTimeoutMs)*time.Millisecond),
	)
	if err := sess.BringUp(); err != nil {
		return err
	}

	tracker := status.NewTracker()

	// --------------------
	// Bridge
	// --------------------

	srv, err := bridge.New(sess, bridge.Config{
		Device:  cfg.Device,
		Tracker: tracker,
		Logger:  log.With().Str("component", "bridge").Logger(),
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	scpiLn, err := net.Listen("tcp", cfg.Bridge.SCPIListen)
	if err != nil {
		return err
	}
	waveLn, err := net.Listen("tcp", cfg.Bridge.WaveformListen)
	if err != nil {
		_ = scpiLn.Close()
		return err
	}

	serveErr := make(chan error, 3)
	go func() { serveErr <- srv.ServeSCPI(scpiLn) }()
	go func() { serveErr <- srv.ServeWaveform(waveLn) }()

	log.Info().
		Str("scpi", cfg.Bridge.SCPIListen).
		Str("waveform", cfg.Bridge.WaveformListen).
		Msg("bridge listening")

	// --------------------
	// Status block (optional)
	// --------------------

	var bg sync.WaitGroup
	pubCtx, stopPub := context.WithCancel(ctx)
	defer func() {
		stopPub()
		bg.Wait()
	}()

	if cfg.Status != nil {
		sw, closeStatus, err := writer.BuildStatusWriter(cfg.Status)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", cfg.Status.Endpoint).Msg("status block disabled")
		} else {
			bg.Add(1)
			go func() {
				defer bg.Done()
				defer closeStatus()
				writer.PublishStatus(pubCtx, tracker, sw, time.Second, log.With().Str("component", "status").Logger())
			}()
		}
	}

	// --------------------
	// HTTP status API (optional)
	// --------------------

	var httpSrv *http.Server
	if cfg.HTTP != nil {
		app := &webservice.App{Device: sess, Tracker: tracker, Log: log.With().Str("component", "http").Logger()}
		httpSrv = &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           app.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
		log.Info().Str("listen", cfg.HTTP.Listen).Msg("http status api listening")
	}

	// --------------------
	// Wait for shutdown
	// --------------------

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-serveErr:
	}

	if httpSrv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = httpSrv.Shutdown(shCtx)
		cancel()
	}
	_ = srv.Close()

	if errors.Is(runErr, bridge.ErrServerClosed) {
		runErr = nil
	}
	return runErr
}
