package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pixelcast/internal/client"
	"pixelcast/internal/config"
	"pixelcast/internal/console"
	"pixelcast/internal/display"
	"pixelcast/internal/fit"
	"pixelcast/internal/logger"
	"pixelcast/internal/pacing"
	"pixelcast/internal/panel"
	"pixelcast/internal/render"
	"pixelcast/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("pixelcast stopped")
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err
	}
	logger.Setup(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Mode == config.ModeDisplay {
		return runDisplay(ctx, cfg)
	}
	return runServer(ctx, cfg)
}

func runServer(ctx context.Context, cfg config.Config) error {
	var pane *console.LogPane
	if cfg.Server.UI {
		pane = console.NewLogPane()
		logger.SetupPlain(pane, cfg.LogLevel)
		defer func() {
			logger.Setup(os.Stderr, cfg.LogLevel)
			os.Stderr.Write(pane.Pending())
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(cfg.Server.Names, time.Duration(cfg.Server.ConnectionLostTimeoutS)*time.Second)
	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Listen).Msg("WebSocket server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	consoleDone := make(chan error, 1)
	go func() {
		consoleDone <- runConsole(ctx, cfg, srv, pane)
	}()

	var err error
	select {
	case err = <-serveErr:
		err = fmt.Errorf("listen %s: %w", cfg.Server.Listen, err)
	case err = <-consoleDone:
	case <-ctx.Done():
		log.Info().Msg("Signal received")
	}

	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("HTTP shutdown")
	}
	log.Info().Msg("Server stopped")
	return err
}

func runConsole(ctx context.Context, cfg config.Config, srv *server.Server, pane *console.LogPane) error {
	if !cfg.Server.UI {
		return console.New(srv, os.Stdout, cfg.Server.TTLMs).Run(ctx, os.Stdin)
	}
	ui, err := console.NewUI(srv, cfg.Server.TTLMs, pane)
	if err != nil {
		return fmt.Errorf("start console ui: %w", err)
	}
	defer ui.Close()
	return ui.Run(ctx)
}

func runDisplay(ctx context.Context, cfg config.Config) error {
	d := cfg.Display
	mode, err := fit.ParseMode(d.Fit)
	if err != nil {
		return err
	}

	dev, err := panel.Open(d.Driver, panel.Config{
		Width:      d.Panel.Width,
		Height:     d.Panel.Height,
		AddrLines:  d.Panel.AddrLines,
		Lanes:      d.Panel.Lanes,
		Brightness: d.Panel.Brightness,
		FPSHint:    d.FPSCap,
	})
	if err != nil {
		return err
	}
	if d.Capture != "" {
		rec, err := panel.RecordFile(dev, d.Capture)
		if err != nil {
			dev.Close()
			return err
		}
		log.Info().Str("file", d.Capture).Msg("Capturing frames")
		dev = rec
	}

	opts := render.DefaultOptions()
	opts.Fit = mode
	opts.FPSCap = d.FPSCap
	opts.Brightness = d.Panel.Brightness
	opts.TextX = d.TextX
	opts.ReservedTop = d.ReservedTop
	opts.TextTopPad = d.TextTopPad
	opts.ShowFPS = !d.HideFPS

	inbox := display.NewInbox()
	loop := render.NewLoop(dev, inbox, display.NewMachine(nil, nil), pacing.New(d.EMAAlpha), opts)
	conn := client.New(d.ServerURL, inbox, d.ReconnectPerSec)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn.Run(ctx)
	}()

	err = loop.Run(ctx)
	cancel()
	wg.Wait()
	return err
}
