package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheSmallBoat/skiff/skifflib"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a TOML config file")
	flag.Parse()

	cfg := defaultConfig()
	if configPath != "" {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skiff-echo: %v\n", err)
			os.Exit(1)
		}
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Str("app", "skiff-echo").Logger().Level(cfg.LogLevel)

	ln, err := skifflib.BindTCP(cfg.Listen)()
	if err != nil {
		logger.Fatal().Err(err).Str("listen", cfg.Listen).Msg("unable to listen")
	}

	echo := skifflib.HandlerFunc(func(conn *skifflib.Conn, ev skifflib.Event) {
		switch e := ev.(type) {
		case skifflib.Received:
			if err := conn.Write(e.Data, nil); err != nil {
				logger.Warn().Err(err).Msg("echo write refused")
			}
		case skifflib.WriteFailed:
			logger.Warn().Err(e.Reason).Msg("echo write rejected")
		case skifflib.Closed:
			logger.Info().Stringer("cause", e.Cause).Err(e.Err).Msg("connection closed")
		}
	})

	srv := &skifflib.Server{
		Acceptor: skifflib.AcceptorFunc(func(conn *skifflib.Conn) {
			err := conn.Register(echo, skifflib.Config{
				FlowControl:         cfg.FlowControl,
				KeepOpenOnPeerClose: cfg.KeepOpenOnPeerClose,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("registration failed")
				return
			}
			logger.Info().Stringer("remote", conn.RemoteAddr()).Msg("connection accepted")
		}),
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteTimeout:    cfg.WriteTimeout,
		RegisterTimeout: cfg.RegisterTimeout,
		Logger:          &logger,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		logger.Info().Stringer("signal", s).Msg("shutting down")
		srv.Shutdown()
		_ = ln.Close()
	}()

	logger.Info().Str("listen", ln.Addr().String()).Stringer("flow_control", cfg.FlowControl).Msg("listening for echo connections")

	if err := srv.Serve(ln); err != nil {
		logger.Fatal().Err(err).Msg("serve failed")
	}
}
