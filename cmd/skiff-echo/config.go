package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/TheSmallBoat/skiff/skifflib"
)

type appConfig struct {
	Listen              string
	FlowControl         skifflib.FlowControl
	KeepOpenOnPeerClose bool
	ReadBufferSize      int
	RegisterTimeout     time.Duration
	WriteTimeout        time.Duration
	LogLevel            zerolog.Level
}

func defaultConfig() appConfig {
	return appConfig{
		Listen:          ":4455",
		FlowControl:     skifflib.FlowAck,
		ReadBufferSize:  skifflib.DefaultReadBufferSize,
		RegisterTimeout: skifflib.DefaultRegisterTimeout,
		LogLevel:        zerolog.InfoLevel,
	}
}

type fileConfig struct {
	Listen              string `toml:"listen"`
	FlowControl         string `toml:"flow_control"`
	KeepOpenOnPeerClose bool   `toml:"keep_open_on_peer_close"`
	ReadBufferSize      int    `toml:"read_buffer_size"`
	RegisterTimeout     string `toml:"register_timeout"`
	WriteTimeout        string `toml:"write_timeout"`
	LogLevel            string `toml:"log_level"`
}

func loadConfig(path string) (appConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load echo config: %w", err)
	}

	if meta.IsDefined("listen") {
		listen := strings.TrimSpace(raw.Listen)
		if listen != "" {
			cfg.Listen = listen
		}
	}

	if meta.IsDefined("flow_control") {
		mode, err := parseFlowControl(raw.FlowControl)
		if err != nil {
			return appConfig{}, err
		}
		cfg.FlowControl = mode
	}

	if meta.IsDefined("keep_open_on_peer_close") {
		cfg.KeepOpenOnPeerClose = raw.KeepOpenOnPeerClose
	}

	if meta.IsDefined("read_buffer_size") {
		if raw.ReadBufferSize <= 0 {
			return appConfig{}, fmt.Errorf("read_buffer_size must be positive, got %d", raw.ReadBufferSize)
		}
		cfg.ReadBufferSize = raw.ReadBufferSize
	}

	if meta.IsDefined("register_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RegisterTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse register_timeout: %w", err)
		}
		cfg.RegisterTimeout = d
	}

	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}

	if meta.IsDefined("log_level") {
		level, err := zerolog.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

func parseFlowControl(s string) (skifflib.FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ack":
		return skifflib.FlowAck, nil
	case "nack":
		return skifflib.FlowNack, nil
	case "nack_suspend":
		return skifflib.FlowNackSuspend, nil
	}
	return 0, fmt.Errorf("unknown flow_control mode %q", s)
}
