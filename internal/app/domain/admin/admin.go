// Package admin holds the runtime switches operators flip without a
// restart: TTS on/off, dialog navigation on/off and the fallback mode.
// Expert mode is deliberately boot-time config, not flippable here.
package admin

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Fallback modes. SIMPLE disables the smart guards and dialog navigation
// beyond STOP.
const (
	FallbackSmart  = "SMART"
	FallbackSimple = "SIMPLE"
)

// Config is the snapshot handed to the pipeline each turn.
type Config struct {
	TTSEnabled              bool   `json:"tts_enabled"`
	DialogNavigationEnabled bool   `json:"dialog_navigation_enabled"`
	FallbackMode            string `json:"fallback_mode"`
}

// DefaultConfig matches production defaults: everything on, smart mode.
func DefaultConfig() Config {
	return Config{
		TTSEnabled:              true,
		DialogNavigationEnabled: true,
		FallbackMode:            FallbackSmart,
	}
}

// NavigationActive reports whether BACK/REPEAT/NEXT are honored. STOP
// never consults this.
func (c Config) NavigationActive() bool {
	return c.DialogNavigationEnabled && c.FallbackMode != FallbackSimple
}

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	TTSEnabled              *bool   `json:"tts_enabled"`
	DialogNavigationEnabled *bool   `json:"dialog_navigation_enabled"`
	FallbackMode            *string `json:"fallback_mode"`
}

// Runtime is the mutex-guarded live config.
type Runtime struct {
	mu     sync.RWMutex
	cfg    Config
	logger *zap.Logger
}

func NewRuntime(initial Config, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	if initial.FallbackMode == "" {
		initial.FallbackMode = FallbackSmart
	}
	return &Runtime{cfg: initial, logger: logger}
}

// Snapshot returns the current config by value.
func (r *Runtime) Snapshot() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Update applies a patch and returns the resulting config. An unknown
// fallback mode is rejected and nothing changes.
func (r *Runtime) Update(p Patch) (Config, error) {
	if p.FallbackMode != nil && *p.FallbackMode != FallbackSmart && *p.FallbackMode != FallbackSimple {
		return r.Snapshot(), fmt.Errorf("unknown fallback mode %q", *p.FallbackMode)
	}

	r.mu.Lock()
	if p.TTSEnabled != nil {
		r.cfg.TTSEnabled = *p.TTSEnabled
	}
	if p.DialogNavigationEnabled != nil {
		r.cfg.DialogNavigationEnabled = *p.DialogNavigationEnabled
	}
	if p.FallbackMode != nil {
		r.cfg.FallbackMode = *p.FallbackMode
	}
	cfg := r.cfg
	r.mu.Unlock()

	r.logger.Info("Runtime config updated",
		zap.Bool("tts_enabled", cfg.TTSEnabled),
		zap.Bool("dialog_navigation_enabled", cfg.DialogNavigationEnabled),
		zap.String("fallback_mode", cfg.FallbackMode),
	)
	return cfg, nil
}
