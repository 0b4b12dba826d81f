package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func TestUpdateAppliesOnlySetFields(t *testing.T) {
	rt := NewRuntime(DefaultConfig(), zap.NewNop())

	cfg, err := rt.Update(Patch{TTSEnabled: boolPtr(false)})
	require.NoError(t, err)

	assert.False(t, cfg.TTSEnabled)
	assert.True(t, cfg.DialogNavigationEnabled, "untouched field keeps its value")
	assert.Equal(t, FallbackSmart, cfg.FallbackMode)
}

func TestUpdateRejectsUnknownFallbackMode(t *testing.T) {
	rt := NewRuntime(DefaultConfig(), zap.NewNop())

	_, err := rt.Update(Patch{FallbackMode: strPtr("PANIC")})
	require.Error(t, err)

	assert.Equal(t, FallbackSmart, rt.Snapshot().FallbackMode)
}

func TestNavigationActive(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.NavigationActive())

	cfg.DialogNavigationEnabled = false
	assert.False(t, cfg.NavigationActive())

	cfg.DialogNavigationEnabled = true
	cfg.FallbackMode = FallbackSimple
	assert.False(t, cfg.NavigationActive(), "SIMPLE mode keeps only STOP")
}
