package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/astrostocks/pkg/logger"
)

func TestNew_EmptyDSNIsDisabled(t *testing.T) {
	tr, err := New("", "development", logger.Nop())
	require.NoError(t, err)
	assert.False(t, tr.Enabled())

	// no-ops must not panic
	tr.CaptureError(context.Background(), errors.New("boom"), map[string]string{"route": "/api/analyze"})
	tr.CapturePanic(context.Background(), "nil map", nil)
	tr.Flush()
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New("not a dsn", "development", logger.Nop())
	assert.Error(t, err)
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	assert.False(t, tr.Enabled())
	tr.CaptureError(context.Background(), errors.New("boom"), nil)
}

func TestDisabled(t *testing.T) {
	assert.False(t, Disabled().Enabled())
}
