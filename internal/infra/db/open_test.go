package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/homeready/internal/config"
	"github.com/bryanwahyu/homeready/internal/infra/db/memory"
)

func TestOpenMemory(t *testing.T) {
	cfg := config.Default()
	store, closeFn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.AuditRepository{}, store)
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, closeFn())
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	_, _, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "sqlite")
}
