package config_test

import (
	"testing"
	"time"

	"tokoorders/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 20, cfg.Orders.PageSize)
	assert.Equal(t, 50, cfg.Products.PageSize)
	assert.Equal(t, "ORD", cfg.Orders.NumberPrefix)
	assert.True(t, cfg.Orders.StrictTransitions)
	assert.False(t, cfg.RabbitMQ.Enabled)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Taipei", loc.String())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:orders.db")
	t.Setenv("DATABASE_CONN_MAX_LIFETIME", "5m")
	t.Setenv("ORDERS_STRICT_TRANSITIONS", "false")
	t.Setenv("ORDERS_PAGE_SIZE", "5")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:orders.db", cfg.Database.DSN)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.False(t, cfg.Orders.StrictTransitions)
	assert.Equal(t, 5, cfg.Orders.PageSize)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"unknown driver", "DATABASE_DRIVER", "mysql", "Driver"},
		{"postgres without dsn", "DATABASE_DRIVER", "postgres", "DSN"},
		{"bad log level", "LOG_LEVEL", "verbose", "Level"},
		{"bad timezone", "APP_TIMEZONE", "Mars/Olympus", "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
