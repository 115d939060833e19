// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"tokoorders/internal/config"
	"tokoorders/internal/database"
	"tokoorders/internal/models"
	"tokoorders/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens a private in-memory sqlite database with the schema
// migrated. A single connection keeps the database alive and serializes
// transactions.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := database.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		AutoMigrate:  true,
	}, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Backends returns one instance of every storage driver, keyed by name.
func Backends(t testing.TB) map[string]repositories.Backend {
	return map[string]repositories.Backend{
		"memory": repositories.NewMemoryStore(),
		"sqlite": repositories.NewGORMStore(NewSQLiteDB(t)),
	}
}

// SeedProduct creates a product and returns its id.
func SeedProduct(t testing.TB, catalog repositories.Catalog, name, price string, stock int) int64 {
	t.Helper()

	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, catalog.CreateProduct(context.Background(), p))
	return p.ID
}
