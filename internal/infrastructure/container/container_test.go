package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"networth/internal/domain"
	"networth/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "networth.db")
	return cfg
}

func TestContainerWithSQLite(t *testing.T) {
	c, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	if c.SQLiteRepo() == nil {
		t.Fatal("expected SQLiteRepo, got nil")
	}
	list, err := c.App().HoldingService().List(context.Background(), false)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected an empty store, got %v %v", list, err)
	}
}

func TestContainerWithEngineBuildsRoutedSources(t *testing.T) {
	c, err := NewWithEngine(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	if c.App().Valuation() == nil {
		t.Fatal("expected a valuation engine")
	}
	if len(c.Mirrors()) != 0 {
		t.Fatalf("mirrors are disabled by default, got %v", c.Mirrors())
	}
	_, err = c.App().Refresh().Refresh(context.Background())
	if !errors.Is(err, domain.ErrNoHoldings) {
		t.Fatalf("expected ErrNoHoldings on an empty store, got %v", err)
	}
}

func TestContainerRejectsCurrencyChange(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	c.Close()

	cfg.Reporting.Currency = "EUR"
	if _, err := New(cfg); !errors.Is(err, domain.ErrReportingCurrencyMismatch) {
		t.Fatalf("expected ErrReportingCurrencyMismatch, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
