package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/romanpTAMU/astro-llm/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	db, err := New(&config.Config{})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Expected ErrDisabled, got %v", err)
	}
	if db != nil {
		t.Error("Expected nil DB when disabled")
	}
}

func TestEnsureSchema(t *testing.T) {
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 두 번 실행해도 동일
	for i := 0; i < 2; i++ {
		if err := db.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema run %d failed: %v", i+1, err)
		}
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if !status.Healthy {
		t.Error("Expected healthy database")
	}
	if status.Stats.MaxConns != int32(cfg.Database.MaxConns) {
		t.Errorf("Expected max conns %d, got %d", cfg.Database.MaxConns, status.Stats.MaxConns)
	}
}
