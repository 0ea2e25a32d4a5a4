package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/ffrank/pkg/config"
)

func TestNewRejectsEmptyURL(t *testing.T) {
	cfg := &config.Config{}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for empty database URL")
	}
}

func TestNewRejectsMalformedURL(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{URL: "postgres://%zz"}}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for malformed database URL")
	}
}

func TestIntegrationSchemaAndHealth(t *testing.T) {
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: time.Minute,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}
	if status.Stats.MaxConns != 4 {
		t.Errorf("Expected MaxConns 4, got %d", status.Stats.MaxConns)
	}
}
