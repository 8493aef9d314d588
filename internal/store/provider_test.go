package store_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/notify"
	"github.com/jensholdgaard/franchise-auction/internal/store"

	// Import drivers so their init() functions register them.
	_ "github.com/jensholdgaard/franchise-auction/internal/store/memstore"
	_ "github.com/jensholdgaard/franchise-auction/internal/store/postgres"
)

// fakeDriver is a store.Driver that always succeeds without connecting to a DB.
func fakeDriver(_ context.Context, _ config.DatabaseConfig, _ clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{}, nil
}

func init() {
	store.Register("test-driver", fakeDriver)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{
			name:    "registered driver succeeds",
			driver:  "test-driver",
			wantErr: false,
		},
		{
			name:    "memory driver succeeds",
			driver:  "memory",
			wantErr: false,
		},
		{
			name:    "unknown driver fails",
			driver:  "nonexistent",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DatabaseConfig{Driver: tt.driver}
			_, err := store.Open(context.Background(), cfg, clock.Real{})
			if (err != nil) != tt.wantErr {
				t.Errorf("Open(driver=%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
		})
	}
}

func TestDrivers(t *testing.T) {
	names := store.Drivers()
	for _, want := range []string{"memory", "sqlx"} {
		if !slices.Contains(names, want) {
			t.Errorf("Drivers() = %v, missing %q", names, want)
		}
	}
	if !slices.IsSorted(names) {
		t.Errorf("Drivers() = %v, not sorted", names)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("registering memory twice did not panic")
		}
	}()
	store.Register("memory", fakeDriver)
}

func TestRegister_Postgres(t *testing.T) {
	// The sqlx driver is registered by import but fails to connect without a
	// database, so only check that the error is a connection error.
	cfg := config.DatabaseConfig{Driver: "sqlx", Host: "localhost", Port: 1, SSLMode: "disable"}
	_, err := store.Open(context.Background(), cfg, clock.Real{})
	if err == nil {
		t.Fatal("expected error (no DB running), got nil")
	}
	if strings.Contains(err.Error(), "unknown store driver") {
		t.Errorf("expected connection error, got unknown driver error: %v", err)
	}
}

type failingJournal struct{}

func (failingJournal) Record(context.Context, notify.Notice) error {
	return errors.New("disk full")
}

func (failingJournal) Recent(context.Context, int) ([]notify.Notice, error) { return nil, nil }

func TestJournalSink_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	sink := store.JournalSink{Repo: failingJournal{}, Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	sink.Notify(context.Background(), notify.Notice{Intent: "sell", Title: "Player Sold"})

	if !strings.Contains(buf.String(), "disk full") || !strings.Contains(buf.String(), "intent=sell") {
		t.Errorf("log output = %q", buf.String())
	}
}
