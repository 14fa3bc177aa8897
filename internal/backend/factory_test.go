package backend

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"household/internal/config"
	"household/internal/log"
	"household/internal/sheets/xlsx"
	"household/internal/storage"
)

func testFactory() *DefaultFactory {
	return NewFactory(log.New(log.Config{Output: io.Discard}))
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := testFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if res.Publisher != nil {
		t.Error("Publisher should be nil without AMQP URL")
	}
	if _, ok := res.Opener.(xlsx.Opener); !ok {
		t.Errorf("Opener = %T, want xlsx.Opener", res.Opener)
	}
	if err := res.Repository.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "household.db")
	res, err := testFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if err := res.Repository.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestCreateBackend_SQLiteRetriesThenGivesUp(t *testing.T) {
	f := testFactory()
	calls := 0
	f.openSQLite = func(string) (storage.Repository, error) {
		calls++
		return nil, errors.New("database is locked")
	}

	_, err := f.CreateBackend(context.Background(), Config{
		Type:           SQLiteBackend,
		SQLiteDBPath:   "unused.db",
		ConnectRetries: 2,
		ConnectBackoff: time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 3 {
		t.Errorf("attempts = %d, want 3", calls)
	}
}

func TestCreateBackend_SQLiteRecovers(t *testing.T) {
	f := testFactory()
	calls := 0
	f.openSQLite = func(path string) (storage.Repository, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("unavailable")
		}
		return storage.NewSQLiteRepository(path)
	}

	res, err := f.CreateBackend(context.Background(), Config{
		Type:           SQLiteBackend,
		SQLiteDBPath:   filepath.Join(t.TempDir(), "household.db"),
		ConnectRetries: 5,
		ConnectBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()
	if calls != 2 {
		t.Errorf("attempts = %d, want 2", calls)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "postgres"}, true},
		{"bad import source", Config{Type: MemoryBackend, ImportSource: "ftp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:      "sqlite",
		SQLiteDBPath:     "db.sqlite",
		DBConnectRetries: 3,
		DBConnectBackoff: 2 * time.Second,
		ImportSource:     config.ImportSourceXLSX,
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.ConnectRetries != 3 || cfg.ConnectBackoff != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unsupported backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
