package store

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"tutor-voice-server/internal/platform/errors"
	platformtesting "tutor-voice-server/internal/platform/testing"
)

func TestFactoryMemory(t *testing.T) {
	s, err := New(Config{Driver: DriverMemory}, Dependencies{})
	if err != nil {
		t.Fatalf("New memory store: %v", err)
	}
	defer s.Close(context.Background())
	if s.Driver() != DriverMemory {
		t.Fatalf("Driver() = %s", s.Driver())
	}
}

func TestFactoryDefaultsToMemory(t *testing.T) {
	s, err := New(Config{}, Dependencies{})
	if err != nil {
		t.Fatalf("New default store: %v", err)
	}
	defer s.Close(context.Background())
	if s.Driver() != DriverMemory {
		t.Fatalf("Driver() = %s", s.Driver())
	}
}

func TestFactorySQLite(t *testing.T) {
	if _, err := New(Config{Driver: DriverSQLite}, Dependencies{}); err == nil {
		t.Fatalf("expected error without database handle")
	}

	s, err := New(Config{Driver: DriverSQLite}, Dependencies{SQLiteDB: platformtesting.OpenTestDB(t)})
	if err != nil {
		t.Fatalf("New sqlite store: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestFactoryRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	s, err := New(Config{Driver: DriverRedis, Redis: &RedisConfig{Addr: mr.Addr()}}, Dependencies{})
	if err != nil {
		t.Fatalf("New redis store: %v", err)
	}
	defer s.Close(context.Background())
	if s.Driver() != DriverRedis {
		t.Fatalf("Driver() = %s", s.Driver())
	}
}

func TestFactoryDriverNameIsCaseInsensitive(t *testing.T) {
	s, err := New(Config{Driver: " Memory "}, Dependencies{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(context.Background())
	if s.Driver() != DriverMemory {
		t.Fatalf("Driver() = %s", s.Driver())
	}
}

func TestFactoryRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown driver", Config{Driver: "etcd"}},
		{"redis without config", Config{Driver: DriverRedis}},
		{"redis without addr", Config{Driver: DriverRedis, Redis: &RedisConfig{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, Dependencies{})
			if !errors.IsKind(err, errors.KindConfig) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}
}
