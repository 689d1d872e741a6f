package database

import (
	"context"
	"strings"
	"testing"

	"github.com/Combine-Capital/tsqi/pkg/config"
	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/pashagolub/pgxmock/v4"
)

func TestBuildConnString(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "tsdb",
		User:     "cache",
		Password: "secret",
		SSLMode:  "disable",
	}

	connStr := buildConnString(cfg)
	for _, want := range []string{"host=localhost", "port=5432", "dbname=tsdb", "user=cache", "sslmode=disable"} {
		if !strings.Contains(connStr, want) {
			t.Errorf("connection string missing %q: %s", want, connStr)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("failed to create mock pool: %v", err)
		}
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"result"}).AddRow(1)
		mock.ExpectQuery("SELECT 1").WillReturnRows(rows)

		if err := CheckHealth(context.Background(), mock); err != nil {
			t.Errorf("CheckHealth() failed: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("query error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("failed to create mock pool: %v", err)
		}
		defer mock.Close()

		mock.ExpectQuery("SELECT 1").WillReturnError(errors.NewTemporary("connection refused", nil))

		if err := CheckHealth(context.Background(), mock); !errors.IsTemporary(err) {
			t.Errorf("CheckHealth() = %v, want TemporaryError", err)
		}
	})

	t.Run("unexpected result", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("failed to create mock pool: %v", err)
		}
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"result"}).AddRow(0)
		mock.ExpectQuery("SELECT 1").WillReturnRows(rows)

		if err := CheckHealth(context.Background(), mock); err == nil {
			t.Error("CheckHealth() should fail on unexpected result")
		}
	})
}
