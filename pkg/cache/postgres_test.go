package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/config"
	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func setupTestPostgres(t *testing.T) (*PostgresPlugin, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}

	plugin, err := NewPostgresWithPool(mock, config.DatabaseConfig{
		Table:        "query_cache",
		QueryTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create Postgres plugin: %v", err)
	}

	return plugin, mock
}

func TestNewPostgresWithPoolValidation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	if _, err := NewPostgresWithPool(mock, config.DatabaseConfig{Table: "bad;table"}); !errors.IsInvalidInput(err) {
		t.Errorf("NewPostgresWithPool() = %v for bad table name, want InvalidInputError", err)
	}

	// Empty table falls back to the default
	plugin, err := NewPostgresWithPool(mock, config.DatabaseConfig{})
	if err != nil {
		t.Fatalf("NewPostgresWithPool() failed: %v", err)
	}
	if plugin.table != "query_cache" {
		t.Errorf("default table = %v, want query_cache", plugin.table)
	}
	if plugin.Name() != "postgres" {
		t.Errorf("Name() = %v, want postgres", plugin.Name())
	}
}

func TestPostgresFetchHit(t *testing.T) {
	plugin, mock := setupTestPostgres(t)
	defer plugin.Close()

	key := []byte{0xab, 0xcd}
	rows := pgxmock.NewRows([]string{"value"}).AddRow([]byte("stored-bytes"))
	mock.ExpectQuery("SELECT value FROM query_cache").WithArgs(key).WillReturnRows(rows)

	fetch := plugin.Fetch(context.Background(), key, nil)
	<-fetch.Done()

	data, err := fetch.Result()
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(data) != "stored-bytes" {
		t.Errorf("fetch returned %q, want stored-bytes", data)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresFetchMiss(t *testing.T) {
	plugin, mock := setupTestPostgres(t)
	defer plugin.Close()

	key := []byte{0x01}
	mock.ExpectQuery("SELECT value FROM query_cache").WithArgs(key).WillReturnError(pgx.ErrNoRows)

	fetch := plugin.Fetch(context.Background(), key, nil)
	<-fetch.Done()

	data, err := fetch.Result()
	if data != nil || err != nil {
		t.Errorf("miss should resolve (nil, nil), got (%v, %v)", data, err)
	}
}

func TestPostgresFetchError(t *testing.T) {
	plugin, mock := setupTestPostgres(t)
	defer plugin.Close()

	key := []byte{0x01}
	mock.ExpectQuery("SELECT value FROM query_cache").WithArgs(key).
		WillReturnError(errors.NewTemporary("connection reset", nil))

	fetch := plugin.Fetch(context.Background(), key, nil)
	<-fetch.Done()

	if _, err := fetch.Result(); !errors.IsTemporary(err) {
		t.Errorf("fetch error = %v, want TemporaryError", err)
	}
}

func TestPostgresCache(t *testing.T) {
	plugin, mock := setupTestPostgres(t)
	defer plugin.Close()

	key, value := []byte{0xab}, []byte("fresh-result")
	mock.ExpectExec("INSERT INTO query_cache").
		WithArgs(key, value, time.Minute.Milliseconds()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	plugin.Cache(key, value, time.Minute)

	// The write is asynchronous; poll until the expectation is met
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mock.ExpectationsWereMet() == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("cache write never landed: %v", mock.ExpectationsWereMet())
}

func TestPostgresCacheZeroTTL(t *testing.T) {
	plugin, mock := setupTestPostgres(t)
	defer plugin.Close()

	// No expectations registered: any query would fail the test
	plugin.Cache([]byte{0xab}, []byte("dropped"), 0)
	time.Sleep(50 * time.Millisecond)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("zero-TTL write touched the database: %v", err)
	}
}

func TestPostgresEvict(t *testing.T) {
	plugin, mock := setupTestPostgres(t)
	defer plugin.Close()

	mock.ExpectExec("DELETE FROM query_cache").WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := plugin.Evict(context.Background())
	if err != nil {
		t.Fatalf("Evict() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Evict() = %d, want 3", n)
	}
}

func TestPostgresHealth(t *testing.T) {
	plugin, mock := setupTestPostgres(t)
	defer plugin.Close()

	rows := pgxmock.NewRows([]string{"result"}).AddRow(1)
	mock.ExpectQuery("SELECT 1").WillReturnRows(rows)

	if err := plugin.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth() failed: %v", err)
	}
}
