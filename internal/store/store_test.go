package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rickgao/ratehub/internal/config"
	"github.com/rickgao/ratehub/internal/model"
)

func testSnapshot(usdtry float64) *model.Snapshot {
	k24 := int64(2057)
	lastPush := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)
	return &model.Snapshot{
		Payload: model.RatesPayload{
			Gold: model.GoldLadder{K24: &k24},
			FX:   map[string]*float64{"USD_TRY": &usdtry, "EUR_GBP": nil},
			USD:  model.LegacyUSD{TRY: &usdtry},
		},
		FetchedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:     model.SourcePush,
		LastPushAt: &lastPush,
		Inputs:     model.GoldInputs{USDTRY: &usdtry},
	}
}

func checkRoundTrip(t *testing.T, got *model.Snapshot, usdtry float64) {
	t.Helper()
	if got.Source != model.SourcePush {
		t.Errorf("Source = %q, want PUSH", got.Source)
	}
	if !got.FetchedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("FetchedAt = %v", got.FetchedAt)
	}
	if v := got.Payload.FX["USD_TRY"]; v == nil || *v != usdtry {
		t.Errorf("USD_TRY = %v, want %v", v, usdtry)
	}
	if v, ok := got.Payload.FX["EUR_GBP"]; !ok || v != nil {
		t.Errorf("EUR_GBP = %v (present %v), want null", v, ok)
	}
	if got.Payload.Gold.K24 == nil || *got.Payload.Gold.K24 != 2057 {
		t.Errorf("k24 = %v, want 2057", got.Payload.Gold.K24)
	}
	if got.LastPushAt == nil {
		t.Error("LastPushAt = nil")
	}
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	st, err := NewRedis(ctx, config.RedisConfig{Addr: mr.Addr(), Key: "ratehub:test"})
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	defer st.Close()

	if _, err := st.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on empty store error = %v, want ErrNotFound", err)
	}

	if err := st.Save(ctx, testSnapshot(32)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := st.Save(ctx, testSnapshot(32.5)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !mr.Exists("ratehub:test") {
		t.Fatal("key ratehub:test not written")
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	checkRoundTrip(t, got, 32.5)
}

func TestRedis_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Set("ratehub:test", "{not json")

	st := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "ratehub:test")
	defer st.Close()

	if _, err := st.Load(context.Background()); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want decode error", err)
	}
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedis(ctx, config.RedisConfig{Addr: addr, Key: "k"}); err == nil {
		t.Error("NewRedis() error = nil, want connect error")
	}
}

// TestPostgres runs against a real database when TEST_DATABASE_URL is set.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	st, err := NewPostgres(ctx, pool)
	if err != nil {
		pool.Close()
		t.Fatalf("NewPostgres() error = %v", err)
	}
	defer st.Close()

	if _, err := pool.Exec(ctx, `DELETE FROM rate_snapshot`); err != nil {
		t.Fatalf("clean table: %v", err)
	}
	if _, err := st.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on empty table error = %v, want ErrNotFound", err)
	}

	if err := st.Save(ctx, testSnapshot(32)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := st.Save(ctx, testSnapshot(33)); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM rate_snapshot`).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("rows = %d, want 1", rows)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	checkRoundTrip(t, got, 33)
}
