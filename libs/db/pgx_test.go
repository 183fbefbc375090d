package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOpenOptionsKeepURLPoolSettings(t *testing.T) {
	cases := []struct {
		dsn  string
		opts []Option
		want int32
	}{
		{"postgres://u:p@localhost:5432/salon", nil, 10},
		{"postgres://u:p@localhost:5432/salon?pool_max_conns=3", nil, 3},
		{"host=localhost dbname=salon pool_max_conns=4", nil, 4},
		{"postgres://u:p@localhost:5432/salon", []Option{WithMaxConns(2)}, 2},
		{"postgres://u:p@localhost:5432/salon", []Option{WithMaxConns(0)}, 10},
	}
	for _, tc := range cases {
		cfg, err := pgxpoolConfig(tc.dsn, tc.opts...)
		if err != nil {
			t.Fatalf("%s: %v", tc.dsn, err)
		}
		if cfg.MaxConns != tc.want {
			t.Errorf("%s: max conns = %d, want %d", tc.dsn, cfg.MaxConns, tc.want)
		}
		if cfg.MinConns > cfg.MaxConns {
			t.Errorf("%s: min conns %d above max %d", tc.dsn, cfg.MinConns, cfg.MaxConns)
		}
	}
}

func TestQueryTracerSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	qt := newQueryTracer()
	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "  select id from appointments"})
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 2")})

	ctx = qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "INSERT INTO appointments"})
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("exclusion violation")})

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "SELECT" || spans[1].Name() != "INSERT" {
		t.Fatalf("span names = %q, %q", spans[0].Name(), spans[1].Name())
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatalf("failed statement status = %v", spans[1].Status())
	}
}
