package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ecosense/internal/alert"
	"ecosense/internal/bridge/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

//go:embed sql/count-readings.sql
var countReadingsSQL string

//go:embed sql/get-thresholds.sql
var getThresholdsSQL string

//go:embed sql/upsert-thresholds.sql
var upsertThresholdsSQL string

//go:embed sql/insert-default-thresholds.sql
var insertDefaultThresholdsSQL string

// tsLayout is fixed width so that timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000Z"

var ErrNoThresholds = errors.New("thresholds not configured")

type ReadingsRepository interface {
	InsertReading(ctx context.Context, r types.Reading) error
	// InsertReadings stores all rows in one transaction.
	InsertReadings(ctx context.Context, rs []types.Reading) error
	// GetLatestReadings returns up to limit readings of kind, newest first.
	GetLatestReadings(ctx context.Context, kind types.Kind, limit int) ([]types.Reading, error)
	CountReadings(ctx context.Context, kind types.Kind) (int, error)

	GetThresholds(ctx context.Context) (types.Thresholds, error)
	PutThresholds(ctx context.Context, b alert.Bounds, at time.Time) error
	// EnsureThresholds stores b only if no thresholds exist yet and reports
	// whether it did.
	EnsureThresholds(ctx context.Context, b alert.Bounds, at time.Time) (bool, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ReadingsRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertReading(ctx context.Context, rd types.Reading) error {
	if _, err := r.db.ExecContext(ctx, insertReadingSQL, string(rd.Kind), formatTS(rd.Time), rd.Value); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *repositoryImpl) InsertReadings(ctx context.Context, rs []types.Reading) error {
	if len(rs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertReadingSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close insert statement", "error", err)
		}
	}()

	for i, rd := range rs {
		if _, err := stmt.ExecContext(ctx, string(rd.Kind), formatTS(rd.Time), rd.Value); err != nil {
			return fmt.Errorf("insert reading %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetLatestReadings(ctx context.Context, kind types.Kind, limit int) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getLatestReadingsSQL, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close latest readings rows", "error", err)
		}
	}()

	out := make([]types.Reading, 0, limit)
	for rows.Next() {
		var (
			rd   types.Reading
			kind string
			ts   string
		)
		if err := rows.Scan(&kind, &ts, &rd.Value); err != nil {
			return nil, err
		}
		t, err := parseTS(ts)
		if err != nil {
			return nil, err
		}
		rd.Kind = types.Kind(kind)
		rd.Time = t
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) CountReadings(ctx context.Context, kind types.Kind) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countReadingsSQL, string(kind)).Scan(&n)
	return n, err
}

func (r *repositoryImpl) GetThresholds(ctx context.Context) (types.Thresholds, error) {
	var (
		t  types.Thresholds
		ts string
	)
	err := r.db.QueryRowContext(ctx, getThresholdsSQL).
		Scan(&t.TempMin, &t.TempMax, &t.HumidMin, &t.HumidMax, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Thresholds{}, ErrNoThresholds
	}
	if err != nil {
		return types.Thresholds{}, fmt.Errorf("get thresholds: %w", err)
	}
	if t.UpdatedAt, err = parseTS(ts); err != nil {
		return types.Thresholds{}, err
	}
	return t, nil
}

func (r *repositoryImpl) PutThresholds(ctx context.Context, b alert.Bounds, at time.Time) error {
	_, err := r.db.ExecContext(ctx, upsertThresholdsSQL, b.TempMin, b.TempMax, b.HumidMin, b.HumidMax, formatTS(at))
	if err != nil {
		return fmt.Errorf("put thresholds: %w", err)
	}
	return nil
}

func (r *repositoryImpl) EnsureThresholds(ctx context.Context, b alert.Bounds, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertDefaultThresholdsSQL, b.TempMin, b.TempMax, b.HumidMin, b.HumidMax, formatTS(at))
	if err != nil {
		return false, fmt.Errorf("ensure thresholds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure thresholds: %w", err)
	}
	return n == 1, nil
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339Nano, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	}
	return t, nil
}
