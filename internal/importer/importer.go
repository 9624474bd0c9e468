// Package importer loads historical readings from CSV exports into the
// bridge store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"ecosense/internal/bridge/types"
)

const (
	// TimeLayout matches the exports of the bridge and of the data generator.
	// Timestamps carry no zone and are read as UTC.
	TimeLayout = "2006-01-02 15:04:05.999999"

	DefaultBatchSize = 400
)

// BatchStore writes one batch atomically.
type BatchStore interface {
	InsertReadings(ctx context.Context, readings []types.Reading) error
}

type Summary struct {
	Rows     int
	Imported int
	Skipped  int
}

type Importer struct {
	store     BatchStore
	batchSize int
	logger    *slog.Logger
}

func New(store BatchStore, logger *slog.Logger) *Importer {
	return &Importer{store: store, batchSize: DefaultBatchSize, logger: logger}
}

// Import reads a "timestamp,value" CSV with a header row and stores every
// well-formed row as a reading of kind. Malformed rows are logged and skipped.
// A failed batch aborts the import; batches already committed stay.
func (im *Importer) Import(ctx context.Context, r io.Reader, kind types.Kind) (Summary, error) {
	var sum Summary

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return sum, errors.New("empty file")
	}
	if err != nil {
		return sum, fmt.Errorf("read header: %w", err)
	}
	tsCol, valCol, err := columns(header)
	if err != nil {
		return sum, err
	}

	batch := make([]types.Reading, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.store.InsertReadings(ctx, batch); err != nil {
			return fmt.Errorf("insert batch after %d rows: %w", sum.Imported, err)
		}
		sum.Imported += len(batch)
		im.logger.Info("batch committed", "kind", kind, "imported", sum.Imported)
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		sum.Rows++

		var perr *csv.ParseError
		if errors.As(err, &perr) {
			im.logger.Warn("skipping row", "line", perr.Line, "error", perr.Err)
			sum.Skipped++
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("read csv: %w", err)
		}

		reading, err := parseRow(record, tsCol, valCol, kind)
		if err != nil {
			line, _ := cr.FieldPos(0)
			im.logger.Warn("skipping row", "line", line, "error", err)
			sum.Skipped++
			continue
		}

		batch = append(batch, reading)
		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return sum, err
			}
		}
	}

	if err := flush(); err != nil {
		return sum, err
	}
	return sum, nil
}

func columns(header []string) (tsCol, valCol int, err error) {
	tsCol, valCol = -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "timestamp":
			tsCol = i
		case "value":
			valCol = i
		}
	}
	if tsCol < 0 || valCol < 0 {
		return 0, 0, fmt.Errorf("header %q must name timestamp and value columns", strings.Join(header, ","))
	}
	return tsCol, valCol, nil
}

func parseRow(record []string, tsCol, valCol int, kind types.Kind) (types.Reading, error) {
	if len(record) <= tsCol || len(record) <= valCol {
		return types.Reading{}, fmt.Errorf("expected at least %d fields, got %d", max(tsCol, valCol)+1, len(record))
	}

	ts, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(record[tsCol]), time.UTC)
	if err != nil {
		return types.Reading{}, fmt.Errorf("invalid timestamp %q: %w", record[tsCol], err)
	}

	s := strings.TrimSpace(record[valCol])
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return types.Reading{}, fmt.Errorf("invalid value %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return types.Reading{}, fmt.Errorf("invalid value %q: not finite", s)
	}

	return types.Reading{Kind: kind, Time: ts, Value: v}, nil
}
