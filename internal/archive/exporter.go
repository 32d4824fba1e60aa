// Package archive exports the asset ledger to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"assetledger/internal/archive/objstore"
	"assetledger/internal/core"
)

const (
	historyPrefix = "history/"
	contentType   = "text/csv"
)

var header = []string{"id", "asset_id", "action", "performed_by", "performed_at", "details", "notes", "previous_status", "new_status"}

// HistorySource yields ledger rows in ledger order.
type HistorySource interface {
	ListHistory(ctx context.Context) ([]core.AssetHistory, error)
}

// Export describes one written archive object.
type Export struct {
	objstore.Info
	Rows int `json:"rows"`
}

type Exporter struct {
	source HistorySource
	store  objstore.Store
	now    func() time.Time
	newID  func() string
}

func NewExporter(source HistorySource, store objstore.Store) *Exporter {
	return &Exporter{
		source: source,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// ExportHistory writes the full ledger as CSV under
// history/<UTC timestamp>-<uuid>.csv.
func (e *Exporter) ExportHistory(ctx context.Context) (Export, error) {
	rows, err := e.source.ListHistory(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("list history: %w", err)
	}
	body, err := encodeHistory(rows)
	if err != nil {
		return Export{}, err
	}
	now := e.now().UTC()
	key := fmt.Sprintf("%s%s-%s.csv", historyPrefix, now.Format("20060102T150405Z"), e.newID())
	info, err := e.store.Put(ctx, key, bytes.NewReader(body), objstore.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"rows":        strconv.Itoa(len(rows)),
			"exported_at": now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return Export{}, fmt.Errorf("store %s: %w", key, err)
	}
	return Export{Info: info, Rows: len(rows)}, nil
}

// List returns earlier exports ordered by key, which is also time order.
func (e *Exporter) List(ctx context.Context) ([]objstore.Info, error) {
	return e.store.List(ctx, historyPrefix)
}

func encodeHistory(rows []core.AssetHistory) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.AssetID, 10),
			string(r.Action),
			optionalID(r.PerformedBy),
			r.PerformedAt.UTC().Format(time.RFC3339Nano),
			r.Details,
			optional(r.Notes),
			optional(r.PreviousStatus),
			optional(r.NewStatus),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return buf.Bytes(), nil
}

func optionalID(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optional[T ~string](v *T) string {
	if v == nil {
		return ""
	}
	return string(*v)
}
