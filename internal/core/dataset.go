package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/MartinRitsberg/ParemInfo/internal/logging"
	"github.com/MartinRitsberg/ParemInfo/internal/store"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// ViewState is the lifecycle state of the editable dataset.
type ViewState string

const (
	ViewIdle    ViewState = "idle"
	ViewLoading ViewState = "loading"
	ViewReady   ViewState = "ready"
	ViewSaving  ViewState = "saving"
	ViewError   ViewState = "error"
)

// DatasetView is an in-memory copy of the default dataset. Edits touch
// only the copy until Save overwrites the stored record with every row.
type DatasetView struct {
	svc *Service

	mu      sync.RWMutex
	state   ViewState
	rows    []tabular.Record
	loaded  bool
	message string
	saved   bool
}

func newDatasetView(svc *Service) *DatasetView {
	return &DatasetView{svc: svc, state: ViewIdle}
}

// ViewSnapshot is a consistent copy of the view for rendering.
type ViewSnapshot struct {
	State   ViewState        `json:"state"`
	Columns []string         `json:"columns"`
	Rows    []tabular.Record `json:"rows"`
	Message string           `json:"message,omitempty"`
	Saved   bool             `json:"saved"`
}

// Snapshot returns the current state with copies of the rows.
func (v *DatasetView) Snapshot() ViewSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	snap := ViewSnapshot{
		State:   v.state,
		Rows:    tabular.CloneRows(v.rows),
		Message: v.message,
		Saved:   v.saved,
	}
	if len(v.rows) > 0 {
		snap.Columns = v.rows[0].Columns()
	}
	return snap
}

// State returns the current state.
func (v *DatasetView) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Rows returns copies of the in-memory rows.
func (v *DatasetView) Rows() []tabular.Record {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return tabular.CloneRows(v.rows)
}

// Columns returns the first row's columns.
func (v *DatasetView) Columns() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.rows) == 0 {
		return nil
	}
	return v.rows[0].Columns()
}

func (v *DatasetView) setState(state ViewState, message string) {
	v.mu.Lock()
	v.state = state
	v.message = message
	v.mu.Unlock()
}

// Load replaces the in-memory rows with the stored default dataset. A
// missing dataset loads as zero rows. On failure the previous rows are
// kept and the view enters the error state.
func (v *DatasetView) Load(ctx context.Context) error {
	if err := v.svc.editLimiter.Acquire(ctx); err != nil {
		return err
	}
	defer v.svc.editLimiter.Release()

	v.setState(ViewLoading, "")
	rows, err := v.svc.loadDataset(ctx)
	if err != nil {
		v.setState(ViewError, FormatStatusError(err))
		logging.FromContext(ctx).Error("dataset load failed", "error", err)
		return err
	}

	v.mu.Lock()
	v.rows = rows
	v.loaded = true
	v.saved = false
	v.state = ViewReady
	v.message = ""
	v.mu.Unlock()
	return nil
}

// EditCell sets one cell of the in-memory copy. It is only valid in the
// ready state. A column the row lacks is appended to that row.
func (v *DatasetView) EditCell(row int, column, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != ViewReady {
		return fmt.Errorf("edit cell in %s state: %w", v.state, ErrNotReady)
	}
	if row < 0 || row >= len(v.rows) {
		return fmt.Errorf("edit row %d of %d: %w", row, len(v.rows), ErrRowOutOfRange)
	}
	v.rows[row].Set(column, tabular.Text(value))
	v.saved = false
	return nil
}

// Save overwrites the stored default dataset with every in-memory row.
// A failed save leaves the rows in memory and may be retried.
func (v *DatasetView) Save(ctx context.Context) error {
	if err := v.svc.editLimiter.Acquire(ctx); err != nil {
		return err
	}
	defer v.svc.editLimiter.Release()

	v.mu.Lock()
	if !v.loaded || v.state == ViewLoading || v.state == ViewSaving {
		state := v.state
		v.mu.Unlock()
		return fmt.Errorf("save in %s state: %w", state, ErrNotReady)
	}
	rows := tabular.CloneRows(v.rows)
	v.state = ViewSaving
	v.message = ""
	v.mu.Unlock()

	opID := uuid.New().String()
	logger := logging.WithFields(ctx, "operation_id", opID, "rows", len(rows)).With(originFields(ctx)...)

	if err := v.svc.putDataset(ctx, rows); err != nil {
		v.setState(ViewError, FormatStatusError(err))
		logger.Error("dataset save failed", "error", err)
		return err
	}

	v.mu.Lock()
	v.state = ViewReady
	v.saved = true
	v.mu.Unlock()
	logger.Info("dataset saved")
	return nil
}

// LoadCSV parses comma-separated text, stores it as the default dataset
// and makes it the in-memory copy.
func (v *DatasetView) LoadCSV(ctx context.Context, r io.Reader) error {
	if err := v.svc.editLimiter.Acquire(ctx); err != nil {
		return err
	}
	defer v.svc.editLimiter.Release()

	v.setState(ViewLoading, "")

	fail := func(err error) error {
		v.setState(ViewError, FormatStatusError(err))
		logging.FromContext(ctx).Error("csv load failed", "error", err)
		return err
	}

	data, err := readLimited(r, v.svc.maxFileSize)
	if err != nil {
		return fail(err)
	}
	sheet, err := tabular.DecodeCSV(bytes.NewReader(data), DatasetKey)
	if err != nil {
		return fail(err)
	}

	v.mu.Lock()
	v.rows = sheet.Rows
	v.loaded = true
	v.mu.Unlock()

	if err := v.svc.putDataset(ctx, sheet.Rows); err != nil {
		return fail(err)
	}

	v.mu.Lock()
	v.state = ViewReady
	v.saved = true
	v.mu.Unlock()
	return nil
}

// putDataset overwrites the default dataset record.
func (s *Service) putDataset(ctx context.Context, rows []tabular.Record) error {
	body, err := tabular.MarshalRows(rows)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return s.store.Put(ctx, store.Record{
		ID:        DatasetKey,
		Data:      body,
		Timestamp: s.timestamp(),
	})
}
