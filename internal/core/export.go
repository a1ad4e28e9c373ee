package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/MartinRitsberg/ParemInfo/internal/logging"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// ExportResult is an encoded workbook ready to be delivered.
type ExportResult struct {
	OperationID string
	FileName    string
	Rows        int
	Data        []byte
}

// Export encodes the persisted default dataset as a single-sheet workbook.
// fileName gets ".xlsx" appended when missing; an empty name uses the
// configured default. A missing or empty dataset fails with
// tabular.ErrNothingToExport.
func (s *Service) Export(ctx context.Context, fileName string) (*ExportResult, error) {
	if err := s.exportLimiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.exportLimiter.Release()

	opID := uuid.New().String()
	if fileName == "" {
		fileName = s.exportName
	}
	name := tabular.EnsureExtension(fileName)
	logger := logging.WithFields(ctx, "operation_id", opID, "file", name).With(originFields(ctx)...)

	s.exportStatus.loading(opID)

	rows, err := s.loadDataset(ctx)
	if err == nil && len(rows) == 0 {
		err = tabular.ErrNothingToExport
	}
	var buf bytes.Buffer
	if err == nil {
		err = tabular.EncodeWorkbook(&buf, rows)
	}
	if err != nil {
		s.exportStatus.fail(opID, err)
		logger.Warn("export failed", "error", err)
		return nil, err
	}

	s.exportStatus.succeed(opID, len(rows), nil)
	logger.Info("export completed", "rows", len(rows), "bytes", buf.Len())
	return &ExportResult{
		OperationID: opID,
		FileName:    name,
		Rows:        len(rows),
		Data:        buf.Bytes(),
	}, nil
}

// ExportFile exports into dir and returns the written path.
func (s *Service) ExportFile(ctx context.Context, dir, fileName string) (string, error) {
	res, err := s.Export(ctx, fileName)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(res.FileName))
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// loadDataset reads the rows stored under DatasetKey. A missing record, or
// one whose data is not an array, yields no rows.
func (s *Service) loadDataset(ctx context.Context) ([]tabular.Record, error) {
	rec, ok, err := s.store.Get(ctx, DatasetKey)
	if err != nil || !ok {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(rec.Data), []byte("[")) {
		return nil, nil
	}
	rows, err := tabular.UnmarshalRows(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", DatasetKey, err)
	}
	return rows, nil
}
