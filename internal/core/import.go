package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MartinRitsberg/ParemInfo/internal/logging"
	"github.com/MartinRitsberg/ParemInfo/internal/store"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// ImportResult summarizes a committed import.
type ImportResult struct {
	OperationID string        `json:"operation_id"`
	FileName    string        `json:"file_name"`
	SheetCount  int           `json:"sheet_count"`
	Sheets      []string      `json:"sheets"`
	Clients     int           `json:"clients"`
	Warnings    []string      `json:"warnings,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Import replaces the store's contents with the sheets of a spreadsheet
// file. The store is reset first, so a failed import leaves it empty.
//
// The "Clients" sheet is split into one record per row; every other sheet
// is stored whole. SheetCount includes the Clients sheet.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader) (*ImportResult, error) {
	if err := s.importLimiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.importLimiter.Release()

	opID := uuid.New().String()
	logger := logging.WithFields(ctx, "operation_id", opID, "file", fileName).With(originFields(ctx)...)
	start := time.Now()

	s.importStatus.loading(opID)
	logger.Info("import started")

	result, err := s.runImport(ctx, opID, fileName, r)
	if err != nil {
		s.importStatus.fail(opID, err)
		logger.Error("import failed", "error", err)
		return nil, err
	}
	result.Duration = time.Since(start)

	for _, w := range result.Warnings {
		logger.Warn("import warning", "warning", w)
	}
	s.importStatus.succeed(opID, result.SheetCount, result.Sheets)
	logger.Info("import completed",
		"sheets", result.SheetCount,
		"clients", result.Clients,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) runImport(ctx context.Context, opID, fileName string, r io.Reader) (*ImportResult, error) {
	if err := s.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}
	s.mu.Lock()
	s.lastImport = nil
	s.mu.Unlock()

	data, err := readLimited(r, s.maxFileSize)
	if err != nil {
		return nil, err
	}

	format := tabular.FormatFromName(fileName)
	if format == tabular.FormatUnknown {
		// Browsers and scripts do not always keep the extension.
		if format, err = tabular.SniffFormat(data); err != nil {
			return nil, err
		}
	}
	ds, err := tabular.Decode(bytes.NewReader(data), format, fileName)
	if err != nil {
		return nil, err
	}

	clients, err := s.writeDataset(ctx, ds)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastImport = ds
	s.mu.Unlock()

	var warnings []string
	if sheet, ok := ds.Sheet(ClientsSheet); ok {
		for _, v := range validateClients(sheet) {
			warnings = append(warnings, v.Error())
		}
	}

	return &ImportResult{
		OperationID: opID,
		FileName:    fileName,
		SheetCount:  ds.Len(),
		Sheets:      ds.Names(),
		Clients:     clients,
		Warnings:    warnings,
	}, nil
}

// writeDataset stores every sheet of ds in one transaction and returns the
// number of client records written.
func (s *Service) writeDataset(ctx context.Context, ds *tabular.Dataset) (int, error) {
	stamp := s.timestamp()
	clients := 0

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.Clear(); err != nil {
			return err
		}
		for _, sheet := range ds.Sheets {
			if sheet.Name != ClientsSheet {
				continue
			}
			for i, row := range sheet.Rows {
				body, err := row.MarshalJSON()
				if err != nil {
					return fmt.Errorf("encode client %d: %w", i+1, err)
				}
				if err := tx.Add(store.Record{
					ID:   ClientKeyPrefix + strconv.Itoa(i+1),
					Type: store.TypeClient,
					Data: body,
				}); err != nil {
					return err
				}
				clients++
			}
		}
		for _, sheet := range ds.Sheets {
			if sheet.Name == ClientsSheet {
				continue
			}
			body, err := tabular.MarshalRows(sheet.Rows)
			if err != nil {
				return fmt.Errorf("encode sheet %q: %w", sheet.Name, err)
			}
			if err := tx.Add(store.Record{
				ID:        SheetKeyPrefix + sheet.Name,
				SheetName: sheet.Name,
				Data:      body,
				Timestamp: stamp,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return clients, err
}

