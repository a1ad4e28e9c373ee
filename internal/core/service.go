package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MartinRitsberg/ParemInfo/internal/store"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// Keys and names shared with anything reading the store directly.
const (
	DatasetKey       = "excelData"
	ClientsSheet     = "Clients"
	ClientKeyPrefix  = "client_"
	SheetKeyPrefix   = "sheet_"
	DefaultMaxUpload = 50 << 20
)

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	// MaxFileSize caps how many bytes an import or CSV load reads.
	MaxFileSize int64

	// MaxConcurrent and MaxWaitTime configure each surface's limiter.
	MaxConcurrent int
	MaxWaitTime   time.Duration

	// ExportName is used when an export is requested without a name.
	ExportName string

	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Service is the entry point for every workflow. It is safe for
// concurrent use; each surface admits operations through its own limiter.
type Service struct {
	store       *store.Manager
	maxFileSize int64
	exportName  string
	now         func() time.Time
	logger      *slog.Logger

	importLimiter *Limiter
	exportLimiter *Limiter
	editLimiter   *Limiter

	importStatus *statusTracker
	exportStatus *statusTracker

	mu         sync.RWMutex
	lastImport *tabular.Dataset

	view *DatasetView
}

// NewService creates a Service over st.
func NewService(st *store.Manager, opts Options) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxUpload
	}
	if opts.ExportName == "" {
		opts.ExportName = tabular.DefaultExportName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Service{
		store:         st,
		maxFileSize:   opts.MaxFileSize,
		exportName:    opts.ExportName,
		now:           opts.Now,
		logger:        opts.Logger,
		importLimiter: NewLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		exportLimiter: NewLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		editLimiter:   NewLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		importStatus:  newStatusTracker(opts.Now),
		exportStatus:  newStatusTracker(opts.Now),
	}
	s.view = newDatasetView(s)
	return s
}

// Store exposes the underlying store manager.
func (s *Service) Store() *store.Manager { return s.store }

// Dataset returns the editable view of the default dataset.
func (s *Service) Dataset() *DatasetView { return s.view }

// ImportStatus returns the state of the most recent import.
func (s *Service) ImportStatus() Status { return s.importStatus.get() }

// ExportStatus returns the state of the most recent export.
func (s *Service) ExportStatus() Status { return s.exportStatus.get() }

// SubscribeImport streams import status changes until cancel is called.
func (s *Service) SubscribeImport() (<-chan Status, func()) { return s.importStatus.subscribe() }

// LastImport returns the dataset decoded by the last successful import,
// or nil.
func (s *Service) LastImport() *tabular.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastImport
}

// Limits reports each surface's limiter state.
func (s *Service) Limits() map[string]LimiterStatus {
	return map[string]LimiterStatus{
		"import": s.importLimiter.Status(),
		"export": s.exportLimiter.Status(),
		"editor": s.editLimiter.Status(),
	}
}

// Reset empties the store and forgets the last import. The editor view is
// left alone; it reloads on demand.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.importLimiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.importLimiter.Release()

	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastImport = nil
	s.mu.Unlock()
	s.importStatus.set(Status{Phase: PhaseIdle})
	return nil
}

// Drain waits for running operations on every surface to finish.
func (s *Service) Drain(ctx context.Context) error {
	for _, l := range []*Limiter{s.importLimiter, s.exportLimiter, s.editLimiter} {
		if err := l.WaitForDrain(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) timestamp() string {
	return store.Stamp(s.now())
}
