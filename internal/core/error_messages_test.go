package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/MartinRitsberg/ParemInfo/internal/store"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"key conflict inside transaction", &store.Error{Kind: store.ErrTransaction, Op: "update", Err: &store.Error{Kind: store.ErrKeyConflict, Op: "add", Key: "sheet_A"}}, "STO004"},
		{"plain transaction failure", &store.Error{Kind: store.ErrTransaction, Op: "put", Err: errors.New("disk I/O error")}, "STO003"},
		{"open failure", &store.Error{Kind: store.ErrOpen, Op: "open"}, "STO001"},
		{"upgrade failure", &store.Error{Kind: store.ErrUpgrade, Op: "upgrade"}, "STO002"},
		{"missing collection", &store.Error{Kind: store.ErrMissingCollection, Op: "open"}, "STO005"},
		{"decode", &tabular.DecodeError{Err: errors.New("zip: not a valid zip file")}, "FILE003"},
		{"file read", fmt.Errorf("%w: unexpected EOF", ErrFileRead), "FILE002"},
		{"too large", fmt.Errorf("import: %w", ErrFileTooLarge), "FILE001"},
		{"nothing to export", tabular.ErrNothingToExport, "EXP001"},
		{"not ready", fmt.Errorf("edit: %w", ErrNotReady), "EDT001"},
		{"client missing in save", &store.Error{Kind: store.ErrTransaction, Err: ErrClientNotFound}, "CLI001"},
		{"invalid request", fmt.Errorf("decode body: %w", ErrInvalidRequest), "REQ001"},
		{"busy", ErrBusy, "UPL002"},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), "UPL005"},
		{"pattern fallback", errors.New("Rate Limit exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(tabular.ErrNothingToExport)
	want := "No data available to export (Code: EXP001). Load or import data first"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestFormatStatusError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{"empty export", tabular.ErrNothingToExport, "No data available to export"},
		{"file read", fmt.Errorf("%w: boom", ErrFileRead), "Failed to read the file"},
		{"decode", &tabular.DecodeError{Err: errors.New("zip: not a valid zip file")}, "Failed to parse Excel file: zip: not a valid zip file"},
		{"transaction", &store.Error{Kind: store.ErrTransaction, Op: "update", Err: errors.New("boom")}, "Transaction error: "},
		{"other", ErrBusy, "Another operation is in progress (Code: UPL002)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatStatusError(tt.err)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("FormatStatusError() = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrBusy) {
		t.Error("ErrBusy should be user facing")
	}
	if IsUserFacing(errors.New("random internal error xyz")) {
		t.Error("unknown error should not be user facing")
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	ue := NewUserError(fmt.Errorf("load: %w", ErrNotReady))
	if ue.User.Code != "EDT001" {
		t.Errorf("Code = %q, want EDT001", ue.User.Code)
	}
	if !errors.Is(ue, ErrNotReady) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.Error() != "The dataset is not loaded" {
		t.Errorf("Error() = %q", ue.Error())
	}
}
