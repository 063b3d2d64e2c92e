package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gewnthar/dentalportal/backend/config"
)

const sheetCSV = "Fecha,Hora,Nombre,Apellidos\n22/09/2025,08:00,Ana,García\n22/09/2025,09:00,Luis,Pérez\n"

func newTestIngestor(primary, fallback string, archiver Archiver) *Ingestor {
	return NewIngestor(config.SheetConfig{
		CSVURL:         primary,
		FallbackCSVURL: fallback,
		SourceTag:      "google_sheets",
		FetchTimeout:   2 * time.Second,
	}, archiver, zerolog.Nop())
}

func TestIngestor_FetchPrimary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sheetCSV))
	}))
	defer srv.Close()

	ing := newTestIngestor(srv.URL+"/primary", srv.URL+"/fallback", nil)
	rows := ing.Fetch(context.Background())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	d := ing.Diagnostics()
	if strings.Join(d.Headers, ",") != "Fecha,Hora,Nombre,Apellidos" {
		t.Errorf("unexpected headers %v", d.Headers)
	}
	if d.RowCount != 2 || d.FetchURL != srv.URL+"/primary" || d.LastError != "" || d.LastFetch == nil {
		t.Errorf("unexpected diagnostics %+v", d)
	}
}

func TestIngestor_FallbackOnStatus(t *testing.T) {
	var hits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		if r.URL.Path == "/primary" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write([]byte(sheetCSV))
	}))
	defer srv.Close()

	ing := newTestIngestor(srv.URL+"/primary", srv.URL+"/fallback", nil)
	rows := ing.Fetch(context.Background())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows from fallback, got %d", len(rows))
	}
	if strings.Join(hits, ",") != "/primary,/fallback" {
		t.Errorf("expected primary then fallback, got %v", hits)
	}
	if d := ing.Diagnostics(); d.FetchURL != srv.URL+"/fallback" {
		t.Errorf("expected fallback URL recorded, got %s", d.FetchURL)
	}
}

func TestIngestor_BothFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ing := newTestIngestor(srv.URL+"/primary", srv.URL+"/fallback", nil)
	if rows := ing.Fetch(context.Background()); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	d := ing.Diagnostics()
	if !strings.Contains(d.LastError, "500") {
		t.Errorf("expected failure reason recorded, got %q", d.LastError)
	}
}

func TestIngestor_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ing := NewIngestor(config.SheetConfig{CSVURL: srv.URL, FetchTimeout: 50 * time.Millisecond}, nil, zerolog.Nop())
	start := time.Now()
	if rows := ing.Fetch(context.Background()); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if time.Since(start) > time.Second {
		t.Errorf("fetch did not honour timeout, took %s", time.Since(start))
	}
	if ing.Diagnostics().LastError == "" {
		t.Error("expected timeout to be recorded")
	}
}

func TestIngestor_HTMLWithoutTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Sign in - Google Accounts</title></head></html>`))
	}))
	defer srv.Close()

	ing := newTestIngestor(srv.URL, "", nil)
	if rows := ing.Fetch(context.Background()); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if !strings.Contains(ing.Diagnostics().LastError, "Sign in") {
		t.Errorf("expected page title in error, got %q", ing.Diagnostics().LastError)
	}
}

func TestIngestor_RejectsOversizedExport(t *testing.T) {
	old := maxExportBytes
	maxExportBytes = int64(len(sheetCSV)) - 10
	t.Cleanup(func() { maxExportBytes = old })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sheetCSV))
	}))
	defer srv.Close()

	ing := newTestIngestor(srv.URL, "", nil)
	if rows := ing.Fetch(context.Background()); len(rows) != 0 {
		t.Fatalf("expected truncated export to yield no rows, got %d", len(rows))
	}
	if !strings.Contains(ing.Diagnostics().LastError, "too large") {
		t.Errorf("expected size error recorded, got %q", ing.Diagnostics().LastError)
	}

	// A body of exactly the limit is still accepted.
	maxExportBytes = int64(len(sheetCSV))
	if rows := ing.Fetch(context.Background()); len(rows) != 2 {
		t.Errorf("expected 2 rows at the limit, got %d", len(rows))
	}
}

func TestIngestor_HTMLTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(pubHTML))
	}))
	defer srv.Close()

	rows := newTestIngestor(srv.URL, "", nil).Fetch(context.Background())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows from HTML table, got %d", len(rows))
	}
}

func TestIngestor_ArchivesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sheetCSV))
	}))
	defer srv.Close()

	dir := t.TempDir()
	ing := newTestIngestor(srv.URL, "", &LocalArchiver{Dir: dir})
	ing.now = func() time.Time { return time.Date(2025, 9, 22, 7, 30, 0, 0, time.UTC) }
	ing.Fetch(context.Background())

	data, err := os.ReadFile(filepath.Join(dir, "google_sheets_20250922T073000Z.csv"))
	if err != nil {
		t.Fatalf("expected snapshot file: %v", err)
	}
	if string(data) != sheetCSV {
		t.Errorf("snapshot content mismatch: %q", data)
	}
}

func TestNewArchiver_Modes(t *testing.T) {
	a, err := NewArchiver(context.Background(), config.ArchiveConfig{Mode: "none"})
	if err != nil || a != nil {
		t.Errorf("expected nil archiver for none, got %v %v", a, err)
	}
	a, err = NewArchiver(context.Background(), config.ArchiveConfig{Mode: "local", LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := a.(*LocalArchiver); !ok {
		t.Errorf("expected *LocalArchiver, got %T", a)
	}
	if _, err := NewArchiver(context.Background(), config.ArchiveConfig{Mode: "ftp"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}
