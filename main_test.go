package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gewnthar/dentalportal/backend/models"
)

const sampleSheet = "Fecha,Hora,Nombre,Apellidos,Estado\n" +
	"22/09/2025,9:00,Luis,Pérez,Confirmada\n" +
	"22/09/2025,8:00,Ana,García,Pendiente\n"

func writeConfig(t *testing.T, sheetURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
sheet:
  csv_url: %s
  fallback_csv_url: %s
  fetch_timeout: 5s
logging:
  level: error
clinic:
  timezone: UTC
`, filepath.Join(dir, "portal.db"), sheetURL, sheetURL)
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSyncCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, sampleSheet)
	}))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	out, err := runCmd(t, "--config", cfgPath, "sync")
	if err != nil {
		t.Fatalf("sync command failed: %v", err)
	}
	var res models.SyncResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("expected JSON result, got %q", out)
	}
	if !res.Success || res.Synced != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSyncCommand_FailureExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	out, err := runCmd(t, "--config", cfgPath, "sync")
	if err == nil {
		t.Fatal("expected error for failed sync")
	}
	if !strings.Contains(out, "No data found") {
		t.Errorf("expected failure payload printed, got %q", out)
	}
}

func TestMigrateCommand(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1/sheet.csv")
	if _, err := runCmd(t, "--config", cfgPath, "migrate"); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if _, err := runCmd(t, "--config", cfgPath, "migrate"); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := runCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "migrate"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
