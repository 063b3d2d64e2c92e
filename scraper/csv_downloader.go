// backend/scraper/csv_downloader.go
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gewnthar/dentalportal/backend/config"
)

// Exports larger than this are rejected rather than parsed partially.
var maxExportBytes int64 = 20 << 20

// ErrExportTooLarge is returned when the sheet body exceeds maxExportBytes.
var ErrExportTooLarge = errors.New("sheet export too large")

// StatusError is returned when the sheet answers with a non-200 status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to download %s: received status code %d", e.URL, e.Code)
}

// Diagnostics is what the last fetch saw. Nothing but the status
// endpoints read it.
type Diagnostics struct {
	Headers   []string   `json:"headers"`
	RowCount  int        `json:"row_count"`
	FetchURL  string     `json:"fetch_url,omitempty"`
	LastFetch *time.Time `json:"last_fetch,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Ingestor downloads the appointment sheet and splits it into raw rows.
type Ingestor struct {
	client      *http.Client
	primaryURL  string
	fallbackURL string
	source      string
	archiver    Archiver
	log         zerolog.Logger
	now         func() time.Time

	mu   sync.RWMutex
	diag Diagnostics
}

// NewIngestor builds an ingestor for the configured sheet. archiver may be nil.
func NewIngestor(cfg config.SheetConfig, archiver Archiver, logger zerolog.Logger) *Ingestor {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Ingestor{
		client:      &http.Client{Timeout: timeout},
		primaryURL:  cfg.CSVURL,
		fallbackURL: cfg.FallbackCSVURL,
		source:      cfg.SourceTag,
		archiver:    archiver,
		log:         logger,
		now:         time.Now,
	}
}

// Fetch downloads and parses the sheet. It never fails: on any error it
// returns no rows and keeps the reason in Diagnostics.
func (i *Ingestor) Fetch(ctx context.Context) []RawRow {
	fetchedAt := i.now()

	body, contentType, usedURL, err := i.download(ctx)
	if err != nil {
		i.log.Error().Err(err).Msg("sheet download failed")
		i.recordFailure(fetchedAt, usedURL, err)
		return nil
	}

	isHTML := looksLikeHTML(contentType, body)
	i.archive(ctx, fetchedAt, body, isHTML)

	var headers []string
	var rows []RawRow
	if isHTML {
		headers, rows, err = ParseHTMLTable(bytes.NewReader(body))
	} else {
		headers, rows, err = ParseCSV(bytes.NewReader(body))
	}
	if err != nil && len(rows) == 0 {
		i.log.Error().Err(err).Str("url", usedURL).Msg("sheet parse failed")
		i.recordFailure(fetchedAt, usedURL, err)
		return nil
	}
	if err != nil {
		i.log.Warn().Err(err).Int("rows", len(rows)).Msg("sheet parsed partially")
	}

	i.mu.Lock()
	i.diag = Diagnostics{
		Headers:   headers,
		RowCount:  len(rows),
		FetchURL:  usedURL,
		LastFetch: &fetchedAt,
	}
	if err != nil {
		i.diag.LastError = err.Error()
	}
	i.mu.Unlock()

	i.log.Info().Str("url", usedURL).Int("headers", len(headers)).Int("rows", len(rows)).Msg("sheet fetched")
	return rows
}

// Diagnostics returns a copy of the last fetch's metadata.
func (i *Ingestor) Diagnostics() Diagnostics {
	i.mu.RLock()
	defer i.mu.RUnlock()
	d := i.diag
	d.Headers = append([]string(nil), i.diag.Headers...)
	return d
}

// download tries the primary URL and, on a non-200 answer, the fallback.
func (i *Ingestor) download(ctx context.Context) ([]byte, string, string, error) {
	body, ct, err := i.get(ctx, i.primaryURL)
	if err == nil {
		return body, ct, i.primaryURL, nil
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || i.fallbackURL == "" || i.fallbackURL == i.primaryURL {
		return nil, "", i.primaryURL, err
	}

	i.log.Warn().Int("status", statusErr.Code).Str("fallback", i.fallbackURL).Msg("primary sheet URL failed, trying fallback")
	body, ct, fbErr := i.get(ctx, i.fallbackURL)
	if fbErr != nil {
		return nil, "", i.fallbackURL, fmt.Errorf("%v; fallback: %w", err, fbErr)
	}
	return body, ct, i.fallbackURL, nil
}

func (i *Ingestor) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/csv, text/html;q=0.5")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to make GET request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if int64(len(body)) > maxExportBytes {
		return nil, "", fmt.Errorf("%w: %s is over %d bytes", ErrExportTooLarge, url, maxExportBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (i *Ingestor) archive(ctx context.Context, at time.Time, body []byte, isHTML bool) {
	if i.archiver == nil {
		return
	}
	ext := "csv"
	if isHTML {
		ext = "html"
	}
	name := SnapshotName(i.source, at, ext)
	if err := i.archiver.Archive(ctx, name, body); err != nil {
		i.log.Warn().Err(err).Str("snapshot", name).Msg("failed to archive sheet snapshot")
	}
}

func (i *Ingestor) recordFailure(at time.Time, url string, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	// Headers and row count keep describing the last good fetch.
	i.diag.FetchURL = url
	i.diag.LastFetch = &at
	i.diag.LastError = err.Error()
}
