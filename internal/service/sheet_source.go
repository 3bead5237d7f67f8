package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/areti-alliance/crm-gateway/internal/config"
)

// SheetCSVSource reads roster rows from a published-spreadsheet CSV export.
// The first row is the header; column names are matched case-insensitively.
type SheetCSVSource struct {
	url    string
	client *http.Client
}

// NewSheetCSVSource builds the source, or nil when no URL is configured.
func NewSheetCSVSource(cfg config.SyncConfig) *SheetCSVSource {
	if cfg.SheetCSVURL == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SheetCSVSource{
		url:    cfg.SheetCSVURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and parses the sheet.
func (s *SheetCSVSource) Fetch(ctx context.Context) ([]RosterRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch roster sheet: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch roster sheet: status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse roster sheet: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	rows := make([]RosterRow, 0, len(records)-1)
	for _, record := range records[1:] {
		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		row := RosterRow{
			Name:         field("name"),
			Email:        field("email"),
			Phone:        field("phone"),
			City:         field("city"),
			State:        field("state"),
			VehicleTypes: field("vehicletypes"),
			Notes:        field("notes"),
		}
		if ts := field("timestamp"); ts != "" {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				row.Timestamp = parsed
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
