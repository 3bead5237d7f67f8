package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/areti-alliance/crm-gateway/internal/domain"
	"github.com/areti-alliance/crm-gateway/internal/events"
	"github.com/areti-alliance/crm-gateway/internal/repository"
	apperrors "github.com/areti-alliance/crm-gateway/pkg/util"
)

// RosterRow is one applicant row from the external roster sheet.
type RosterRow struct {
	Name         string
	Email        string
	Phone        string
	City         string
	State        string
	VehicleTypes string
	Notes        string
	Timestamp    time.Time
}

// RosterSource fetches the current roster rows.
type RosterSource interface {
	Fetch(ctx context.Context) ([]RosterRow, error)
}

// SyncResult summarizes a roster import run.
type SyncResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// RosterService imports driver applicants from the external roster sheet into
// the driver store. It only runs as an authenticated admin action.
type RosterService struct {
	source     RosterSource
	drivers    repository.DriverRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewRosterService builds the service.
func NewRosterService(source RosterSource, drivers repository.DriverRepository, dispatcher events.Dispatcher, logger *zap.Logger) *RosterService {
	return &RosterService{source: source, drivers: drivers, dispatcher: dispatcher, logger: logger}
}

// Sync fetches the sheet and upserts drivers keyed by lower-cased email.
// Rows without an email are skipped; newly imported drivers start pending.
func (s *RosterService) Sync(ctx context.Context, actor string) (SyncResult, error) {
	if s.source == nil {
		return SyncResult{}, apperrors.NewDomainError("SYNC_UNCONFIGURED", "roster source not configured", http.StatusServiceUnavailable, nil)
	}

	rows, err := s.source.Fetch(ctx)
	if err != nil {
		return SyncResult{}, apperrors.NewInternalError(err)
	}

	var result SyncResult
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		email := strings.ToLower(strings.TrimSpace(row.Email))
		if email == "" {
			result.Skipped++
			continue
		}
		if _, dup := seen[email]; dup {
			result.Skipped++
			continue
		}
		seen[email] = struct{}{}

		incoming := driverFromRow(row, email)

		existing, err := s.drivers.GetByEmail(ctx, email)
		switch {
		case err == nil:
			// Only overwrite when the sheet row is newer than our record.
			if !row.Timestamp.IsZero() && !row.Timestamp.After(existing.UpdatedAt) {
				result.Skipped++
				continue
			}
			incoming.ID = existing.ID
			incoming.Status = existing.Status
			if err := s.drivers.Update(ctx, &incoming); err != nil {
				return result, apperrors.MapError(err)
			}
			result.Updated++
		case errors.Is(err, pgx.ErrNoRows):
			if err := s.drivers.Create(ctx, &incoming); err != nil {
				return result, apperrors.MapError(err)
			}
			result.Imported++
		default:
			return result, apperrors.MapError(err)
		}
	}

	s.logger.Info("roster sync complete",
		zap.Int("imported", result.Imported),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventRosterSynced,
			Subject:   actor,
			Timestamp: time.Now(),
			Payload:   events.RosterSyncedPayload(result),
		})
	}
	return result, nil
}

func driverFromRow(row RosterRow, email string) domain.Driver {
	vehicleTypes := splitVehicleTypes(row.VehicleTypes)
	vehicleType := "car"
	if len(vehicleTypes) > 0 {
		vehicleType = vehicleTypes[0]
	}

	notes := row.Notes
	if notes == "" {
		notes = "Imported from roster sheet"
	}

	applicationDate := row.Timestamp
	if applicationDate.IsZero() {
		applicationDate = time.Now()
	}

	return domain.Driver{
		Name:            row.Name,
		Email:           email,
		Phone:           FormatPhone(row.Phone),
		City:            row.City,
		State:           row.State,
		VehicleType:     vehicleType,
		VehicleTypes:    vehicleTypes,
		Status:          domain.DriverStatusPending,
		Notes:           notes,
		ApplicationDate: applicationDate,
	}
}

func splitVehicleTypes(raw string) []string {
	parts := strings.Split(raw, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			types = append(types, trimmed)
		}
	}
	return types
}

// FormatPhone normalizes 10-digit US numbers as XXX-XXX-XXXX and leaves
// anything else untouched.
func FormatPhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 10 {
		return phone
	}
	return d[0:3] + "-" + d[3:6] + "-" + d[6:]
}
