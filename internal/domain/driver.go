package domain

import "time"

// DriverStatus tracks a driver's onboarding state.
type DriverStatus string

const (
	DriverStatusPending  DriverStatus = "pending"
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
)

// Driver models a delivery driver in the roster. Rows are written by the
// roster sync job and by admin edits; email is the dedupe key.
type Driver struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	City            string
	State           string
	VehicleType     string
	VehicleTypes    []string
	Status          DriverStatus
	Notes           string
	ApplicationDate time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
