package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/areti-alliance/crm-gateway/internal/domain"
)

// DriverRepository defines persistence access for the delivery driver roster.
type DriverRepository interface {
	Create(ctx context.Context, driver *domain.Driver) error
	Update(ctx context.Context, driver *domain.Driver) error
	GetByEmail(ctx context.Context, email string) (*domain.Driver, error)
	List(ctx context.Context, limit, offset int) ([]domain.Driver, error)
}

type driverRepository struct {
	pool *pgxpool.Pool
}

// NewDriverRepository returns a Postgres-backed implementation.
func NewDriverRepository(pool *pgxpool.Pool) DriverRepository {
	return &driverRepository{pool: pool}
}

func (r *driverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	const query = `
        INSERT INTO drivers (name, email, phone, city, state, vehicle_type, vehicle_types, status, notes, application_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		driver.Name,
		strings.ToLower(driver.Email),
		driver.Phone,
		driver.City,
		driver.State,
		driver.VehicleType,
		driver.VehicleTypes,
		driver.Status,
		driver.Notes,
		driver.ApplicationDate,
	).Scan(&driver.ID, &driver.CreatedAt, &driver.UpdatedAt)
}

func (r *driverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	const query = `
        UPDATE drivers SET name=$1, phone=$2, city=$3, state=$4, vehicle_type=$5, vehicle_types=$6, status=$7, notes=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		driver.Name,
		driver.Phone,
		driver.City,
		driver.State,
		driver.VehicleType,
		driver.VehicleTypes,
		driver.Status,
		driver.Notes,
		driver.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *driverRepository) GetByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	const query = `
        SELECT id, name, email, phone, city, state, vehicle_type, vehicle_types, status, notes, application_date, created_at, updated_at
        FROM drivers WHERE email=$1`

	var driver domain.Driver
	if err := r.pool.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&driver.ID,
		&driver.Name,
		&driver.Email,
		&driver.Phone,
		&driver.City,
		&driver.State,
		&driver.VehicleType,
		&driver.VehicleTypes,
		&driver.Status,
		&driver.Notes,
		&driver.ApplicationDate,
		&driver.CreatedAt,
		&driver.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepository) List(ctx context.Context, limit, offset int) ([]domain.Driver, error) {
	const query = `
        SELECT id, name, email, phone, city, state, vehicle_type, vehicle_types, status, notes, application_date, created_at, updated_at
        FROM drivers ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drivers := make([]domain.Driver, 0)
	for rows.Next() {
		var driver domain.Driver
		if err := rows.Scan(
			&driver.ID,
			&driver.Name,
			&driver.Email,
			&driver.Phone,
			&driver.City,
			&driver.State,
			&driver.VehicleType,
			&driver.VehicleTypes,
			&driver.Status,
			&driver.Notes,
			&driver.ApplicationDate,
			&driver.CreatedAt,
			&driver.UpdatedAt,
		); err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}
