package postgres

import (
	"context"
	"database/sql"
	"errors"

	fleet "fleet-maintenance/internal/fleet/domain"
)

// VehicleRepository is a Postgres repository for vehicles.
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository constructs a repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// GetByID fetches a vehicle by id. Returns nil when not found.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*fleet.Vehicle, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("vehicle repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, make, model, license_plate, odometer, created_at, updated_at
FROM vehicles
WHERE id = $1`, id)
	return scanVehicle(row)
}

// List returns all vehicles.
func (r *VehicleRepository) List(ctx context.Context) ([]fleet.Vehicle, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("vehicle repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, make, model, license_plate, odometer, created_at, updated_at
FROM vehicles
ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListIDs returns all vehicle ids.
func (r *VehicleRepository) ListIDs(ctx context.Context) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("vehicle repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM vehicles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type vehicleScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row vehicleScanner) (*fleet.Vehicle, error) {
	var vehicle fleet.Vehicle
	if err := row.Scan(
		&vehicle.ID,
		&vehicle.Make,
		&vehicle.Model,
		&vehicle.LicensePlate,
		&vehicle.Odometer,
		&vehicle.CreatedAt,
		&vehicle.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	vehicle.CreatedAt = vehicle.CreatedAt.UTC()
	vehicle.UpdatedAt = vehicle.UpdatedAt.UTC()
	return &vehicle, nil
}
