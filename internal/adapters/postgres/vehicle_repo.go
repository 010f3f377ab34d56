package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/otzarri/fleetplan/internal/core/domain"
)

// VehiclePositionRepo implements ports.VehiclePositionRepository.
type VehiclePositionRepo struct {
	db *DB
}

func NewVehiclePositionRepo(db *DB) *VehiclePositionRepo {
	return &VehiclePositionRepo{db: db}
}

func (r *VehiclePositionRepo) Insert(ctx context.Context, vp *domain.VehiclePosition) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO vehicle_positions (time, vehicle_id, driver_id, location, bearing, speed, ignition, odometer, metadata)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8, $9, $10)
	`, vp.Time, vp.VehicleID, nilIfEmpty(vp.DriverID),
		vp.Location.Lon, vp.Location.Lat, vp.Bearing, vp.Speed,
		vp.Ignition, vp.Odometer, vp.Metadata)
	return err
}

func (r *VehiclePositionRepo) InsertBatch(ctx context.Context, vps []domain.VehiclePosition) error {
	batch := &pgx.Batch{}
	for _, vp := range vps {
		batch.Queue(`
			INSERT INTO vehicle_positions (time, vehicle_id, driver_id, location, bearing, speed, ignition, odometer, metadata)
			VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8, $9, $10)
		`, vp.Time, vp.VehicleID, nilIfEmpty(vp.DriverID),
			vp.Location.Lon, vp.Location.Lat, vp.Bearing, vp.Speed,
			vp.Ignition, vp.Odometer, vp.Metadata)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range vps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// Latest returns the most recent position per vehicle.
func (r *VehiclePositionRepo) Latest(ctx context.Context, limit int) ([]domain.VehiclePosition, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (vehicle_id)
			time, vehicle_id, driver_id,
			ST_Y(location::geometry) as lat,
			ST_X(location::geometry) as lon,
			bearing, speed, ignition, odometer
		FROM vehicle_positions
		ORDER BY vehicle_id, time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

// History returns a vehicle's positions since a given time, newest first.
func (r *VehiclePositionRepo) History(ctx context.Context, vehicleID string, since time.Time, limit int) ([]domain.VehiclePosition, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT time, vehicle_id, driver_id,
			ST_Y(location::geometry) as lat,
			ST_X(location::geometry) as lon,
			bearing, speed, ignition, odometer
		FROM vehicle_positions
		WHERE vehicle_id = $1 AND time >= $2
		ORDER BY time DESC
		LIMIT $3
	`, vehicleID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

func scanPositions(rows pgx.Rows) ([]domain.VehiclePosition, error) {
	var positions []domain.VehiclePosition
	for rows.Next() {
		var vp domain.VehiclePosition
		var driverID sql.NullString
		if err := rows.Scan(
			&vp.Time, &vp.VehicleID, &driverID,
			&vp.Location.Lat, &vp.Location.Lon,
			&vp.Bearing, &vp.Speed, &vp.Ignition, &vp.Odometer,
		); err != nil {
			return nil, err
		}
		vp.DriverID = driverID.String
		positions = append(positions, vp)
	}
	return positions, rows.Err()
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
