package database

import (
	"database/sql"
	"fmt"
)

const rideColumns = `id, departure, arrival, departure_date, seats_offered, price, comment, created_at`

// InsertRide stores a ride offer and returns its ID.
func (db *DB) InsertRide(r Ride) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO rides (departure, arrival, departure_date, seats_offered, price, comment)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Departure, r.Arrival, r.DepartureDate, r.SeatsOffered, r.Price, r.Comment,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting ride: %w", err)
	}
	return result.LastInsertId()
}

// GetRide returns a single ride by ID, or nil if it does not exist.
func (db *DB) GetRide(rideID int64) (*Ride, error) {
	row := db.conn.QueryRow("SELECT "+rideColumns+" FROM rides WHERE id = ?", rideID)
	var r Ride
	err := row.Scan(&r.ID, &r.Departure, &r.Arrival, &r.DepartureDate, &r.SeatsOffered, &r.Price, &r.Comment, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetAllRides returns every ride ordered by departure date.
func (db *DB) GetAllRides() ([]Ride, error) {
	return db.queryRides("SELECT " + rideColumns + " FROM rides ORDER BY departure_date, id")
}

// GetRidesFrom returns rides departing on or after date (YYYY-MM-DD).
func (db *DB) GetRidesFrom(date string) ([]Ride, error) {
	return db.queryRides(
		"SELECT "+rideColumns+" FROM rides WHERE departure_date >= ? ORDER BY departure_date, id",
		date,
	)
}

// DeleteRide removes a ride.
func (db *DB) DeleteRide(rideID int64) error {
	_, err := db.conn.Exec("DELETE FROM rides WHERE id = ?", rideID)
	return err
}

// GetStats returns ride counts relative to today (YYYY-MM-DD).
func (db *DB) GetStats(today string) (*Stats, error) {
	s := &Stats{}
	err := db.conn.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN departure_date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(seats_offered), 0)
		FROM rides`, today,
	).Scan(&s.TotalRides, &s.UpcomingRides, &s.SeatsOffered)
	if err != nil {
		return nil, fmt.Errorf("counting rides: %w", err)
	}
	return s, nil
}

func (db *DB) queryRides(query string, args ...any) ([]Ride, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		var r Ride
		if err := rows.Scan(&r.ID, &r.Departure, &r.Arrival, &r.DepartureDate, &r.SeatsOffered, &r.Price, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}
