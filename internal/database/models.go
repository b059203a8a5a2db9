package database

// Ride is a ride offer submitted through the ride form.
type Ride struct {
	ID            int64
	Departure     string
	Arrival       string
	DepartureDate string // as submitted, YYYY-MM-DD
	SeatsOffered  int
	Price         float64
	Comment       *string
	CreatedAt     *string
}

// Stats holds summary counts.
type Stats struct {
	TotalRides    int
	UpcomingRides int
	SeatsOffered  int
}
