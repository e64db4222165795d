package domain

import "time"

// Subject is the domain model for a course offered in the catalog.
type Subject struct {
	ID          string
	Code        string
	Name        string
	Description string
	Credits     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
