package models

import "time"

// Delivery is one processed webhook delivery, recorded for the audit
// trail. Rows are written after the event is handled and are never
// read back for control decisions.
type Delivery struct {
	ID           uint `gorm:"primaryKey"`
	Event        string
	Action       string
	Status       int
	BoardID      string
	CardsCreated int
	Error        string
	CreatedAt    time.Time
}
