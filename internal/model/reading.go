package model

import "time"

// SensorReading is one polled sample from the clothesline controller.
// Rows are append-only; a reading is never updated after insert.
type SensorReading struct {
	ID         int64     `gorm:"autoIncrement;primaryKey" json:"id"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
	Light      int       `gorm:"column:ldr;not null" json:"ldr"`
	Rain       int       `gorm:"not null" json:"rain"`
	DoorStatus string    `gorm:"size:32;not null" json:"status"`
	Rotation   int       `gorm:"not null" json:"rotation"`
}

// TableName keeps the table name the device tooling expects.
func (SensorReading) TableName() string {
	return "sensor_data"
}
