package model

// Setting is a durable key/value pair for operator configuration and
// model status that must survive restarts.
type Setting struct {
	Key   string `gorm:"primaryKey;size:128"`
	Value string `gorm:"not null"`
}
