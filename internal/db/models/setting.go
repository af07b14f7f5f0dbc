package models

import "time"

// Setting is a generic persisted key-value row. Credential material is
// stored sealed by the caller; this layer never sees plaintext tokens.
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
