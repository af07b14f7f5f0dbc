package models

import "time"

// OrderSync is the durable per-order record owned by the sync trigger.
// A row existing at all means a sync attempt has been claimed; Synced
// flips to true only after the invoice was created remotely.
type OrderSync struct {
	OrderID   int64 `gorm:"primaryKey"`
	Synced    bool  `gorm:"default:false"`
	InvoiceID string
	SyncedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderNote is a human-readable note appended to an order's sync
// record at each terminal or partial outcome. Observability only,
// never machine-parsed.
type OrderNote struct {
	ID        uint  `gorm:"primaryKey"`
	OrderID   int64 `gorm:"index"`
	Note      string
	CreatedAt time.Time
}
