package db

import (
	"errors"
	"time"

	"github.com/oakmont/xerosync/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderSyncs owns the per-order sync flag and its notes.
type OrderSyncs struct {
	db *gorm.DB
}

func NewOrderSyncs(database *gorm.DB) *OrderSyncs {
	return &OrderSyncs{db: database}
}

// Claim atomically reserves an order for one sync attempt. It returns
// false when a record already exists, whether from a finished sync or
// a concurrent attempt, so the caller must not proceed.
func (o *OrderSyncs) Claim(orderID int64) (bool, error) {
	res := o.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.OrderSync{OrderID: orderID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release drops an unsynced claim so a later manual re-trigger can run
// again. Synced records are never released.
func (o *OrderSyncs) Release(orderID int64) error {
	return o.db.Where("order_id = ? AND synced = ?", orderID, false).
		Delete(&models.OrderSync{}).Error
}

// MarkSynced records the successful sync and its remote invoice id.
func (o *OrderSyncs) MarkSynced(orderID int64, invoiceID string) error {
	now := time.Now()
	return o.db.Model(&models.OrderSync{}).Where("order_id = ?", orderID).
		Updates(map[string]any{
			"synced":     true,
			"invoice_id": invoiceID,
			"synced_at":  &now,
		}).Error
}

// IsSynced reports whether the order completed a sync.
func (o *OrderSyncs) IsSynced(orderID int64) (bool, error) {
	var record models.OrderSync
	err := o.db.Where("order_id = ?", orderID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.Synced, nil
}

// Get returns the sync record and its notes, or gorm.ErrRecordNotFound.
func (o *OrderSyncs) Get(orderID int64) (models.OrderSync, []models.OrderNote, error) {
	var record models.OrderSync
	if err := o.db.Where("order_id = ?", orderID).First(&record).Error; err != nil {
		return models.OrderSync{}, nil, err
	}
	var notes []models.OrderNote
	if err := o.db.Where("order_id = ?", orderID).Order("id").Find(&notes).Error; err != nil {
		return record, nil, err
	}
	return record, notes, nil
}

// AddNote appends a human-readable note to the order's record.
func (o *OrderSyncs) AddNote(orderID int64, note string) error {
	return o.db.Create(&models.OrderNote{OrderID: orderID, Note: note}).Error
}
