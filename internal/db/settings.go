package db

import (
	"encoding/json"
	"errors"

	"github.com/oakmont/xerosync/internal/db/models"
	"gorm.io/gorm"
)

// Setting keys. Names mirror the option keys of the store integration
// so an operator can recognize them in the database.
const (
	KeyClientID            = "xero_client_id"
	KeyPKCEVerifier        = "xero_pkce_verifier"
	KeyTokenSet            = "xero_oauth_tokens"
	KeyTenantID            = "xero_tenant_id"
	KeyDefaultSalesAccount = "xero_default_sales_account"
	KeyPaymentMappings     = "xero_payment_mappings"
	KeyOAuthState          = "xero_oauth_state"
)

// DefaultSalesAccountCode seeds new Xero items when no account is
// configured.
const DefaultSalesAccountCode = "200"

// Settings wraps the generic key-value rows.
type Settings struct {
	db *gorm.DB
}

func NewSettings(database *gorm.DB) *Settings {
	return &Settings{db: database}
}

// Get returns the stored value, or "" when the key does not exist.
func (s *Settings) Get(key string) (string, error) {
	var row models.Setting
	err := s.db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (s *Settings) Put(key, value string) error {
	row := models.Setting{Key: key, Value: value}
	return s.db.Save(&row).Error
}

func (s *Settings) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&models.Setting{}).Error
}

// DefaultSalesAccount returns the configured sales account code,
// falling back to the stock code 200.
func (s *Settings) DefaultSalesAccount() string {
	code, err := s.Get(KeyDefaultSalesAccount)
	if err != nil || code == "" {
		return DefaultSalesAccountCode
	}
	return code
}

// PaymentMappings returns the payment-method to bank-account-code
// table. Missing or unparseable settings yield an empty table.
func (s *Settings) PaymentMappings() map[string]string {
	raw, err := s.Get(KeyPaymentMappings)
	if err != nil || raw == "" {
		return map[string]string{}
	}
	var mappings map[string]string
	if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
		return map[string]string{}
	}
	return mappings
}

func (s *Settings) SetPaymentMappings(mappings map[string]string) error {
	raw, err := json.Marshal(mappings)
	if err != nil {
		return err
	}
	return s.Put(KeyPaymentMappings, string(raw))
}
