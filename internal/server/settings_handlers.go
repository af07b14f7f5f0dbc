package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oakmont/xerosync/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type settingsPayload struct {
	ClientID            *string            `json:"client_id,omitempty"`
	DefaultSalesAccount *string            `json:"default_sales_account,omitempty"`
	PaymentMappings     *map[string]string `json:"payment_mappings,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	clientID, err := s.settings.Get(db.KeyClientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "settings unavailable")
		return
	}
	salesAccount, _ := s.settings.Get(db.KeyDefaultSalesAccount)

	writeJSON(w, http.StatusOK, map[string]any{
		"client_id":             clientID,
		"default_sales_account": salesAccount,
		"payment_mappings":      s.settings.PaymentMappings(),
	})
}

// handlePutSettings updates only the fields present in the payload.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	if payload.ClientID != nil {
		if err := s.settings.Put(db.KeyClientID, *payload.ClientID); err != nil {
			writeError(w, http.StatusInternalServerError, "could not save client id")
			return
		}
	}
	if payload.DefaultSalesAccount != nil {
		if err := s.settings.Put(db.KeyDefaultSalesAccount, *payload.DefaultSalesAccount); err != nil {
			writeError(w, http.StatusInternalServerError, "could not save sales account")
			return
		}
	}
	if payload.PaymentMappings != nil {
		if err := s.settings.SetPaymentMappings(*payload.PaymentMappings); err != nil {
			writeError(w, http.StatusInternalServerError, "could not save payment mappings")
			return
		}
	}

	s.log.Info("settings updated")
	s.handleGetSettings(w, r)
}

// The account listings feed the mapping dropdowns: empty maps when
// disconnected, never an error.
func (s *Server) handleBankAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.client.BankAccounts(r.Context()))
}

func (s *Server) handleSalesAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.client.SalesAccounts(r.Context()))
}

// handleGetOrderSync exposes the sync record and its notes for one
// order.
func (s *Server) handleGetOrderSync(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	record, notes, err := s.orderSyncs.Get(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "no sync record for order")
		return
	}
	if err != nil {
		s.log.Error("load order sync", zap.Int64("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load sync record")
		return
	}

	noteTexts := make([]string, 0, len(notes))
	for _, n := range notes {
		noteTexts = append(noteTexts, n.Note)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":   record.OrderID,
		"synced":     record.Synced,
		"invoice_id": record.InvoiceID,
		"synced_at":  record.SyncedAt,
		"notes":      noteTexts,
	})
}
