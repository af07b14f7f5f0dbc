package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/oakmont/xerosync/internal/order"
	"go.uber.org/zap"
)

// signatureHeader carries the store's base64 HMAC-SHA256 of the raw
// body.
const signatureHeader = "X-WC-Webhook-Signature"

func validSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// handleOrderCompleted is the sync trigger. It claims the per-order
// sync mark before invoking the engine, so concurrent or repeated
// deliveries of the same order run the workflow at most once.
func (s *Server) handleOrderCompleted(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if s.cfg.WebhookSecret != "" {
		if !validSignature(s.cfg.WebhookSecret, body, r.Header.Get(signatureHeader)) {
			writeError(w, http.StatusUnauthorized, "invalid webhook signature")
			return
		}
	}

	o, err := order.ParseWebhook(body)
	if err != nil {
		s.log.Warn("unparseable order webhook", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid order payload")
		return
	}

	log := s.log.With(zap.Int64("order_id", o.ID))

	// Zero-total and unpaid orders are skipped outright; a completed
	// order the store does not consider paid points at a store-side
	// problem, noted for the operator.
	if !o.Total.IsPositive() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "reason": "order total is not positive"})
		return
	}
	if !o.Paid {
		s.orderSyncs.AddNote(o.ID, "Xero sync skipped: order status is completed but the store does not consider it paid.")
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "reason": "order not paid"})
		return
	}

	claimed, err := s.orderSyncs.Claim(o.ID)
	if err != nil {
		log.Error("claim order sync", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not claim order")
		return
	}
	if !claimed {
		log.Info("order already claimed or synced, skipping")
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "reason": "already processed"})
		return
	}

	s.orderSyncs.AddNote(o.ID, "Attempting to synchronize order with Xero.")

	result := s.engine.Sync(r.Context(), o)
	for _, note := range result.Notes {
		s.orderSyncs.AddNote(o.ID, note)
	}

	if result.Success {
		if err := s.orderSyncs.MarkSynced(o.ID, result.InvoiceID); err != nil {
			log.Error("mark synced", zap.Error(err))
		}
		log.Info("order synced", zap.String("invoice_id", result.InvoiceID))
		writeJSON(w, http.StatusOK, result)
		return
	}

	// Release the claim: a failed sync is re-triggered manually by the
	// operator, never retried automatically.
	if err := s.orderSyncs.Release(o.ID); err != nil {
		log.Error("release claim", zap.Error(err))
	}
	log.Warn("order sync failed", zap.Error(result.Err))
	writeJSON(w, http.StatusOK, result)
}
