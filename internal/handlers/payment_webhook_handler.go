package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/payment"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

const maxWebhookBody = 1 << 20

type PaymentWebhookHandler struct {
	reconciler *payment.Reconciler
	logger     *logging.Logger
}

func NewPaymentWebhookHandler(reconciler *payment.Reconciler, logger *logging.Logger) *PaymentWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PaymentWebhookHandler{reconciler: reconciler, logger: logger}
}

// Handle acknowledges with 200 whenever retrying would not change the
// outcome. Store failures answer 5xx so the provider redelivers.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		httperr.BadRequest(c, "invalid_payload", "Could not read webhook body.")
		return
	}

	res, err := h.reconciler.HandleWebhook(c.Request.Context(), payload, c.Request.Header)
	switch {
	case errors.Is(err, payment.ErrInvalidWebhook):
		httperr.BadRequest(c, "invalid_webhook", "Webhook could not be verified.")
		return
	case httperr.IsBusiness(err, httperr.CodePaymentNotCompleted):
		c.JSON(http.StatusOK, gin.H{"received": true, "status": "pending"})
		return
	case err != nil:
		h.logger.Error("webhook reconciliation failed", "error", err)
		httperr.FromError(c, err)
		return
	case res == nil:
		c.JSON(http.StatusOK, gin.H{"received": true, "status": "ignored"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":        true,
		"status":          "reconciled",
		"appointment_id":  res.Appointment.ID,
		"already_existed": res.AlreadyExisted,
	})
}
