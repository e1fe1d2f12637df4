package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/service"
	"github.com/nsvirk/financeapi/pkg/utils/response"
)

// WebhookSecretHeader carries the optional shared secret of the core-banking sender
const WebhookSecretHeader = "X-Webhook-Secret"

// IngestResponse is the body returned for every accepted event, fresh or redelivered
type IngestResponse struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// WebhookHandler receives transaction events from the core-banking system
type WebhookHandler struct {
	service *service.TransactionService
	secret  string
}

// NewWebhookHandler creates a new webhook handler, an empty secret disables the check
func NewWebhookHandler(service *service.TransactionService, secret string) *WebhookHandler {
	return &WebhookHandler{service: service, secret: secret}
}

// NewWithdrawal ingests a WITHDRAWAL event
func (h *WebhookHandler) NewWithdrawal(c echo.Context) error {
	return h.ingest(c, models.Withdrawal)
}

// NewDeposit ingests a DEPOSIT event
func (h *WebhookHandler) NewDeposit(c echo.Context) error {
	return h.ingest(c, models.Deposit)
}

func (h *WebhookHandler) ingest(c echo.Context, kind models.DbCr) error {
	if h.secret != "" {
		got := c.Request().Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			return response.ErrorResponse(c, http.StatusUnauthorized, "AuthenticationException", "Invalid webhook secret")
		}
	}

	var event models.TransactionEvent
	if err := bindBody(c, &event); err != nil {
		return response.FromError(c, err)
	}

	result, err := h.service.Ingest(c.Request().Context(), event, kind)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, IngestResponse{
		TransactionID: result.TransactionID,
		Message:       "transaction received",
	})
}
