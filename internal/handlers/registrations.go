package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/campus-events/apiserver/internal/services"
	"github.com/campus-events/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const msgPaymentProcessed = "Payment processed successfully"

// RegistrationRouter registers the admin registration listing.
func RegistrationRouter(r chi.Router, registrationService *services.RegistrationService, requireAdmin func(http.Handler) http.Handler) {
	r.With(requireAdmin).Get("/", func(w http.ResponseWriter, r *http.Request) {
		regs, err := registrationService.List(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, regs)
	})
}

// PaymentHandler provides the simulated payment endpoint.
type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PaymentRouter registers payment routes on the given router.
func PaymentRouter(r chi.Router, paymentService *services.PaymentService, limit func(http.Handler) http.Handler) {
	handler := NewPaymentHandler(paymentService)
	r.With(limit).Post("/process", handler.Process)
}

func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	result, err := h.paymentService.Process(r.Context(), types.PaymentRequest{
		PaymentID:  req.PaymentID,
		Amount:     req.amount(),
		CardNumber: req.cardNumber(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PaymentResponse{
		Status:        statusSuccess,
		Message:       msgPaymentProcessed,
		TransactionID: result.TransactionID,
		Amount:        result.Amount,
	})
}

// PaymentRequest is the payment body. amount and card_number are accepted
// as numbers or strings.
type PaymentRequest struct {
	PaymentID  string          `json:"payment_id"`
	Amount     json.RawMessage `json:"amount"`
	CardNumber json.RawMessage `json:"card_number"`
}

func (req PaymentRequest) amount() float64 {
	raw := strings.Trim(strings.TrimSpace(string(req.Amount)), `"`)
	if raw == "" || raw == "null" {
		return 0
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return amount
}

func (req PaymentRequest) cardNumber() string {
	raw := strings.TrimSpace(string(req.CardNumber))
	if raw == "" || raw == "null" {
		return ""
	}
	var card string
	if err := json.Unmarshal(req.CardNumber, &card); err == nil {
		return card
	}
	return raw
}

type PaymentResponse struct {
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
}
