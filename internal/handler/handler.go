package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylite/wallet-ledger/internal/ledger"
	"github.com/paylite/wallet-ledger/internal/models"
)

// WalletHandler is the JSON facade over the ledger service. It owns the
// session-token table; everything else is delegated.
type WalletHandler struct {
	ledger *ledger.Ledger

	mu       sync.Mutex
	sessions map[string]*ledger.Session
}

func NewWalletHandler(l *ledger.Ledger) *WalletHandler {
	return &WalletHandler{
		ledger:   l,
		sessions: make(map[string]*ledger.Session),
	}
}

// Routes builds the router. Balance-affecting endpoints sit behind the
// bearer-token session middleware.
func (h *WalletHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/otp/request", h.RequestOTP)
		r.Post("/otp/verify", h.VerifyOTP)
		r.Get("/export", h.Export)

		r.Group(func(r chi.Router) {
			r.Use(h.withSession)
			r.Post("/logout", h.Logout)
			r.Get("/balance", h.Balance)
			r.Post("/topup", h.TopUp)
			r.Post("/transfer", h.Transfer)
			r.Get("/transactions", h.Statement)
			r.Post("/kyc", h.SubmitKYC)
			r.Get("/kyc", h.GetKYC)
		})
	})
	return r
}

type sessionCtxKey struct{}

// withSession resolves the Authorization bearer token to a live session.
func (h *WalletHandler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		h.mu.Lock()
		sess := h.sessions[token]
		h.mu.Unlock()

		if sess == nil || !sess.Active() {
			sendErrorResponse(w, "Not logged in", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *ledger.Session {
	sess, _ := r.Context().Value(sessionCtxKey{}).(*ledger.Session)
	return sess
}

func (h *WalletHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if err := h.ledger.RegisterOrRefreshOTP(r.Context(), req.Phone); err != nil {
		h.sendLedgerError(w, err)
		return
	}

	// Demo only: a real flow would deliver the code out of band.
	sendSuccessResponse(w, map[string]string{
		"phone": req.Phone,
		"otp":   h.ledger.OTPForPhone(r.Context(), req.Phone),
	})
}

func (h *WalletHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	sess, err := h.ledger.VerifyOTP(r.Context(), req.Phone, req.OTP)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	token := uuid.NewString()
	h.mu.Lock()
	h.sessions[token] = sess
	h.mu.Unlock()

	sendSuccessResponse(w, map[string]string{
		"phone": sess.Phone(),
		"token": token,
	})
}

func (h *WalletHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	sessionFrom(r).End()

	h.mu.Lock()
	delete(h.sessions, token)
	h.mu.Unlock()

	sendSuccessResponse(w, map[string]string{"status": "logged out"})
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	balance, err := h.ledger.Balance(r.Context(), sess)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}
	sendSuccessResponse(w, map[string]any{
		"phone":   sess.Phone(),
		"balance": balance,
	})
}

func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	txn, err := h.ledger.TopUp(r.Context(), sessionFrom(r), req.Amount)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}
	sendSuccessResponse(w, txn)
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     string          `json:"to"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	result, err := h.ledger.Transfer(r.Context(), sessionFrom(r), req.To, req.Amount)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPhone) {
			sendErrorResponse(w, "Invalid receiver phone", http.StatusBadRequest)
			return
		}
		h.sendLedgerError(w, err)
		return
	}
	sendSuccessResponse(w, result)
}

func (h *WalletHandler) Statement(w http.ResponseWriter, r *http.Request) {
	txns, err := h.ledger.Statement(r.Context(), sessionFrom(r))
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	sendSuccessResponse(w, txns)
}

func (h *WalletHandler) SubmitKYC(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document []byte `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(req.Document) == 0 {
		sendErrorResponse(w, "Document payload is required", http.StatusBadRequest)
		return
	}

	if err := h.ledger.SubmitKYC(r.Context(), sessionFrom(r), req.Document); err != nil {
		h.sendLedgerError(w, err)
		return
	}
	sendSuccessResponse(w, map[string]string{"kycStatus": string(models.KYCSubmitted)})
}

func (h *WalletHandler) GetKYC(w http.ResponseWriter, r *http.Request) {
	doc, err := h.ledger.KYCDocument(r.Context(), sessionFrom(r))
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}
	sendSuccessResponse(w, doc)
}

func (h *WalletHandler) Export(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.ledger.Export(r.Context())
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}
	sendSuccessResponse(w, snapshot)
}

func (h *WalletHandler) sendLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotLoggedIn):
		sendErrorResponse(w, "Not logged in", http.StatusUnauthorized)
	case errors.Is(err, models.ErrInvalidOTP):
		sendErrorResponse(w, "Invalid OTP", http.StatusUnauthorized)
	case errors.Is(err, models.ErrInvalidPhone):
		sendErrorResponse(w, "Invalid phone number", http.StatusBadRequest)
	case errors.Is(err, models.ErrInvalidAmount):
		sendErrorResponse(w, "Amount must be positive", http.StatusBadRequest)
	case errors.Is(err, models.ErrAccountNotFound):
		sendErrorResponse(w, "Account not found", http.StatusNotFound)
	case errors.Is(err, models.ErrDocumentNotFound):
		sendErrorResponse(w, "KYC document not found", http.StatusNotFound)
	case errors.Is(err, models.ErrInsufficientFunds):
		sendErrorResponse(w, "Insufficient balance", http.StatusConflict)
	default:
		sendErrorResponse(w, "Internal error: "+err.Error(), http.StatusInternalServerError)
	}
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    statusCode,
			"message": message,
		},
	})
}

func sendSuccessResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": data,
	})
}
