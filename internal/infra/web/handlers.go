package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/model"
	"saas-api-console/internal/infra/metrics"
	"saas-api-console/internal/usecase"
)

// ===== response shapes =====

type paymentResponse struct {
	ID        string     `json:"id"`
	PlanID    string     `json:"plan_id"`
	Industry  string     `json:"industry"`
	AppName   string     `json:"app_name"`
	URL       string     `json:"url"`
	Email     string     `json:"email"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Reference string     `json:"reference"`
	Status    string     `json:"status"`
	Method    string     `json:"payment_method,omitempty"`
	InvoiceID string     `json:"invoice_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		PlanID:    p.PlanID,
		Industry:  p.Industry,
		AppName:   p.AppName,
		URL:       p.URL,
		Email:     p.Email,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Reference: p.TransactionReference,
		Status:    string(p.Status),
		Method:    p.PaymentMethod,
		InvoiceID: p.InvoiceID,
		CreatedAt: p.CreatedAt,
		PaidAt:    p.PaidAt,
	}
}

// keyResponse never carries the secret. Issuance and rotation responses add
// it separately, once.
type keyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	KeyPrefix     string     `json:"key_prefix"`
	Industry      string     `json:"industry,omitempty"`
	PlanID        string     `json:"plan_id"`
	PaymentID     *string    `json:"payment_id,omitempty"`
	Status        string     `json:"status"`
	Usage         int64      `json:"usage"`
	Limit         int64      `json:"limit"`
	Environment   string     `json:"environment"`
	CreatedAt     time.Time  `json:"created_at"`
	LastRotatedAt *time.Time `json:"last_rotated_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

func toKeyResponse(k *model.APIKey) keyResponse {
	return keyResponse{
		ID:            k.ID,
		Name:          k.Name,
		KeyPrefix:     k.KeyPrefix,
		Industry:      k.Industry,
		PlanID:        k.PlanID,
		PaymentID:     k.PaymentID,
		Status:        string(k.Status),
		Usage:         k.Usage,
		Limit:         k.Limit,
		Environment:   string(k.Environment),
		CreatedAt:     k.CreatedAt,
		LastRotatedAt: k.LastRotatedAt,
		RevokedAt:     k.RevokedAt,
	}
}

type issuedKeyResponse struct {
	keyResponse
	Key string `json:"key"`
}

type planResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	PriceNGN     int64    `json:"price_ngn"`
	Features     []string `json:"features"`
	APICallLimit int64    `json:"api_call_limit"`
	Popular      bool     `json:"popular"`
}

func toPlanResponse(p *model.PricingPlan) planResponse {
	return planResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		PriceNGN:     p.PriceNGN,
		Features:     p.Features,
		APICallLimit: p.APICallLimit,
		Popular:      p.Popular,
	}
}

type ticketResponseBody struct {
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type ticketResponseJSON struct {
	ID          string               `json:"id"`
	Subject     string               `json:"subject"`
	Description string               `json:"description"`
	Vertical    string               `json:"affected_vertical,omitempty"`
	Priority    string               `json:"priority"`
	Status      string               `json:"status"`
	Responses   []ticketResponseBody `json:"responses"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	ResolvedAt  *time.Time           `json:"resolved_at,omitempty"`
}

func toTicketResponse(t *model.SupportTicket) ticketResponseJSON {
	out := ticketResponseJSON{
		ID:          t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		Vertical:    t.AffectedVertical,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Responses:   make([]ticketResponseBody, 0, len(t.Responses)),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ResolvedAt:  t.ResolvedAt,
	}
	for _, resp := range t.Responses {
		out.Responses = append(out.Responses, ticketResponseBody{
			Message:   resp.Message,
			UserID:    resp.UserID,
			IsAdmin:   resp.IsAdmin,
			CreatedAt: resp.CreatedAt,
		})
	}
	return out
}

// ===== payments =====

type paymentInitiateRequest struct {
	PlanID   string `json:"plan_id"`
	Industry string `json:"industry"`
	AppName  string `json:"app_name"`
	URL      string `json:"url"`
	Email    string `json:"email"`
}

func paymentInitiateHandler(uc usecase.PaymentUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req paymentInitiateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		payment, init, err := uc.Initiate(ctx, UserID(ctx), usecase.InitiateParams{
			PlanID:   req.PlanID,
			Industry: req.Industry,
			AppName:  req.AppName,
			URL:      req.URL,
			Email:    req.Email,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Payment          paymentResponse `json:"payment"`
			AuthorizationURL string          `json:"authorization_url"`
			AccessCode       string          `json:"access_code"`
			Reference        string          `json:"reference"`
		}{
			Payment:          toPaymentResponse(payment),
			AuthorizationURL: init.AuthorizationURL,
			AccessCode:       init.AccessCode,
			Reference:        init.Reference,
		})
	}
}

type paymentVerifyRequest struct {
	Reference string `json:"reference"`
}

func paymentVerifyHandler(uc usecase.PaymentUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		finish := func(result, reason string) {
			metrics.PaymentVerifyDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
			metrics.PaymentVerifyRequests.WithLabelValues(result, reason).Inc()
		}

		var req paymentVerifyRequest
		if err := decodeJSON(r, &req); err != nil {
			finish("error", "bad_json")
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := uc.Verify(ctx, UserID(ctx), req.Reference)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrValidation):
				finish("error", "missing_reference")
			case errors.Is(err, domain.ErrNotFound):
				// A settlement the gateway confirms but no record matches is a
				// data-integrity problem the user cannot fix by retrying.
				finish("error", "not_found")
				writeJSON(w, http.StatusNotFound, map[string]string{
					"status":  "error",
					"message": "Payment record not found. Please contact support.",
				})
				return
			case errors.Is(err, domain.ErrGatewayUnavailable):
				finish("error", "gateway_unavailable")
			default:
				log.Error().Err(err).Str("reference", req.Reference).Msg("payment verification failed")
				finish("error", "unknown")
			}
			writeDomainError(w, err)
			return
		}

		if result.Status == "success" {
			finish("success", "")
			writeJSON(w, http.StatusOK, result)
			return
		}
		finish("failed", "gateway_rejected")
		writeJSON(w, http.StatusOK, result)
	}
}

func paymentHistoryHandler(uc usecase.PaymentUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		payments, err := uc.History(ctx, UserID(ctx), limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		data := make([]paymentResponse, 0, len(payments))
		for _, p := range payments {
			data = append(data, toPaymentResponse(p))
		}
		writeJSON(w, http.StatusOK, struct {
			Data []paymentResponse `json:"data"`
		}{Data: data})
	}
}

func paymentGetHandler(uc usecase.PaymentUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payment, err := uc.Get(ctx, UserID(ctx), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentResponse(payment))
	}
}

// ===== api keys =====

type keyCreateRequest struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	PlanID      string `json:"plan_id"`
	Environment string `json:"environment"`
}

func keyCreateHandler(uc usecase.APIKeyUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req keyCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		key, err := uc.Create(ctx, UserID(ctx), req.Name, req.Industry, req.PlanID, model.Environment(req.Environment))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, issuedKeyResponse{keyResponse: toKeyResponse(key), Key: key.Key})
	}
}

func keyListHandler(uc usecase.APIKeyUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		includeRevoked := r.URL.Query().Get("include_revoked") == "true"
		keys, err := uc.List(ctx, UserID(ctx), includeRevoked)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		data := make([]keyResponse, 0, len(keys))
		for _, k := range keys {
			data = append(data, toKeyResponse(k))
		}
		writeJSON(w, http.StatusOK, struct {
			Data []keyResponse `json:"data"`
		}{Data: data})
	}
}

func keyGetHandler(uc usecase.APIKeyUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key, err := uc.Get(ctx, UserID(ctx), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toKeyResponse(key))
	}
}

func keyRotateHandler(uc usecase.APIKeyUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key, err := uc.Rotate(ctx, UserID(ctx), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, issuedKeyResponse{keyResponse: toKeyResponse(key), Key: key.Key})
	}
}

func keyRevokeHandler(uc usecase.APIKeyUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := uc.Revoke(ctx, UserID(ctx), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ===== plans =====

func plansListHandler(uc usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := uc.ListActive(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		data := make([]planResponse, 0, len(plans))
		for _, p := range plans {
			data = append(data, toPlanResponse(p))
		}
		writeJSON(w, http.StatusOK, struct {
			Data []planResponse `json:"data"`
		}{Data: data})
	}
}

// ===== tickets =====

type ticketCreateRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Vertical    string `json:"affected_vertical"`
	Priority    string `json:"priority"`
}

func ticketCreateHandler(uc usecase.TicketUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req ticketCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ticket, err := uc.Create(ctx, UserID(ctx), req.Subject, req.Description, req.Vertical, model.TicketPriority(req.Priority))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTicketResponse(ticket))
	}
}

func ticketListHandler(uc usecase.TicketUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tickets, err := uc.List(ctx, UserID(ctx))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		data := make([]ticketResponseJSON, 0, len(tickets))
		for _, t := range tickets {
			data = append(data, toTicketResponse(t))
		}
		writeJSON(w, http.StatusOK, struct {
			Data []ticketResponseJSON `json:"data"`
		}{Data: data})
	}
}

func ticketGetHandler(uc usecase.TicketUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ticket, err := uc.Get(ctx, UserID(ctx), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketResponse(ticket))
	}
}

type ticketRespondRequest struct {
	Message string `json:"message"`
}

func ticketRespondHandler(uc usecase.TicketUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req ticketRespondRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ticket, err := uc.Respond(ctx, UserID(ctx), chi.URLParam(r, "id"), req.Message)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketResponse(ticket))
	}
}

type ticketStatusRequest struct {
	Status string `json:"status"`
}

func ticketStatusHandler(uc usecase.TicketUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req ticketStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ticket, err := uc.UpdateStatus(ctx, UserID(ctx), chi.URLParam(r, "id"), model.TicketStatus(req.Status))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketResponse(ticket))
	}
}

// ===== audit =====

func auditListHandler(audit *usecase.AuditRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := audit.History(ctx, UserID(ctx), limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		type auditEntry struct {
			ID           string         `json:"id"`
			Action       string         `json:"action"`
			ResourceType string         `json:"resource_type"`
			ResourceID   string         `json:"resource_id,omitempty"`
			Details      map[string]any `json:"details,omitempty"`
			IPAddress    string         `json:"ip_address,omitempty"`
			CreatedAt    time.Time      `json:"created_at"`
		}
		data := make([]auditEntry, 0, len(entries))
		for _, e := range entries {
			data = append(data, auditEntry{
				ID:           e.ID,
				Action:       e.Action,
				ResourceType: e.ResourceType,
				ResourceID:   e.ResourceID,
				Details:      e.Details,
				IPAddress:    e.IPAddress,
				CreatedAt:    e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, struct {
			Data []auditEntry `json:"data"`
		}{Data: data})
	}
}
