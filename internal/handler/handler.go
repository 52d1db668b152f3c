// Package handler содержит HTTP-обработчики API сервиса ститчмарт.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/stitchmart-system/internal/gateway"
	"github.com/mmeshcher/stitchmart-system/internal/lifecycle"
	"github.com/mmeshcher/stitchmart-system/internal/middleware"
	"github.com/mmeshcher/stitchmart-system/internal/model"
	"github.com/mmeshcher/stitchmart-system/internal/pricing"
	"github.com/mmeshcher/stitchmart-system/internal/repository"
	"github.com/mmeshcher/stitchmart-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string, role model.Role) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)
	CalculatePrice(ctx context.Context, cfg pricing.Config) (*pricing.Quote, error)
	PlaceOrder(ctx context.Context, p service.PlaceOrderParams) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string, actor service.Actor) (*model.Order, error)
	GetOrdersForActor(ctx context.Context, actor service.Actor) ([]model.Order, error)
	ChangeOrderStatus(ctx context.Context, orderID string, actor service.Actor, status, note string) error
	InitiatePayment(ctx context.Context, orderID string, actor service.Actor, paymentType model.PaymentType, method string) (*service.PaymentIntent, error)
	ConfirmPaymentSuccess(ctx context.Context, cb gateway.Callback) error
	ConfirmPaymentFailure(ctx context.Context, cb gateway.Callback) error
	GetOrderPayments(ctx context.Context, orderID string, actor service.Actor) ([]model.Payment, error)
	CreateRule(ctx context.Context, rule *model.PricingRule) (int64, error)
	UpdateRule(ctx context.Context, rule *model.PricingRule) (int, error)
	DeactivateRule(ctx context.Context, id int64) error
	ListRules(ctx context.Context) ([]model.PricingRule, error)
}

// Handler реализует HTTP-обработчики API сервиса ститчмарт.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func actorFromRequest(r *http.Request) (service.Actor, bool) {
	id, role, ok := middleware.GetActorFromContext(r.Context())
	return service.Actor{ID: id, Role: role}, ok
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, lifecycle.ErrUnknownStatus):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, pricing.ErrRuleNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrOrderNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrRuleExists):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, lifecycle.ErrTerminalState):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrPaymentValidation):
		h.writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: "payment failed"})
	default:
		h.logger.Error("internal error", zap.Error(err), zap.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleCustomer
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password, role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.writeError(w, r, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, role)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || err.Error() == "invalid credentials" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID, user.Role)
	w.WriteHeader(http.StatusOK)
}

type quoteRequest struct {
	GarmentType     string   `json:"garment_type"`
	FabricProvider  string   `json:"fabric_provider"`
	FabricType      string   `json:"fabric_type,omitempty"`
	Pattern         string   `json:"pattern,omitempty"`
	SpecialFeatures []string `json:"special_features,omitempty"`
	Finishing       string   `json:"finishing,omitempty"`
	Urgency         string   `json:"urgency,omitempty"`
}

// CalculatePrice возвращает расчёт стоимости для конфигурации изделия.
func (h *Handler) CalculatePrice(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quote, err := h.service.CalculatePrice(r.Context(), pricing.Config{
		GarmentType:     req.GarmentType,
		FabricProvider:  model.FabricProvider(req.FabricProvider),
		FabricType:      req.FabricType,
		Pattern:         req.Pattern,
		SpecialFeatures: req.SpecialFeatures,
		Finishing:       req.Finishing,
		Urgency:         req.Urgency,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, quote)
}

type placeOrderRequest struct {
	TailorID             int64               `json:"tailor_id"`
	GarmentType          string              `json:"garment_type"`
	Measurements         map[string]float64  `json:"measurements"`
	FabricDetails        model.FabricDetails `json:"fabric_details"`
	SpecialFeatures      []string            `json:"special_features,omitempty"`
	Urgency              string              `json:"urgency,omitempty"`
	ExpectedDeliveryDate string              `json:"expected_delivery_date,omitempty"`
	SpecialInstructions  string              `json:"special_instructions,omitempty"`
}

type orderResponse struct {
	ID                   string               `json:"id"`
	CustomerID           int64                `json:"customer_id"`
	TailorID             int64                `json:"tailor_id"`
	GarmentType          string               `json:"garment_type"`
	Measurements         map[string]float64   `json:"measurements,omitempty"`
	FabricDetails        *model.FabricDetails `json:"fabric_details,omitempty"`
	SpecialFeatures      []string             `json:"special_features,omitempty"`
	Urgency              string               `json:"urgency,omitempty"`
	Status               string               `json:"status"`
	StatusHistory        []model.StatusEntry  `json:"status_history,omitempty"`
	EstimatedPrice       float64              `json:"estimated_price,omitempty"`
	TotalAmount          int64                `json:"total_amount"`
	RuleVersion          int                  `json:"rule_version,omitempty"`
	PaymentStatus        string               `json:"payment_status"`
	ExpectedDeliveryDate string               `json:"expected_delivery_date,omitempty"`
	SpecialInstructions  string               `json:"special_instructions,omitempty"`
	CreatedAt            string               `json:"created_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:                  o.ID,
		CustomerID:          o.CustomerID,
		TailorID:            o.TailorID,
		GarmentType:         o.GarmentType,
		Measurements:        o.Measurements,
		SpecialFeatures:     o.SpecialFeatures,
		Urgency:             o.Urgency,
		Status:              string(o.Status),
		StatusHistory:       o.StatusHistory,
		EstimatedPrice:      o.EstimatedPrice,
		TotalAmount:         o.TotalAmount,
		RuleVersion:         o.RuleVersion,
		PaymentStatus:       string(o.PaymentStatus),
		SpecialInstructions: o.SpecialInstructions,
		CreatedAt:           o.CreatedAt.Format(time.RFC3339),
	}
	if o.FabricDetails != (model.FabricDetails{}) {
		fd := o.FabricDetails
		resp.FabricDetails = &fd
	}
	if !o.ExpectedDeliveryDate.IsZero() {
		resp.ExpectedDeliveryDate = o.ExpectedDeliveryDate.Format(time.RFC3339)
	}
	return resp
}

// PlaceOrder размещает заказ от имени текущего покупателя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var delivery time.Time
	if req.ExpectedDeliveryDate != "" {
		var err error
		delivery, err = time.Parse(time.RFC3339, req.ExpectedDeliveryDate)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	order, err := h.service.PlaceOrder(r.Context(), service.PlaceOrderParams{
		CustomerID:           actor.ID,
		TailorID:             req.TailorID,
		GarmentType:          req.GarmentType,
		Measurements:         req.Measurements,
		FabricDetails:        req.FabricDetails,
		SpecialFeatures:      req.SpecialFeatures,
		Urgency:              req.Urgency,
		ExpectedDeliveryDate: delivery,
		SpecialInstructions:  req.SpecialInstructions,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetOrders возвращает заказы, видимые текущему пользователю.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersForActor(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ с журналом статусов.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "orderID"), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// ChangeOrderStatus переводит заказ в новый статус.
func (h *Handler) ChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.ChangeOrderStatus(r.Context(), chi.URLParam(r, "orderID"), actor, req.Status, req.Note); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type initiatePaymentRequest struct {
	PaymentType string `json:"payment_type"`
	Method      string `json:"method,omitempty"`
}

type paymentIntentResponse struct {
	PaymentID   string `json:"payment_id"`
	Amount      int64  `json:"amount"`
	RedirectURL string `json:"redirect_url"`
}

// InitiatePayment создаёт платёжную сессию в шлюзе для заказа.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	intent, err := h.service.InitiatePayment(r.Context(), chi.URLParam(r, "orderID"), actor, model.PaymentType(req.PaymentType), req.Method)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, paymentIntentResponse{
		PaymentID:   intent.PaymentID,
		Amount:      intent.Amount,
		RedirectURL: intent.RedirectURL,
	})
}

type paymentResponse struct {
	ID                    string `json:"id"`
	Amount                int64  `json:"amount"`
	PaymentType           string `json:"payment_type"`
	Status                string `json:"status"`
	ExternalTransactionID string `json:"external_transaction_id,omitempty"`
	CreatedAt             string `json:"created_at"`
}

// GetOrderPayments возвращает платежи по заказу.
func (h *Handler) GetOrderPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	payments, err := h.service.GetOrderPayments(r.Context(), chi.URLParam(r, "orderID"), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(payments) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, paymentResponse{
			ID:                    p.ID,
			Amount:                p.Amount,
			PaymentType:           string(p.Type),
			Status:                string(p.Status),
			ExternalTransactionID: p.ExternalTransactionID,
			CreatedAt:             p.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// PaymentSuccessCallback обрабатывает обратный вызов шлюза об успешной оплате.
// Некорректный вызов поглощается с ответом 200: повторная доставка того же
// сообщения шлюзом ничего не исправит. Ошибки хранилища возвращают 500,
// чтобы шлюз повторил доставку — обработка идемпотентна.
func (h *Handler) PaymentSuccessCallback(w http.ResponseWriter, r *http.Request) {
	var cb gateway.Callback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		h.logger.Warn("undecodable success callback", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.service.ConfirmPaymentSuccess(r.Context(), cb); err != nil {
		if errors.Is(err, gateway.ErrBadCallback) || errors.Is(err, repository.ErrOrderNotFound) {
			h.logger.Warn("absorb success callback", zap.Error(err), zap.String("tran_id", cb.TranID))
			w.WriteHeader(http.StatusOK)
			return
		}
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// PaymentFailureCallback обрабатывает обратный вызов шлюза о неуспешной
// оплате. Отвечает 200 в том числе для неизвестных платежей.
func (h *Handler) PaymentFailureCallback(w http.ResponseWriter, r *http.Request) {
	var cb gateway.Callback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		h.logger.Warn("undecodable failure callback", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.service.ConfirmPaymentFailure(r.Context(), cb); err != nil {
		h.logger.Error("failure callback", zap.Error(err), zap.String("tran_id", cb.TranID))
	}

	w.WriteHeader(http.StatusOK)
}
