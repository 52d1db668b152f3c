package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/stitchmart-system/internal/model"
)

type ruleRequest struct {
	FabricProvider       string             `json:"fabric_provider"`
	GarmentType          string             `json:"garment_type"`
	BasePrice            float64            `json:"base_price"`
	ComplexityMultiplier float64            `json:"complexity_multiplier"`
	FabricPricing        map[string]float64 `json:"fabric_pricing,omitempty"`
	PatternBonus         map[string]float64 `json:"pattern_bonus,omitempty"`
	SpecialFeatures      map[string]float64 `json:"special_features,omitempty"`
	FinishingBonus       map[string]float64 `json:"finishing_bonus,omitempty"`
	UrgencyMultiplier    map[string]float64 `json:"urgency_multiplier,omitempty"`
	MinPrice             float64            `json:"min_price"`
	MaxPrice             float64            `json:"max_price"`
}

type ruleResponse struct {
	ID                   int64              `json:"id"`
	FabricProvider       string             `json:"fabric_provider"`
	GarmentType          string             `json:"garment_type"`
	BasePrice            float64            `json:"base_price"`
	ComplexityMultiplier float64            `json:"complexity_multiplier"`
	FabricPricing        map[string]float64 `json:"fabric_pricing,omitempty"`
	PatternBonus         map[string]float64 `json:"pattern_bonus,omitempty"`
	SpecialFeatures      map[string]float64 `json:"special_features,omitempty"`
	FinishingBonus       map[string]float64 `json:"finishing_bonus,omitempty"`
	UrgencyMultiplier    map[string]float64 `json:"urgency_multiplier,omitempty"`
	MinPrice             float64            `json:"min_price"`
	MaxPrice             float64            `json:"max_price"`
	Version              int                `json:"version"`
	IsActive             bool               `json:"is_active"`
	UpdatedAt            string             `json:"updated_at"`
}

func (req *ruleRequest) toModel() *model.PricingRule {
	return &model.PricingRule{
		FabricProvider:       model.FabricProvider(req.FabricProvider),
		GarmentType:          req.GarmentType,
		BasePrice:            req.BasePrice,
		ComplexityMultiplier: req.ComplexityMultiplier,
		FabricPricing:        req.FabricPricing,
		PatternBonus:         req.PatternBonus,
		SpecialFeatures:      req.SpecialFeatures,
		FinishingBonus:       req.FinishingBonus,
		UrgencyMultiplier:    req.UrgencyMultiplier,
		MinPrice:             req.MinPrice,
		MaxPrice:             req.MaxPrice,
	}
}

func toRuleResponse(rule *model.PricingRule) ruleResponse {
	return ruleResponse{
		ID:                   rule.ID,
		FabricProvider:       string(rule.FabricProvider),
		GarmentType:          rule.GarmentType,
		BasePrice:            rule.BasePrice,
		ComplexityMultiplier: rule.ComplexityMultiplier,
		FabricPricing:        rule.FabricPricing,
		PatternBonus:         rule.PatternBonus,
		SpecialFeatures:      rule.SpecialFeatures,
		FinishingBonus:       rule.FinishingBonus,
		UrgencyMultiplier:    rule.UrgencyMultiplier,
		MinPrice:             rule.MinPrice,
		MaxPrice:             rule.MaxPrice,
		Version:              rule.Version,
		IsActive:             rule.IsActive,
		UpdatedAt:            rule.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateRule создаёт активное правило ценообразования.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rule := req.toModel()
	id, err := h.service.CreateRule(r.Context(), rule)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rule.ID = id
	rule.Version = 1
	rule.IsActive = true

	h.writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

// UpdateRule заменяет содержимое правила и повышает его версию.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ruleID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rule := req.toModel()
	rule.ID = id

	version, err := h.service.UpdateRule(r.Context(), rule)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rule.Version = version
	rule.IsActive = true

	h.writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// DeactivateRule снимает правило с использования, не удаляя его историю.
func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ruleID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeactivateRule(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRules возвращает все правила ценообразования, включая неактивные.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]ruleResponse, 0, len(rules))
	for i := range rules {
		resp = append(resp, toRuleResponse(&rules[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}
