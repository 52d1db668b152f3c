// Package pricing реализует расчёт стоимости пошива по правилам ценообразования.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mmeshcher/stitchmart-system/internal/model"
)

// ErrRuleNotFound возвращается, если для запрошенной комбинации нет активного правила.
var ErrRuleNotFound = errors.New("pricing rule not found")

// RuleSource возвращает снимок активного правила для пары
// (поставщик ткани, тип изделия). Снимок отдаётся по значению:
// параллельное обновление правила не должно быть видно внутри одного расчёта.
type RuleSource interface {
	ActiveRule(ctx context.Context, provider model.FabricProvider, garmentType string) (*model.PricingRule, error)
}

// Config описывает конфигурацию изделия, для которой рассчитывается цена.
type Config struct {
	GarmentType     string
	FabricProvider  model.FabricProvider
	FabricType      string
	Pattern         string
	SpecialFeatures []string
	Finishing       string
	Urgency         string
}

// FeatureCharge — надбавка за одну дополнительную опцию.
type FeatureCharge struct {
	Feature string  `json:"feature"`
	Amount  float64 `json:"amount"`
}

// Breakdown раскрывает неокруглённые составляющие итоговой цены.
type Breakdown struct {
	BasePrice            float64         `json:"base_price"`
	ComplexityMultiplier float64         `json:"complexity_multiplier"`
	AdjustedBase         float64         `json:"adjusted_base"`
	FabricSurcharge      float64         `json:"fabric_surcharge"`
	PatternBonus         float64         `json:"pattern_bonus"`
	FeatureCharges       []FeatureCharge `json:"feature_charges,omitempty"`
	FinishingBonus       float64         `json:"finishing_bonus"`
	UrgencyMultiplier    float64         `json:"urgency_multiplier"`
	RawTotal             float64         `json:"raw_total"`
	MinPrice             float64         `json:"min_price"`
	MaxPrice             float64         `json:"max_price"`
	Clamped              bool            `json:"clamped"`
}

// Quote — результат расчёта: итоговая цена в целых денежных единицах,
// версия применённого правила и детализация.
type Quote struct {
	TotalPrice  int64     `json:"total_price"`
	RuleVersion int       `json:"rule_version"`
	Breakdown   Breakdown `json:"breakdown"`
}

// Engine выполняет детерминированный расчёт цены по активному правилу.
// Расчёт не имеет побочных эффектов и безопасен для параллельных вызовов.
type Engine struct {
	rules RuleSource
}

// NewEngine создаёт движок расчёта цен поверх источника правил.
func NewEngine(rules RuleSource) *Engine {
	return &Engine{rules: rules}
}

// Calculate рассчитывает стоимость изделия для указанной конфигурации.
// Надбавка за ткань применяется только когда ткань предоставляет портной:
// в этом случае стоимость материала входит в цену работы.
// Множитель срочности применяется последним к полной сумме.
func (e *Engine) Calculate(ctx context.Context, cfg Config) (*Quote, error) {
	rule, err := e.rules.ActiveRule(ctx, cfg.FabricProvider, cfg.GarmentType)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrRuleNotFound, cfg.FabricProvider, cfg.GarmentType)
		}
		return nil, fmt.Errorf("load pricing rule: %w", err)
	}

	pattern := cfg.Pattern
	if pattern == "" {
		pattern = "plain"
	}
	finishing := cfg.Finishing
	if finishing == "" {
		finishing = "basic"
	}
	urgency := cfg.Urgency
	if urgency == "" {
		urgency = "normal"
	}

	b := Breakdown{
		BasePrice:            rule.BasePrice,
		ComplexityMultiplier: rule.ComplexityMultiplier,
		MinPrice:             rule.MinPrice,
		MaxPrice:             rule.MaxPrice,
	}

	price := rule.BasePrice * rule.ComplexityMultiplier
	b.AdjustedBase = price

	if cfg.FabricProvider == model.FabricProviderTailor && cfg.FabricType != "" {
		if surcharge, ok := rule.FabricPricing[cfg.FabricType]; ok {
			price += surcharge
			b.FabricSurcharge = surcharge
		}
	}

	if bonus, ok := rule.PatternBonus[pattern]; ok {
		price += bonus
		b.PatternBonus = bonus
	}

	// Опции суммируются как переданы, без дедупликации.
	for _, feature := range cfg.SpecialFeatures {
		if charge, ok := rule.SpecialFeatures[feature]; ok {
			price += charge
			b.FeatureCharges = append(b.FeatureCharges, FeatureCharge{Feature: feature, Amount: charge})
		}
	}

	if bonus, ok := rule.FinishingBonus[finishing]; ok {
		price += bonus
		b.FinishingBonus = bonus
	}

	multiplier := 1.0
	if m, ok := rule.UrgencyMultiplier[urgency]; ok {
		multiplier = m
	}
	price *= multiplier
	b.UrgencyMultiplier = multiplier
	b.RawTotal = price

	clamped := math.Max(rule.MinPrice, math.Min(rule.MaxPrice, price))
	b.Clamped = clamped != price

	return &Quote{
		TotalPrice:  int64(math.Round(clamped)),
		RuleVersion: rule.Version,
		Breakdown:   b,
	}, nil
}
