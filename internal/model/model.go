// Package model содержит доменные сущности сервиса ститчмарт.
package model

import "time"

// Role определяет роль действующего лица в системе.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleTailor   Role = "tailor"
	RoleAdmin    Role = "admin"
)

// User представляет зарегистрированного пользователя маркетплейса.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// FabricProvider указывает, кто предоставляет ткань для изделия.
type FabricProvider string

const (
	FabricProviderCustomer FabricProvider = "customer"
	FabricProviderTailor   FabricProvider = "tailor"
)

// Valid сообщает, является ли значение известным поставщиком ткани.
func (p FabricProvider) Valid() bool {
	return p == FabricProviderCustomer || p == FabricProviderTailor
}

// PricingRule описывает версионированное правило ценообразования
// для пары (поставщик ткани, тип изделия).
type PricingRule struct {
	ID                   int64
	FabricProvider       FabricProvider
	GarmentType          string
	BasePrice            float64
	ComplexityMultiplier float64
	// FabricPricing учитывается, только когда ткань предоставляет портной.
	FabricPricing     map[string]float64
	PatternBonus      map[string]float64
	SpecialFeatures   map[string]float64
	FinishingBonus    map[string]float64
	UrgencyMultiplier map[string]float64
	MinPrice          float64
	MaxPrice          float64
	Version           int
	IsActive          bool
	UpdatedAt         time.Time
}

// OrderStatus описывает статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "Pending"
	OrderStatusAccepted         OrderStatus = "Accepted"
	OrderStatusFabricCollection OrderStatus = "Fabric Collection"
	OrderStatusInProgress       OrderStatus = "In Progress"
	OrderStatusReadyForTrial    OrderStatus = "Ready for Trial"
	OrderStatusAlterations      OrderStatus = "Alterations"
	OrderStatusCompleted        OrderStatus = "Completed"
	OrderStatusDelivered        OrderStatus = "Delivered"
	OrderStatusCancelled        OrderStatus = "Cancelled"
)

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "Pending"
	PaymentStatusPartiallyPaid PaymentStatus = "PartiallyPaid"
	PaymentStatusPaid          PaymentStatus = "Paid"
	PaymentStatusRefunded      PaymentStatus = "Refunded"
)

// StatusEntry — одна запись журнала статусов заказа.
type StatusEntry struct {
	Status OrderStatus `json:"status"`
	Date   time.Time   `json:"date"`
	Notes  string      `json:"notes"`
}

// FabricDetails описывает параметры ткани, зафиксированные при создании заказа.
type FabricDetails struct {
	Provider  FabricProvider `json:"provider"`
	Type      string         `json:"type,omitempty"`
	Color     string         `json:"color,omitempty"`
	Pattern   string         `json:"pattern,omitempty"`
	Quantity  float64        `json:"quantity,omitempty"`
	Finishing string         `json:"finishing,omitempty"`
	Budget    float64        `json:"budget,omitempty"`
}

// Order описывает заказ на пошив изделия.
// Measurements и FabricDetails — снимки на момент создания, не живые ссылки.
type Order struct {
	ID                   string
	CustomerID           int64
	TailorID             int64
	GarmentType          string
	Measurements         map[string]float64
	FabricDetails        FabricDetails
	SpecialFeatures      []string
	Urgency              string
	Status               OrderStatus
	StatusHistory        []StatusEntry
	EstimatedPrice       float64
	TotalAmount          int64
	RuleVersion          int
	PaymentStatus        PaymentStatus
	ExpectedDeliveryDate time.Time
	SpecialInstructions  string
	CreatedAt            time.Time
}

// PaymentType определяет схему оплаты: аванс или полная сумма.
type PaymentType string

const (
	PaymentTypeAdvance PaymentType = "advance"
	PaymentTypeFull    PaymentType = "full"
)

// AdvanceShare — доля полной стоимости, взимаемая при авансовом платеже.
const AdvanceShare = 0.4

// PaymentRecordStatus описывает состояние отдельной платёжной записи.
type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
)

// Payment описывает платёж по заказу. После перехода в completed или failed
// запись неизменяема.
type Payment struct {
	ID                    string
	OrderID               string
	CustomerID            int64
	Amount                int64
	Type                  PaymentType
	Method                string
	Status                PaymentRecordStatus
	ExternalTransactionID string
	CreatedAt             time.Time
}
