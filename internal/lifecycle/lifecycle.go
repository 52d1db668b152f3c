// Package lifecycle реализует машину состояний заказа и журнал статусов.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/stitchmart-system/internal/model"
)

// ErrUnknownStatus возвращается для статуса вне известного перечисления.
var (
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrInvalidTransition возвращается при переходе, запрещённом графом состояний.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTerminalState возвращается при попытке изменить завершённый заказ.
	ErrTerminalState = errors.New("order is in terminal state")
	// ErrInvalidPaymentStatus возвращается для неизвестного статуса оплаты.
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)

// DefaultNote используется, если переход выполнен без пояснения.
const DefaultNote = "Status updated"

var knownStatuses = map[model.OrderStatus]struct{}{
	model.OrderStatusPending:          {},
	model.OrderStatusAccepted:         {},
	model.OrderStatusFabricCollection: {},
	model.OrderStatusInProgress:       {},
	model.OrderStatusReadyForTrial:    {},
	model.OrderStatusAlterations:      {},
	model.OrderStatusCompleted:        {},
	model.OrderStatusDelivered:        {},
	model.OrderStatusCancelled:        {},
}

// adjacency задаёт разрешённые рёбра графа состояний.
// Cancelled достижим из любого незавершённого состояния и добавляется в Allowed.
var adjacency = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:          {model.OrderStatusAccepted},
	model.OrderStatusAccepted:         {model.OrderStatusFabricCollection, model.OrderStatusInProgress},
	model.OrderStatusFabricCollection: {model.OrderStatusInProgress},
	model.OrderStatusInProgress:       {model.OrderStatusReadyForTrial, model.OrderStatusCompleted, model.OrderStatusDelivered},
	model.OrderStatusReadyForTrial:    {model.OrderStatusAlterations, model.OrderStatusCompleted},
	model.OrderStatusAlterations:      {model.OrderStatusReadyForTrial, model.OrderStatusCompleted},
	model.OrderStatusCompleted:        {model.OrderStatusDelivered},
}

// ParseStatus проверяет строку по закрытому перечислению статусов.
func ParseStatus(s string) (model.OrderStatus, error) {
	status := model.OrderStatus(s)
	if _, ok := knownStatuses[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// IsTerminal сообщает, является ли статус завершающим.
func IsTerminal(s model.OrderStatus) bool {
	return s == model.OrderStatusDelivered || s == model.OrderStatusCancelled
}

// Allowed сообщает, разрешён ли переход from → to графом состояний.
func Allowed(from, to model.OrderStatus) bool {
	if IsTerminal(from) {
		return false
	}
	if to == model.OrderStatusCancelled {
		return true
	}
	for _, next := range adjacency[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine применяет переходы статусов к заказу.
// В режиме Permissive граф состояний не проверяется: допускается любой
// известный статус, как в историческом поведении системы. Завершённые
// заказы неизменяемы в обоих режимах.
type Machine struct {
	Permissive bool
}

// Transition переводит заказ в новый статус и дописывает запись журнала.
// Возвращает false без записи в журнал, если статус не изменился.
// Смена статуса и запись журнала выполняются вместе; слой хранения обязан
// зафиксировать их в одной транзакции.
func (m Machine) Transition(o *model.Order, to model.OrderStatus, note string, at time.Time) (bool, error) {
	if _, ok := knownStatuses[to]; !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if to == o.Status {
		return false, nil
	}
	if IsTerminal(o.Status) {
		return false, fmt.Errorf("%w: %s", ErrTerminalState, o.Status)
	}
	if !m.Permissive && !Allowed(o.Status, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	if note == "" {
		note = DefaultNote
	}

	o.Status = to
	o.StatusHistory = append(o.StatusHistory, model.StatusEntry{
		Status: to,
		Date:   at,
		Notes:  note,
	})

	return true, nil
}

// NewOrderParams содержит данные для создания заказа.
type NewOrderParams struct {
	ID                   string
	CustomerID           int64
	TailorID             int64
	GarmentType          string
	Measurements         map[string]float64
	FabricDetails        model.FabricDetails
	SpecialFeatures      []string
	Urgency              string
	EstimatedPrice       float64
	TotalAmount          int64
	RuleVersion          int
	ExpectedDeliveryDate time.Time
	SpecialInstructions  string
	CreatedAt            time.Time
}

// New создаёт заказ в статусе Pending с единственной записью журнала.
// Мерки копируются: заказ хранит снимок, а не живую ссылку.
func New(p NewOrderParams) *model.Order {
	measurements := make(map[string]float64, len(p.Measurements))
	for k, v := range p.Measurements {
		measurements[k] = v
	}

	features := make([]string, len(p.SpecialFeatures))
	copy(features, p.SpecialFeatures)

	return &model.Order{
		ID:                   p.ID,
		CustomerID:           p.CustomerID,
		TailorID:             p.TailorID,
		GarmentType:          p.GarmentType,
		Measurements:         measurements,
		FabricDetails:        p.FabricDetails,
		SpecialFeatures:      features,
		Urgency:              p.Urgency,
		Status:               model.OrderStatusPending,
		StatusHistory: []model.StatusEntry{{
			Status: model.OrderStatusPending,
			Date:   p.CreatedAt,
			Notes:  "Order placed",
		}},
		EstimatedPrice:       p.EstimatedPrice,
		TotalAmount:          p.TotalAmount,
		RuleVersion:          p.RuleVersion,
		PaymentStatus:        model.PaymentStatusPending,
		ExpectedDeliveryDate: p.ExpectedDeliveryDate,
		SpecialInstructions:  p.SpecialInstructions,
		CreatedAt:            p.CreatedAt,
	}
}

var paymentRank = map[model.PaymentStatus]int{
	model.PaymentStatusPending:       0,
	model.PaymentStatusPartiallyPaid: 1,
	model.PaymentStatusPaid:          2,
}

// AdvancePaymentStatus продвигает статус оплаты строго вперёд:
// Pending → PartiallyPaid → Paid. Повтор уже достигнутого статуса — no-op.
// Refunded — терминальное переопределение, допустимое из любого состояния.
func AdvancePaymentStatus(o *model.Order, target model.PaymentStatus) (bool, error) {
	if target == model.PaymentStatusRefunded {
		if o.PaymentStatus == model.PaymentStatusRefunded {
			return false, nil
		}
		o.PaymentStatus = model.PaymentStatusRefunded
		return true, nil
	}

	targetRank, ok := paymentRank[target]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, target)
	}
	if o.PaymentStatus == model.PaymentStatusRefunded {
		return false, nil
	}

	if targetRank <= paymentRank[o.PaymentStatus] {
		return false, nil
	}

	o.PaymentStatus = target
	return true, nil
}
