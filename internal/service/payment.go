package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/stitchmart-system/internal/gateway"
	"github.com/mmeshcher/stitchmart-system/internal/model"
)

// PaymentIntent — результат инициации платежа.
type PaymentIntent struct {
	PaymentID   string
	Amount      int64
	RedirectURL string
}

// InitiatePayment рассчитывает сумму платежа и регистрирует транзакцию
// в шлюзе. Аванс составляет 40% от полной стоимости заказа.
// Сетевые ошибки шлюза повторяются с нарастающей задержкой; отказ шлюза
// не повторяется.
func (s *Service) InitiatePayment(ctx context.Context, orderID string, actor Actor, paymentType model.PaymentType, method string) (*PaymentIntent, error) {
	if s.gatewayClient == nil {
		return nil, errors.New("payment gateway is not configured")
	}
	if paymentType != model.PaymentTypeAdvance && paymentType != model.PaymentTypeFull {
		return nil, fmt.Errorf("%w: unknown payment type %q", ErrValidation, paymentType)
	}

	o, err := s.GetOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	amount := o.TotalAmount
	if paymentType == model.PaymentTypeAdvance {
		amount = int64(math.Round(model.AdvanceShare * float64(o.TotalAmount)))
	}

	paymentID := uuid.NewString()

	var redirect string
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var initErr error
		redirect, initErr = s.gatewayClient.InitiateTransaction(ctx, gateway.InitiateRequest{
			Amount:      amount,
			Currency:    "BDT",
			OrderID:     o.ID,
			PaymentID:   paymentID,
			PaymentType: paymentType,
			CustomerID:  o.CustomerID,
		})
		if initErr != nil {
			if errors.Is(initErr, gateway.ErrDeclined) {
				return initErr
			}
			return retry.RetryableError(initErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("initiate transaction: %w", err)
	}

	payment := &model.Payment{
		ID:         paymentID,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Amount:     amount,
		Type:       paymentType,
		Method:     method,
		Status:     model.PaymentRecordPending,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	return &PaymentIntent{
		PaymentID:   paymentID,
		Amount:      amount,
		RedirectURL: redirect,
	}, nil
}

// ConfirmPaymentSuccess обрабатывает обратный вызов об успешной оплате.
// Транзакция перепроверяется в шлюзе; неподтверждённая отклоняется с
// ErrPaymentValidation, заказ при этом не меняется. Повтор с тем же внешним
// идентификатором транзакции — no-op.
//
// У шлюза нет надёжного признака порядка событий, поэтому порядок прибытия
// считается авторитетным.
func (s *Service) ConfirmPaymentSuccess(ctx context.Context, cb gateway.Callback) error {
	if s.gatewayClient == nil {
		return errors.New("payment gateway is not configured")
	}

	data, err := gateway.ParseCallback(cb)
	if err != nil {
		return err
	}

	result, err := s.gatewayClient.ValidateTransaction(ctx, data.ValidationID)
	if err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}
	if !result.Valid {
		return fmt.Errorf("%w: transaction %s", ErrPaymentValidation, data.TransactionID)
	}

	tranID := result.TransactionID
	if tranID == "" {
		tranID = data.TransactionID
	}
	amount := result.Amount
	if amount == 0 {
		amount = data.Amount
	}

	return s.repo.ApplyPaymentSuccess(ctx, data.OrderID, data.PaymentID, tranID, data.PaymentType, amount)
}

// ConfirmPaymentFailure помечает платёж неуспешным. Статус оплаты заказа
// не меняется, заказ остаётся доступным для повторной оплаты. Обратные
// вызовы по неизвестным платежам поглощаются без ошибки.
func (s *Service) ConfirmPaymentFailure(ctx context.Context, cb gateway.Callback) error {
	data, err := gateway.ParseCallback(cb)
	if err != nil {
		s.logger.Warn("ignore malformed failure callback", zap.Error(err))
		return nil
	}

	return s.repo.MarkPaymentFailed(ctx, data.PaymentID)
}

// GetOrderPayments возвращает платежи по заказу, видимому действующему лицу.
func (s *Service) GetOrderPayments(ctx context.Context, orderID string, actor Actor) ([]model.Payment, error) {
	if _, err := s.GetOrder(ctx, orderID, actor); err != nil {
		return nil, err
	}
	return s.repo.GetPaymentsByOrder(ctx, orderID)
}
