package gateway

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/stitchmart-system/internal/model"
)

// ErrBadCallback возвращается для обратного вызова с неполными
// или противоречивыми полями.
var ErrBadCallback = errors.New("malformed gateway callback")

// Callback — позиционный формат обратного вызова шлюза.
// Поля value_a/value_b/value_c шлюз возвращает в том виде,
// в каком они были переданы при инициации транзакции.
type Callback struct {
	ValueA       string `json:"value_a"`
	ValueB       string `json:"value_b"`
	ValueC       string `json:"value_c"`
	TranID       string `json:"tran_id"`
	ValidationID string `json:"val_id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
}

// CallbackData — именованное представление обратного вызова.
// Позиционный формат шлюза не выходит за границу этого пакета.
type CallbackData struct {
	OrderID       string
	PaymentType   model.PaymentType
	PaymentID     string
	TransactionID string
	ValidationID  string
	Amount        int64
}

// ParseCallback преобразует позиционный формат шлюза в именованную структуру.
func ParseCallback(cb Callback) (CallbackData, error) {
	if cb.ValueA == "" {
		return CallbackData{}, fmt.Errorf("%w: missing order reference", ErrBadCallback)
	}
	if cb.ValueC == "" {
		return CallbackData{}, fmt.Errorf("%w: missing payment reference", ErrBadCallback)
	}

	paymentType := model.PaymentType(cb.ValueB)
	if paymentType != model.PaymentTypeAdvance && paymentType != model.PaymentTypeFull {
		return CallbackData{}, fmt.Errorf("%w: unknown payment type %q", ErrBadCallback, cb.ValueB)
	}

	return CallbackData{
		OrderID:       cb.ValueA,
		PaymentType:   paymentType,
		PaymentID:     cb.ValueC,
		TransactionID: cb.TranID,
		ValidationID:  cb.ValidationID,
		Amount:        cb.Amount,
	}, nil
}
