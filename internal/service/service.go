// Package service реализует бизнес-логику сервиса ститчмарт.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/stitchmart-system/internal/gateway"
	"github.com/mmeshcher/stitchmart-system/internal/lifecycle"
	"github.com/mmeshcher/stitchmart-system/internal/model"
	"github.com/mmeshcher/stitchmart-system/internal/pricing"
	"github.com/mmeshcher/stitchmart-system/internal/repository"
	"github.com/mmeshcher/stitchmart-system/internal/validation"
)

// ErrValidation возвращается при отклонении заказа из-за некорректных полей.
var (
	ErrValidation = errors.New("order validation failed")
	// ErrPaymentValidation возвращается, когда шлюз не подтвердил транзакцию.
	ErrPaymentValidation = errors.New("payment validation failed")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	CreateRule(ctx context.Context, rule *model.PricingRule) (int64, error)
	UpdateRule(ctx context.Context, rule *model.PricingRule) (int, error)
	DeactivateRule(ctx context.Context, id int64) error
	ListRules(ctx context.Context) ([]model.PricingRule, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
	GetOrdersByTailor(ctx context.Context, tailorID int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, machine lifecycle.Machine, to model.OrderStatus, note string) (bool, error)
	CreatePayment(ctx context.Context, p *model.Payment) error
	GetPaymentsByOrder(ctx context.Context, orderID string) ([]model.Payment, error)
	ApplyPaymentSuccess(ctx context.Context, orderID, paymentID, tranID string, paymentType model.PaymentType, amount int64) error
	MarkPaymentFailed(ctx context.Context, paymentID string) error
}

// Gateway описывает контракт платёжного шлюза.
type Gateway interface {
	InitiateTransaction(ctx context.Context, req gateway.InitiateRequest) (string, error)
	ValidateTransaction(ctx context.Context, validationID string) (*gateway.ValidationResult, error)
}

// ProfileClient описывает контракт сервиса профилей мерок.
type ProfileClient interface {
	SaveSnapshot(ctx context.Context, customerID int64, measurements map[string]float64) (string, error)
}

// Actor — аутентифицированное действующее лицо запроса.
type Actor struct {
	ID   int64
	Role model.Role
}

// Service содержит бизнес-логику сервиса ститчмарт.
type Service struct {
	repo          Repository
	engine        *pricing.Engine
	gatewayClient Gateway
	profileClient ProfileClient
	machine       lifecycle.Machine
	logger        *zap.Logger
}

// NewService создаёт новый сервис с указанными зависимостями.
func NewService(repo Repository, engine *pricing.Engine, gw Gateway, pc ProfileClient, machine lifecycle.Machine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:          repo,
		engine:        engine,
		gatewayClient: gw,
		profileClient: pc,
		machine:       machine,
		logger:        logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя с ролью покупателя или портного.
func (s *Service) RegisterUser(ctx context.Context, login, password string, role model.Role) (int64, error) {
	if role != model.RoleCustomer && role != model.RoleTailor {
		return 0, fmt.Errorf("%w: unsupported role %q", ErrValidation, role)
	}

	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed, role)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, errors.New("invalid credentials")
	}

	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// CalculatePrice рассчитывает стоимость изделия без создания заказа.
func (s *Service) CalculatePrice(ctx context.Context, cfg pricing.Config) (*pricing.Quote, error) {
	return s.engine.Calculate(ctx, cfg)
}

// PlaceOrderParams содержит данные запроса на размещение заказа.
type PlaceOrderParams struct {
	CustomerID           int64
	TailorID             int64
	GarmentType          string
	Measurements         map[string]float64
	FabricDetails        model.FabricDetails
	SpecialFeatures      []string
	Urgency              string
	ExpectedDeliveryDate time.Time
	SpecialInstructions  string
}

// PlaceOrder размещает заказ: проверяет поля, фиксирует цену по активному
// правилу и создаёт заказ в статусе Pending. Цена блокируется в момент
// создания и далее не пересчитывается.
func (s *Service) PlaceOrder(ctx context.Context, p PlaceOrderParams) (*model.Order, error) {
	if issues := validation.OrderIssues(p.GarmentType, p.Measurements, p.FabricDetails); len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(issues, "; "))
	}

	tailor, err := s.repo.GetUserByID(ctx, p.TailorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: tailor %d not found", ErrValidation, p.TailorID)
		}
		return nil, err
	}
	if tailor.Role != model.RoleTailor {
		return nil, fmt.Errorf("%w: user %d is not a tailor", ErrValidation, p.TailorID)
	}

	quote, err := s.engine.Calculate(ctx, pricing.Config{
		GarmentType:     p.GarmentType,
		FabricProvider:  p.FabricDetails.Provider,
		FabricType:      p.FabricDetails.Type,
		Pattern:         p.FabricDetails.Pattern,
		SpecialFeatures: p.SpecialFeatures,
		Finishing:       p.FabricDetails.Finishing,
		Urgency:         p.Urgency,
	})
	if err != nil {
		return nil, err
	}

	order := lifecycle.New(lifecycle.NewOrderParams{
		ID:                   uuid.NewString(),
		CustomerID:           p.CustomerID,
		TailorID:             p.TailorID,
		GarmentType:          p.GarmentType,
		Measurements:         p.Measurements,
		FabricDetails:        p.FabricDetails,
		SpecialFeatures:      p.SpecialFeatures,
		Urgency:              p.Urgency,
		EstimatedPrice:       quote.Breakdown.RawTotal,
		TotalAmount:          quote.TotalPrice,
		RuleVersion:          quote.RuleVersion,
		ExpectedDeliveryDate: p.ExpectedDeliveryDate,
		SpecialInstructions:  p.SpecialInstructions,
		CreatedAt:            time.Now(),
	})

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	// Снимок мерок в профиль — удобство, а не часть заказа.
	// Отказ сервиса профилей не должен ломать размещение.
	if s.profileClient != nil {
		measurements := order.Measurements
		customerID := order.CustomerID
		go func() {
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()

			if _, err := s.profileClient.SaveSnapshot(saveCtx, customerID, measurements); err != nil {
				s.logger.Warn("save measurement snapshot", zap.Error(err), zap.Int64("customerID", customerID))
			}
		}()
	}

	return order, nil
}

// GetOrder возвращает заказ. Чужой заказ неотличим от несуществующего.
func (s *Service) GetOrder(ctx context.Context, orderID string, actor Actor) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != model.RoleAdmin && o.CustomerID != actor.ID && o.TailorID != actor.ID {
		return nil, repository.ErrOrderNotFound
	}

	return o, nil
}

// GetOrdersForActor возвращает заказы, видимые действующему лицу.
func (s *Service) GetOrdersForActor(ctx context.Context, actor Actor) ([]model.Order, error) {
	switch actor.Role {
	case model.RoleTailor:
		return s.repo.GetOrdersByTailor(ctx, actor.ID)
	default:
		return s.repo.GetOrdersByCustomer(ctx, actor.ID)
	}
}

// ChangeOrderStatus переводит заказ в новый статус по запросу портного
// или администратора.
func (s *Service) ChangeOrderStatus(ctx context.Context, orderID string, actor Actor, status, note string) error {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if actor.Role != model.RoleAdmin && o.TailorID != actor.ID {
		return repository.ErrOrderNotFound
	}

	target, err := lifecycle.ParseStatus(status)
	if err != nil {
		return err
	}

	_, err = s.repo.UpdateOrderStatus(ctx, orderID, s.machine, target, note)
	return err
}

// CreateRule создаёт правило ценообразования.
func (s *Service) CreateRule(ctx context.Context, rule *model.PricingRule) (int64, error) {
	if err := validateRule(rule); err != nil {
		return 0, err
	}
	return s.repo.CreateRule(ctx, rule)
}

// UpdateRule обновляет правило и возвращает его новую версию.
func (s *Service) UpdateRule(ctx context.Context, rule *model.PricingRule) (int, error) {
	if err := validateRule(rule); err != nil {
		return 0, err
	}
	return s.repo.UpdateRule(ctx, rule)
}

// DeactivateRule помечает правило неактивным.
func (s *Service) DeactivateRule(ctx context.Context, id int64) error {
	return s.repo.DeactivateRule(ctx, id)
}

// ListRules возвращает все правила ценообразования.
func (s *Service) ListRules(ctx context.Context) ([]model.PricingRule, error) {
	return s.repo.ListRules(ctx)
}

func validateRule(rule *model.PricingRule) error {
	if !rule.FabricProvider.Valid() {
		return fmt.Errorf("%w: unknown fabric provider %q", ErrValidation, rule.FabricProvider)
	}
	if rule.GarmentType == "" {
		return fmt.Errorf("%w: garment type is required", ErrValidation)
	}
	if rule.BasePrice < 0 {
		return fmt.Errorf("%w: base price must not be negative", ErrValidation)
	}
	if rule.MinPrice > rule.MaxPrice {
		return fmt.Errorf("%w: min price exceeds max price", ErrValidation)
	}
	return nil
}
