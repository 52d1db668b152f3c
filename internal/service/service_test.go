package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/stitchmart-system/internal/gateway"
	"github.com/mmeshcher/stitchmart-system/internal/lifecycle"
	"github.com/mmeshcher/stitchmart-system/internal/model"
	"github.com/mmeshcher/stitchmart-system/internal/pricing"
	"github.com/mmeshcher/stitchmart-system/internal/repository"
)

type stubRepo struct {
	users map[int64]*model.User

	createdOrder *model.Order
	getOrderResp *model.Order
	getOrderErr  error

	updateStatusCalls int
	updateStatusTo    model.OrderStatus

	createdPayments []*model.Payment

	applySuccessCalls int
	applySuccessTran  string
	applySuccessType  model.PaymentType

	markFailedCalls int
	markFailedID    string
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	for _, u := range s.users {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *stubRepo) CreateRule(ctx context.Context, rule *model.PricingRule) (int64, error) {
	return 1, nil
}

func (s *stubRepo) UpdateRule(ctx context.Context, rule *model.PricingRule) (int, error) {
	return rule.Version + 1, nil
}

func (s *stubRepo) DeactivateRule(ctx context.Context, id int64) error { return nil }

func (s *stubRepo) ListRules(ctx context.Context) ([]model.PricingRule, error) { return nil, nil }

func (s *stubRepo) CreateOrder(ctx context.Context, o *model.Order) error {
	s.createdOrder = o
	return nil
}

func (s *stubRepo) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	if s.getOrderErr != nil {
		return nil, s.getOrderErr
	}
	if s.getOrderResp == nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.getOrderResp, nil
}

func (s *stubRepo) GetOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) GetOrdersByTailor(ctx context.Context, tailorID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, orderID string, machine lifecycle.Machine, to model.OrderStatus, note string) (bool, error) {
	s.updateStatusCalls++
	s.updateStatusTo = to
	return true, nil
}

func (s *stubRepo) CreatePayment(ctx context.Context, p *model.Payment) error {
	s.createdPayments = append(s.createdPayments, p)
	return nil
}

func (s *stubRepo) GetPaymentsByOrder(ctx context.Context, orderID string) ([]model.Payment, error) {
	return nil, nil
}

func (s *stubRepo) ApplyPaymentSuccess(ctx context.Context, orderID, paymentID, tranID string, paymentType model.PaymentType, amount int64) error {
	s.applySuccessCalls++
	s.applySuccessTran = tranID
	s.applySuccessType = paymentType
	return nil
}

func (s *stubRepo) MarkPaymentFailed(ctx context.Context, paymentID string) error {
	s.markFailedCalls++
	s.markFailedID = paymentID
	return nil
}

type stubRules struct{}

func (stubRules) ActiveRule(ctx context.Context, provider model.FabricProvider, garmentType string) (*model.PricingRule, error) {
	if garmentType != "kurti" {
		return nil, pricing.ErrRuleNotFound
	}
	return &model.PricingRule{
		FabricProvider:       provider,
		GarmentType:          garmentType,
		BasePrice:            2000,
		ComplexityMultiplier: 1.0,
		UrgencyMultiplier:    map[string]float64{"normal": 1.0},
		MinPrice:             1000,
		MaxPrice:             5000,
		Version:              2,
	}, nil
}

type stubGateway struct {
	initiateCalls    int
	initiateRedirect string
	initiateErr      error
	lastInitiate     gateway.InitiateRequest

	validateResult *gateway.ValidationResult
	validateErr    error
}

func (g *stubGateway) InitiateTransaction(ctx context.Context, req gateway.InitiateRequest) (string, error) {
	g.initiateCalls++
	g.lastInitiate = req
	return g.initiateRedirect, g.initiateErr
}

func (g *stubGateway) ValidateTransaction(ctx context.Context, validationID string) (*gateway.ValidationResult, error) {
	return g.validateResult, g.validateErr
}

type stubProfile struct {
	calls int
	err   error
}

func (p *stubProfile) SaveSnapshot(ctx context.Context, customerID int64, measurements map[string]float64) (string, error) {
	p.calls++
	return "profile-1", p.err
}

func newTestService(repo *stubRepo, gw *stubGateway, pc ProfileClient) *Service {
	return NewService(repo, pricing.NewEngine(stubRules{}), gw, pc, lifecycle.Machine{}, zap.NewNop())
}

func validPlaceOrderParams() PlaceOrderParams {
	return PlaceOrderParams{
		CustomerID:   1,
		TailorID:     2,
		GarmentType:  "kurti",
		Measurements: map[string]float64{"chest": 92},
		FabricDetails: model.FabricDetails{
			Provider: model.FabricProviderCustomer,
		},
	}
}

func repoWithUsers() *stubRepo {
	return &stubRepo{users: map[int64]*model.User{
		1: {ID: 1, Login: "customer", Role: model.RoleCustomer},
		2: {ID: 2, Login: "tailor", Role: model.RoleTailor},
		3: {ID: 3, Login: "someone", Role: model.RoleCustomer},
	}}
}

func TestPlaceOrder_LocksPriceAndRuleVersion(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	order, err := svc.PlaceOrder(context.Background(), validPlaceOrderParams())
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}

	if order.TotalAmount != 2000 {
		t.Fatalf("total = %d, want 2000", order.TotalAmount)
	}
	if order.RuleVersion != 2 {
		t.Fatalf("rule version = %d, want 2", order.RuleVersion)
	}
	if order.Status != model.OrderStatusPending || order.PaymentStatus != model.PaymentStatusPending {
		t.Fatalf("unexpected initial statuses: %s/%s", order.Status, order.PaymentStatus)
	}
	if repo.createdOrder == nil || repo.createdOrder.ID != order.ID {
		t.Fatalf("order was not persisted")
	}
	if len(order.StatusHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(order.StatusHistory))
	}
}

func TestPlaceOrder_ValidationErrors(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	tests := []struct {
		name   string
		mutate func(*PlaceOrderParams)
	}{
		{name: "missing garment type", mutate: func(p *PlaceOrderParams) { p.GarmentType = "" }},
		{name: "missing measurements", mutate: func(p *PlaceOrderParams) { p.Measurements = nil }},
		{name: "unknown tailor", mutate: func(p *PlaceOrderParams) { p.TailorID = 99 }},
		{name: "tailor is not a tailor", mutate: func(p *PlaceOrderParams) { p.TailorID = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlaceOrderParams()
			tt.mutate(&p)

			_, err := svc.PlaceOrder(context.Background(), p)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestPlaceOrder_RuleNotFound(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	p := validPlaceOrderParams()
	p.GarmentType = "sherwani"

	_, err := svc.PlaceOrder(context.Background(), p)
	if !errors.Is(err, pricing.ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestPlaceOrder_ProfileFailureDoesNotFailOrder(t *testing.T) {
	repo := repoWithUsers()
	pc := &stubProfile{err: errors.New("profile service down")}
	svc := newTestService(repo, &stubGateway{}, pc)

	_, err := svc.PlaceOrder(context.Background(), validPlaceOrderParams())
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}

	deadline := time.After(time.Second)
	for pc.calls == 0 {
		select {
		case <-deadline:
			t.Fatalf("profile snapshot was never attempted")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestGetOrder_CrossTenantLooksLikeNotFound(t *testing.T) {
	repo := repoWithUsers()
	repo.getOrderResp = &model.Order{ID: "order-1", CustomerID: 1, TailorID: 2}
	svc := newTestService(repo, &stubGateway{}, nil)

	tests := []struct {
		name    string
		actor   Actor
		wantErr bool
	}{
		{name: "owner customer", actor: Actor{ID: 1, Role: model.RoleCustomer}},
		{name: "owner tailor", actor: Actor{ID: 2, Role: model.RoleTailor}},
		{name: "admin", actor: Actor{ID: 99, Role: model.RoleAdmin}},
		{name: "other customer", actor: Actor{ID: 3, Role: model.RoleCustomer}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetOrder(context.Background(), "order-1", tt.actor)
			if tt.wantErr {
				if !errors.Is(err, repository.ErrOrderNotFound) {
					t.Fatalf("expected ErrOrderNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetOrder error: %v", err)
			}
		})
	}
}

func TestChangeOrderStatus(t *testing.T) {
	repo := repoWithUsers()
	repo.getOrderResp = &model.Order{ID: "order-1", CustomerID: 1, TailorID: 2, Status: model.OrderStatusPending}
	svc := newTestService(repo, &stubGateway{}, nil)

	err := svc.ChangeOrderStatus(context.Background(), "order-1", Actor{ID: 2, Role: model.RoleTailor}, "Accepted", "taking the job")
	if err != nil {
		t.Fatalf("ChangeOrderStatus error: %v", err)
	}
	if repo.updateStatusCalls != 1 || repo.updateStatusTo != model.OrderStatusAccepted {
		t.Fatalf("unexpected update calls: %d -> %s", repo.updateStatusCalls, repo.updateStatusTo)
	}
}

func TestChangeOrderStatus_ForeignTailor(t *testing.T) {
	repo := repoWithUsers()
	repo.getOrderResp = &model.Order{ID: "order-1", CustomerID: 1, TailorID: 2}
	svc := newTestService(repo, &stubGateway{}, nil)

	err := svc.ChangeOrderStatus(context.Background(), "order-1", Actor{ID: 3, Role: model.RoleTailor}, "Accepted", "")
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if repo.updateStatusCalls != 0 {
		t.Fatalf("status update must not be attempted")
	}
}

func TestChangeOrderStatus_UnknownStatus(t *testing.T) {
	repo := repoWithUsers()
	repo.getOrderResp = &model.Order{ID: "order-1", CustomerID: 1, TailorID: 2}
	svc := newTestService(repo, &stubGateway{}, nil)

	err := svc.ChangeOrderStatus(context.Background(), "order-1", Actor{ID: 2, Role: model.RoleTailor}, "Shipped", "")
	if !errors.Is(err, lifecycle.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestInitiatePayment_Amounts(t *testing.T) {
	tests := []struct {
		name        string
		paymentType model.PaymentType
		total       int64
		wantAmount  int64
	}{
		{name: "full", paymentType: model.PaymentTypeFull, total: 3960, wantAmount: 3960},
		{name: "advance is 40 percent", paymentType: model.PaymentTypeAdvance, total: 3960, wantAmount: 1584},
		{name: "advance rounds", paymentType: model.PaymentTypeAdvance, total: 1501, wantAmount: 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repoWithUsers()
			repo.getOrderResp = &model.Order{ID: "order-1", CustomerID: 1, TailorID: 2, TotalAmount: tt.total}
			gw := &stubGateway{initiateRedirect: "https://pay.example/x"}
			svc := newTestService(repo, gw, nil)

			intent, err := svc.InitiatePayment(context.Background(), "order-1", Actor{ID: 1, Role: model.RoleCustomer}, tt.paymentType, "card")
			if err != nil {
				t.Fatalf("InitiatePayment error: %v", err)
			}
			if intent.Amount != tt.wantAmount {
				t.Fatalf("amount = %d, want %d", intent.Amount, tt.wantAmount)
			}
			if intent.RedirectURL != "https://pay.example/x" {
				t.Fatalf("redirect = %s", intent.RedirectURL)
			}
			if gw.lastInitiate.OrderID != "order-1" || gw.lastInitiate.PaymentID != intent.PaymentID {
				t.Fatalf("correlation fields not passed to gateway: %+v", gw.lastInitiate)
			}
			if len(repo.createdPayments) != 1 || repo.createdPayments[0].Status != model.PaymentRecordPending {
				t.Fatalf("pending payment record not created")
			}
		})
	}
}

func TestInitiatePayment_OrderNotFound(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	_, err := svc.InitiatePayment(context.Background(), "missing", Actor{ID: 1, Role: model.RoleCustomer}, model.PaymentTypeFull, "")
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestInitiatePayment_DeclinedNotRetried(t *testing.T) {
	repo := repoWithUsers()
	repo.getOrderResp = &model.Order{ID: "order-1", CustomerID: 1, TailorID: 2, TotalAmount: 1000}
	gw := &stubGateway{initiateErr: gateway.ErrDeclined}
	svc := newTestService(repo, gw, nil)

	_, err := svc.InitiatePayment(context.Background(), "order-1", Actor{ID: 1, Role: model.RoleCustomer}, model.PaymentTypeFull, "")
	if !errors.Is(err, gateway.ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
	if gw.initiateCalls != 1 {
		t.Fatalf("declined transaction must not be retried, got %d calls", gw.initiateCalls)
	}
	if len(repo.createdPayments) != 0 {
		t.Fatalf("payment record must not be created on decline")
	}
}

func validSuccessCallback() gateway.Callback {
	return gateway.Callback{
		ValueA:       "order-1",
		ValueB:       "full",
		ValueC:       "payment-1",
		TranID:       "tran-1",
		ValidationID: "val-1",
		Status:       "VALID",
		Amount:       3960,
	}
}

func TestConfirmPaymentSuccess(t *testing.T) {
	repo := repoWithUsers()
	gw := &stubGateway{validateResult: &gateway.ValidationResult{Valid: true, TransactionID: "tran-1", Amount: 3960}}
	svc := newTestService(repo, gw, nil)

	if err := svc.ConfirmPaymentSuccess(context.Background(), validSuccessCallback()); err != nil {
		t.Fatalf("ConfirmPaymentSuccess error: %v", err)
	}
	if repo.applySuccessCalls != 1 || repo.applySuccessTran != "tran-1" || repo.applySuccessType != model.PaymentTypeFull {
		t.Fatalf("unexpected apply: calls=%d tran=%s type=%s", repo.applySuccessCalls, repo.applySuccessTran, repo.applySuccessType)
	}
}

func TestConfirmPaymentSuccess_InvalidTransaction(t *testing.T) {
	repo := repoWithUsers()
	gw := &stubGateway{validateResult: &gateway.ValidationResult{Valid: false}}
	svc := newTestService(repo, gw, nil)

	err := svc.ConfirmPaymentSuccess(context.Background(), validSuccessCallback())
	if !errors.Is(err, ErrPaymentValidation) {
		t.Fatalf("expected ErrPaymentValidation, got %v", err)
	}
	if repo.applySuccessCalls != 0 {
		t.Fatalf("order must stay untouched for invalid transaction")
	}
}

func TestConfirmPaymentSuccess_MalformedCallback(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	err := svc.ConfirmPaymentSuccess(context.Background(), gateway.Callback{})
	if !errors.Is(err, gateway.ErrBadCallback) {
		t.Fatalf("expected ErrBadCallback, got %v", err)
	}
}

func TestConfirmPaymentFailure(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	cb := validSuccessCallback()
	if err := svc.ConfirmPaymentFailure(context.Background(), cb); err != nil {
		t.Fatalf("ConfirmPaymentFailure error: %v", err)
	}
	if repo.markFailedCalls != 1 || repo.markFailedID != "payment-1" {
		t.Fatalf("unexpected mark failed: calls=%d id=%s", repo.markFailedCalls, repo.markFailedID)
	}
}

func TestConfirmPaymentFailure_MalformedCallbackAbsorbed(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	if err := svc.ConfirmPaymentFailure(context.Background(), gateway.Callback{}); err != nil {
		t.Fatalf("malformed failure callback must be absorbed, got %v", err)
	}
	if repo.markFailedCalls != 0 {
		t.Fatalf("no payment must be touched for malformed callback")
	}
}

// paymentLedger моделирует контракт платёжного хранилища: внешний
// идентификатор транзакции уникален, завершённые записи неизменяемы,
// порядок прибытия обратных вызовов авторитетен.
type paymentLedger struct {
	*stubRepo
	payments map[string]*model.Payment
	byTran   map[string]*model.Payment
	advanced int
}

func newPaymentLedger(order *model.Order) *paymentLedger {
	repo := repoWithUsers()
	repo.getOrderResp = order
	return &paymentLedger{
		stubRepo: repo,
		payments: map[string]*model.Payment{},
		byTran:   map[string]*model.Payment{},
	}
}

func (l *paymentLedger) CreatePayment(ctx context.Context, p *model.Payment) error {
	cp := *p
	l.payments[p.ID] = &cp
	return nil
}

func (l *paymentLedger) MarkPaymentFailed(ctx context.Context, paymentID string) error {
	if p, ok := l.payments[paymentID]; ok && p.Status == model.PaymentRecordPending {
		p.Status = model.PaymentRecordFailed
	}
	return nil
}

func (l *paymentLedger) ApplyPaymentSuccess(ctx context.Context, orderID, paymentID, tranID string, paymentType model.PaymentType, amount int64) error {
	if p, ok := l.byTran[tranID]; ok && p.Status == model.PaymentRecordCompleted {
		return nil
	}

	p, ok := l.payments[paymentID]
	switch {
	case ok && p.Status == model.PaymentRecordCompleted:
		return nil
	case ok:
		p.Status = model.PaymentRecordCompleted
		p.ExternalTransactionID = tranID
	default:
		p = &model.Payment{
			ID:                    paymentID,
			OrderID:               orderID,
			Amount:                amount,
			Type:                  paymentType,
			Status:                model.PaymentRecordCompleted,
			ExternalTransactionID: tranID,
		}
		l.payments[paymentID] = p
	}
	l.byTran[tranID] = p

	target := model.PaymentStatusPaid
	if paymentType == model.PaymentTypeAdvance {
		target = model.PaymentStatusPartiallyPaid
	}
	changed, err := lifecycle.AdvancePaymentStatus(l.getOrderResp, target)
	if err != nil {
		return err
	}
	if changed {
		l.advanced++
	}
	return nil
}

func newLedgerService(ledger *paymentLedger, gw *stubGateway) *Service {
	return NewService(ledger, pricing.NewEngine(stubRules{}), gw, nil, lifecycle.Machine{}, zap.NewNop())
}

func TestConfirmPaymentSuccess_AfterFailureCallback(t *testing.T) {
	order := &model.Order{ID: "order-1", CustomerID: 1, TailorID: 2, TotalAmount: 1000, PaymentStatus: model.PaymentStatusPending}
	ledger := newPaymentLedger(order)
	gw := &stubGateway{
		initiateRedirect: "https://pay.example/x",
		validateResult:   &gateway.ValidationResult{Valid: true, TransactionID: "tran-1", Amount: 1000},
	}
	svc := newLedgerService(ledger, gw)

	intent, err := svc.InitiatePayment(context.Background(), "order-1", Actor{ID: 1, Role: model.RoleCustomer}, model.PaymentTypeFull, "card")
	if err != nil {
		t.Fatalf("InitiatePayment error: %v", err)
	}

	cb := gateway.Callback{
		ValueA:       "order-1",
		ValueB:       "full",
		ValueC:       intent.PaymentID,
		TranID:       "tran-1",
		ValidationID: "val-1",
		Amount:       1000,
	}

	cb.Status = "FAILED"
	if err := svc.ConfirmPaymentFailure(context.Background(), cb); err != nil {
		t.Fatalf("ConfirmPaymentFailure error: %v", err)
	}
	if got := ledger.payments[intent.PaymentID].Status; got != model.PaymentRecordFailed {
		t.Fatalf("payment status after failure = %s, want %s", got, model.PaymentRecordFailed)
	}

	cb.Status = "VALID"
	if err := svc.ConfirmPaymentSuccess(context.Background(), cb); err != nil {
		t.Fatalf("success after failure must complete the payment, got %v", err)
	}

	p := ledger.payments[intent.PaymentID]
	if p.Status != model.PaymentRecordCompleted || p.ExternalTransactionID != "tran-1" {
		t.Fatalf("payment not completed: status=%s tran=%s", p.Status, p.ExternalTransactionID)
	}
	if order.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("order payment status = %s, want %s", order.PaymentStatus, model.PaymentStatusPaid)
	}
}

func TestConfirmPaymentSuccess_ReplayIsNoOp(t *testing.T) {
	order := &model.Order{ID: "order-1", CustomerID: 1, TailorID: 2, TotalAmount: 3960, PaymentStatus: model.PaymentStatusPending}
	ledger := newPaymentLedger(order)
	gw := &stubGateway{
		validateResult: &gateway.ValidationResult{Valid: true, TransactionID: "tran-1", Amount: 3960},
	}
	svc := newLedgerService(ledger, gw)

	cb := validSuccessCallback()
	for i := 0; i < 2; i++ {
		if err := svc.ConfirmPaymentSuccess(context.Background(), cb); err != nil {
			t.Fatalf("ConfirmPaymentSuccess #%d error: %v", i+1, err)
		}
	}

	if len(ledger.payments) != 1 {
		t.Fatalf("payments recorded = %d, want 1", len(ledger.payments))
	}
	if ledger.advanced != 1 {
		t.Fatalf("order payment status advanced %d times, want 1", ledger.advanced)
	}
	if order.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("order payment status = %s, want %s", order.PaymentStatus, model.PaymentStatusPaid)
	}
}

func TestCreateRule_Validation(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	tests := []struct {
		name string
		rule model.PricingRule
	}{
		{name: "bad provider", rule: model.PricingRule{FabricProvider: "shop", GarmentType: "kurti", MinPrice: 1, MaxPrice: 2}},
		{name: "missing garment type", rule: model.PricingRule{FabricProvider: model.FabricProviderCustomer, MinPrice: 1, MaxPrice: 2}},
		{name: "min above max", rule: model.PricingRule{FabricProvider: model.FabricProviderCustomer, GarmentType: "kurti", MinPrice: 5, MaxPrice: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			if _, err := svc.CreateRule(context.Background(), &rule); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRegisterUser_RoleRestricted(t *testing.T) {
	repo := repoWithUsers()
	svc := newTestService(repo, &stubGateway{}, nil)

	if _, err := svc.RegisterUser(context.Background(), "root", "secret", model.RoleAdmin); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for admin self-registration, got %v", err)
	}
	if _, err := svc.RegisterUser(context.Background(), "new-tailor", "secret", model.RoleTailor); err != nil {
		t.Fatalf("RegisterUser error: %v", err)
	}
}
