// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/stitchmart-system/internal/lifecycle"
	"github.com/mmeshcher/stitchmart-system/internal/model"
	"github.com/mmeshcher/stitchmart-system/internal/pricing"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrRuleExists возвращается при попытке создать второе активное правило для пары.
	ErrRuleExists = errors.New("active pricing rule already exists for this combination")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure и Deadlock
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		// Если это не pg-ошибка, но сетевая
		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя с указанной ролью.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id`,
		login, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, role, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, role, created_at FROM users WHERE id = $1`,
		id,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// ActiveRule возвращает снимок активного правила ценообразования для пары
// (поставщик ткани, тип изделия). Правило читается целиком одной строкой:
// параллельное обновление не может дать частично изменённый снимок.
func (r *PostgresRepository) ActiveRule(ctx context.Context, provider model.FabricProvider, garmentType string) (*model.PricingRule, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, fabric_provider, garment_type, base_price, complexity_multiplier,
		        fabric_pricing, pattern_bonus, special_features, finishing_bonus,
		        urgency_multiplier, min_price, max_price, version, is_active, updated_at
		 FROM pricing_rules
		 WHERE fabric_provider = $1 AND garment_type = $2 AND is_active`,
		string(provider), garmentType,
	)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", pricing.ErrRuleNotFound, provider, garmentType)
		}
		return nil, fmt.Errorf("get active rule: %w", err)
	}

	return rule, nil
}

func scanRule(row pgx.Row) (*model.PricingRule, error) {
	var rule model.PricingRule
	err := row.Scan(
		&rule.ID, &rule.FabricProvider, &rule.GarmentType, &rule.BasePrice,
		&rule.ComplexityMultiplier, &rule.FabricPricing, &rule.PatternBonus,
		&rule.SpecialFeatures, &rule.FinishingBonus, &rule.UrgencyMultiplier,
		&rule.MinPrice, &rule.MaxPrice, &rule.Version, &rule.IsActive, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// CreateRule создаёт активное правило ценообразования.
// Второе активное правило для той же пары отклоняется уникальным индексом.
func (r *PostgresRepository) CreateRule(ctx context.Context, rule *model.PricingRule) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO pricing_rules
		     (fabric_provider, garment_type, base_price, complexity_multiplier,
		      fabric_pricing, pattern_bonus, special_features, finishing_bonus,
		      urgency_multiplier, min_price, max_price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		string(rule.FabricProvider), rule.GarmentType, rule.BasePrice, rule.ComplexityMultiplier,
		rule.FabricPricing, rule.PatternBonus, rule.SpecialFeatures, rule.FinishingBonus,
		rule.UrgencyMultiplier, rule.MinPrice, rule.MaxPrice,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s/%s", ErrRuleExists, rule.FabricProvider, rule.GarmentType)
		}
		return 0, fmt.Errorf("create rule: %w", err)
	}
	return id, nil
}

// UpdateRule обновляет атрибуты правила и увеличивает его версию.
// Возвращает новую версию правила.
func (r *PostgresRepository) UpdateRule(ctx context.Context, rule *model.PricingRule) (int, error) {
	var version int
	err := r.pool.QueryRow(ctx,
		`UPDATE pricing_rules
		 SET base_price = $2, complexity_multiplier = $3, fabric_pricing = $4,
		     pattern_bonus = $5, special_features = $6, finishing_bonus = $7,
		     urgency_multiplier = $8, min_price = $9, max_price = $10,
		     version = version + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING version`,
		rule.ID, rule.BasePrice, rule.ComplexityMultiplier, rule.FabricPricing,
		rule.PatternBonus, rule.SpecialFeatures, rule.FinishingBonus,
		rule.UrgencyMultiplier, rule.MinPrice, rule.MaxPrice,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, pricing.ErrRuleNotFound
		}
		return 0, fmt.Errorf("update rule: %w", err)
	}
	return version, nil
}

// DeactivateRule снимает флаг активности правила. Запись сохраняется:
// исторические заказы остаются привязанными к версии, по которой считались.
func (r *PostgresRepository) DeactivateRule(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE pricing_rules SET is_active = FALSE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return pricing.ErrRuleNotFound
	}
	return nil
}

// ListRules возвращает все правила ценообразования, включая неактивные.
func (r *PostgresRepository) ListRules(ctx context.Context) ([]model.PricingRule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, fabric_provider, garment_type, base_price, complexity_multiplier,
		        fabric_pricing, pattern_bonus, special_features, finishing_bonus,
		        urgency_multiplier, min_price, max_price, version, is_active, updated_at
		 FROM pricing_rules
		 ORDER BY fabric_provider, garment_type, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select rules: %w", err)
	}
	defer rows.Close()

	var res []model.PricingRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		res = append(res, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateOrder сохраняет заказ вместе с начальными записями журнала статусов
// в одной транзакции. Заказ либо создаётся целиком, либо не создаётся вовсе.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var delivery *time.Time
		if !o.ExpectedDeliveryDate.IsZero() {
			delivery = &o.ExpectedDeliveryDate
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO orders
			     (id, customer_id, tailor_id, garment_type, measurements, fabric_details,
			      special_features, urgency, status, estimated_price, total_amount,
			      rule_version, payment_status, expected_delivery_date, special_instructions, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			o.ID, o.CustomerID, o.TailorID, o.GarmentType, o.Measurements, o.FabricDetails,
			o.SpecialFeatures, o.Urgency, string(o.Status), o.EstimatedPrice, o.TotalAmount,
			o.RuleVersion, string(o.PaymentStatus), delivery, o.SpecialInstructions, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, entry := range o.StatusHistory {
			_, err = tx.Exec(ctx,
				`INSERT INTO order_status_history (order_id, status, date, notes) VALUES ($1, $2, $3, $4)`,
				o.ID, string(entry.Status), entry.Date, entry.Notes,
			)
			if err != nil {
				return fmt.Errorf("insert status history: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// GetOrder возвращает заказ вместе с журналом статусов.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, customer_id, tailor_id, garment_type, measurements, fabric_details,
		        special_features, urgency, status, estimated_price, total_amount,
		        rule_version, payment_status, expected_delivery_date, special_instructions, created_at
		 FROM orders
		 WHERE id = $1`,
		id,
	)

	var (
		o        model.Order
		delivery *time.Time
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.TailorID, &o.GarmentType, &o.Measurements, &o.FabricDetails,
		&o.SpecialFeatures, &o.Urgency, &o.Status, &o.EstimatedPrice, &o.TotalAmount,
		&o.RuleVersion, &o.PaymentStatus, &delivery, &o.SpecialInstructions, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if delivery != nil {
		o.ExpectedDeliveryDate = *delivery
	}

	rows, err := r.pool.Query(ctx,
		`SELECT status, date, notes FROM order_status_history WHERE order_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.StatusEntry
		if err := rows.Scan(&entry.Status, &entry.Date, &entry.Notes); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		o.StatusHistory = append(o.StatusHistory, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &o, nil
}

// GetOrdersByCustomer возвращает заказы покупателя без журнала статусов.
func (r *PostgresRepository) GetOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return r.listOrders(ctx, `customer_id`, customerID)
}

// GetOrdersByTailor возвращает заказы портного без журнала статусов.
func (r *PostgresRepository) GetOrdersByTailor(ctx context.Context, tailorID int64) ([]model.Order, error) {
	return r.listOrders(ctx, `tailor_id`, tailorID)
}

func (r *PostgresRepository) listOrders(ctx context.Context, column string, id int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_id, tailor_id, garment_type, status, total_amount,
		        payment_status, expected_delivery_date, created_at
		 FROM orders
		 WHERE `+column+` = $1
		 ORDER BY created_at DESC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		var (
			o        model.Order
			delivery *time.Time
		)
		if err := rows.Scan(
			&o.ID, &o.CustomerID, &o.TailorID, &o.GarmentType, &o.Status,
			&o.TotalAmount, &o.PaymentStatus, &delivery, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if delivery != nil {
			o.ExpectedDeliveryDate = *delivery
		}
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateOrderStatus переводит заказ в новый статус. Строка заказа блокируется
// на время транзакции, поэтому параллельные переходы по одному заказу
// сериализуются. Смена статуса и запись журнала фиксируются вместе.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, orderID string, machine lifecycle.Machine, to model.OrderStatus, note string) (bool, error) {
	var changed bool

	err := r.withRetry(ctx, func() error {
		changed = false

		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var current string
		err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		o := model.Order{Status: model.OrderStatus(current)}
		changed, err = machine.Transition(&o, to, note, time.Now())
		if err != nil {
			return err
		}
		if !changed {
			return tx.Commit(ctx)
		}

		entry := o.StatusHistory[len(o.StatusHistory)-1]

		_, err = tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, string(o.Status))
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO order_status_history (order_id, status, date, notes) VALUES ($1, $2, $3, $4)`,
			orderID, string(entry.Status), entry.Date, entry.Notes,
		)
		if err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})

	return changed, err
}

// CreatePayment сохраняет платёжную запись в состоянии pending.
func (r *PostgresRepository) CreatePayment(ctx context.Context, p *model.Payment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payments (id, order_id, customer_id, amount, payment_type, payment_method, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderID, p.CustomerID, p.Amount, string(p.Type), p.Method, string(p.Status), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetPaymentsByOrder возвращает платежи по заказу.
func (r *PostgresRepository) GetPaymentsByOrder(ctx context.Context, orderID string) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, customer_id, amount, payment_type, payment_method,
		        status, COALESCE(external_transaction_id, ''), created_at
		 FROM payments
		 WHERE order_id = $1
		 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	var res []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.CustomerID, &p.Amount, &p.Type, &p.Method,
			&p.Status, &p.ExternalTransactionID, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ApplyPaymentSuccess фиксирует успешный платёж и продвигает статус оплаты
// заказа. Операция идемпотентна: повтор с тем же внешним идентификатором
// транзакции не создаёт вторую запись и не меняет состояние заказа.
// Успех, пришедший после вызова о неуспехе того же платежа, завершает
// запись: порядок прибытия авторитетен.
// Строка заказа блокируется, поэтому гонка с переходом статуса невозможна.
func (r *PostgresRepository) ApplyPaymentSuccess(ctx context.Context, orderID, paymentID, tranID string, paymentType model.PaymentType, amount int64) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			customerID    int64
			paymentStatus string
		)
		err = tx.QueryRow(ctx,
			`SELECT customer_id, payment_status FROM orders WHERE id = $1 FOR UPDATE`,
			orderID,
		).Scan(&customerID, &paymentStatus)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		// Повторная доставка: транзакция уже учтена.
		var existing string
		err = tx.QueryRow(ctx,
			`SELECT status FROM payments WHERE external_transaction_id = $1`,
			tranID,
		).Scan(&existing)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check transaction: %w", err)
		}
		if err == nil && existing == string(model.PaymentRecordCompleted) {
			return tx.Commit(ctx)
		}

		// Порядок прибытия авторитетен: успех завершает и запись,
		// которую более ранний обратный вызов пометил неуспешной.
		cmdTag, err := tx.Exec(ctx,
			`UPDATE payments
			 SET status = $2, external_transaction_id = $3
			 WHERE id = $1 AND status <> $2`,
			paymentID, string(model.PaymentRecordCompleted), tranID,
		)
		if err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}

		if cmdTag.RowsAffected() == 0 {
			var recorded string
			err = tx.QueryRow(ctx,
				`SELECT status FROM payments WHERE id = $1`,
				paymentID,
			).Scan(&recorded)
			if err == nil {
				// Запись уже завершена ранее доставленным вызовом.
				return tx.Commit(ctx)
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("check payment: %w", err)
			}

			// Платёжной записи нет: обратный вызов пришёл раньше,
			// чем инициация успела её сохранить.
			_, err = tx.Exec(ctx,
				`INSERT INTO payments (id, order_id, customer_id, amount, payment_type, status, external_transaction_id)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 ON CONFLICT (external_transaction_id) WHERE external_transaction_id IS NOT NULL DO NOTHING`,
				paymentID, orderID, customerID, amount, string(paymentType),
				string(model.PaymentRecordCompleted), tranID,
			)
			if err != nil {
				return fmt.Errorf("insert payment: %w", err)
			}
		}

		target := model.PaymentStatusPaid
		if paymentType == model.PaymentTypeAdvance {
			target = model.PaymentStatusPartiallyPaid
		}

		o := model.Order{PaymentStatus: model.PaymentStatus(paymentStatus)}
		statusChanged, err := lifecycle.AdvancePaymentStatus(&o, target)
		if err != nil {
			return err
		}
		if statusChanged {
			_, err = tx.Exec(ctx,
				`UPDATE orders SET payment_status = $2 WHERE id = $1`,
				orderID, string(o.PaymentStatus),
			)
			if err != nil {
				return fmt.Errorf("update payment status: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// MarkPaymentFailed помечает ожидающий платёж неуспешным. Статус оплаты
// заказа не меняется. Отсутствие записи не является ошибкой: обратные вызовы
// по брошенным платежам ожидаемы и поглощаются.
func (r *PostgresRepository) MarkPaymentFailed(ctx context.Context, paymentID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $2 WHERE id = $1 AND status = $3`,
		paymentID, string(model.PaymentRecordFailed), string(model.PaymentRecordPending),
	)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	return nil
}
