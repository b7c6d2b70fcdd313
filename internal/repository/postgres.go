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
	"github.com/mmeshcher/rideorders-system/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrOrderNotFound возвращается, если заказ не найден или принадлежит другому пользователю.
// Эти два случая намеренно неразличимы для вызывающего.
var ErrOrderNotFound = errors.New("order not found")

const maxPoolConns = 10

const orderColumns = `id, user_id, pickup_address, dropoff_address,
	pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
	amount, order_type, status, created_at, updated_at`

// PostgresRepository предоставляет доступ к хранилищу заказов в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	cfg.MaxConns = maxPoolConns

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

		// Ретраи полезны для Serialization Failure и Deadlocks,
		// переподключением занимается сам pgxpool.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

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

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.PickupAddress, &o.DropoffAddress,
		&o.PickupLat, &o.PickupLng, &o.DropoffLat, &o.DropoffLng,
		&o.Amount, &o.OrderType, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder сохраняет заказ со статусом pending и возвращает полную запись,
// перечитанную по сгенерированному идентификатору.
func (r *PostgresRepository) CreateOrder(ctx context.Context, userID string, o *model.NewOrder) (*model.Order, error) {
	var id int64
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO orders
			 (user_id, pickup_address, dropoff_address,
			  pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
			  amount, order_type, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			userID, o.PickupAddress, o.DropoffAddress,
			o.PickupLat, o.PickupLng, o.DropoffLat, o.DropoffLng,
			o.Amount, string(o.OrderType), string(model.OrderStatusPending),
		).Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	order, err := scanOrder(row)
	if err != nil {
		// Отсутствие строки сразу после вставки — ошибка хранилища, не 404.
		return nil, fmt.Errorf("read back order %d: %w", id, err)
	}

	return order, nil
}

// listPredicates строит упорядоченный список предикатов фильтрации.
// Предикат владельца всегда первый, предикаты соединяются только через AND.
func listPredicates(userID string, q *model.ListQuery) (string, []interface{}) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	if q.Status != "" {
		args = append(args, q.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.OrderType != "" {
		args = append(args, q.OrderType)
		conds = append(conds, fmt.Sprintf("order_type = $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}

// ListOrders возвращает страницу заказов пользователя и общее число записей,
// подходящих под фильтры до применения пагинации. Страница упорядочена
// по времени создания по убыванию.
func (r *PostgresRepository) ListOrders(ctx context.Context, userID string, q *model.ListQuery) ([]model.Order, int64, error) {
	where, args := listPredicates(userID, q)

	var total int64
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM orders WHERE `+where,
			args...,
		).Scan(&total)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	pageQuery := fmt.Sprintf(
		`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2,
	)
	pageArgs := append(args, q.Limit, q.Offset)

	rows, err := r.pool.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.PickupAddress, &o.DropoffAddress,
			&o.PickupLat, &o.PickupLng, &o.DropoffLat, &o.DropoffLng,
			&o.Amount, &o.OrderType, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return orders, total, nil
}

// GetOrderByID возвращает заказ по идентификатору в пределах заказов пользователя.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, userID string, orderID int64) (*model.Order, error) {
	var order *model.Order
	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`,
			orderID, userID,
		)
		o, scanErr := scanOrder(row)
		if scanErr != nil {
			return scanErr
		}
		order = o
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}
