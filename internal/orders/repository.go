package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mscykler/storefront/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateSession means an order snapshot already exists for this
	// provider session id.
	ErrDuplicateSession = errors.New("order already exists for session")
)

const (
	EventTypeOrderCreated   = "order.created"
	EventTypeOrderCompleted = "order.completed"
)

// OutboxEvent rows are written in the same transaction as the order change
// they describe and published to Kafka by the poller.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type RepoInterface interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderBySessionID(ctx context.Context, providerSessionID string) (*domain.Order, error)
	CompleteOrder(ctx context.Context, id uuid.UUID) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	Close() error
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// CreateOrder inserts the snapshot and an order.created outbox event in one
// transaction.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	customerJSON, err := json.Marshal(order.Customer)
	if err != nil {
		return fmt.Errorf("failed to marshal order customer: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (id, provider_session_id, cart_session_id, customer, items, total_amount, currency, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.ProviderSessionID,
		order.CartSessionID,
		customerJSON,
		itemsJSON,
		order.TotalAmount,
		order.Currency,
		order.Status)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	if err := insertOutboxEvent(ctx, tx, order, EventTypeOrderCreated); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderBySessionID(ctx context.Context, providerSessionID string) (*domain.Order, error) {
	query := `SELECT id, provider_session_id, cart_session_id, customer, items, total_amount, currency, status, created_at, updated_at
	          FROM orders WHERE provider_session_id = $1`

	var order domain.Order
	var itemsJSON, customerJSON []byte
	err := r.db.QueryRowContext(ctx, query, providerSessionID).Scan(
		&order.ID,
		&order.ProviderSessionID,
		&order.CartSessionID,
		&customerJSON,
		&itemsJSON,
		&order.TotalAmount,
		&order.Currency,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by session id: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(customerJSON, &order.Customer); err != nil {
		return nil, fmt.Errorf("unmarshal order customer: %w", err)
	}

	return &order, nil
}

// CompleteOrder flips the status and queues an order.completed event so
// downstream consumers see the paid order.
func (r *Repository) CompleteOrder(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status != $1`,
		domain.OrderStatusCompleted, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetch affected rows: %w", err)
	}
	if affected == 0 {
		// Already completed or unknown, either way nothing to publish.
		return nil
	}

	order, err := getOrderByIDTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := insertOutboxEvent(ctx, tx, order, EventTypeOrderCompleted); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM order_outbox WHERE NOT processed ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE order_outbox SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func getOrderByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, provider_session_id, cart_session_id, customer, items, total_amount, currency, status, created_at, updated_at
	          FROM orders WHERE id = $1`

	var order domain.Order
	var itemsJSON, customerJSON []byte
	err := tx.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.ProviderSessionID,
		&order.CartSessionID,
		&customerJSON,
		&itemsJSON,
		&order.TotalAmount,
		&order.Currency,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(customerJSON, &order.Customer); err != nil {
		return nil, fmt.Errorf("unmarshal order customer: %w", err)
	}
	return &order, nil
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, order *domain.Order, eventType string) error {
	payload := map[string]interface{}{
		"order_id":            order.ID,
		"provider_session_id": order.ProviderSessionID,
		"cart_session_id":     order.CartSessionID,
		"items":               order.Items,
		"total_amount":        order.TotalAmount,
		"currency":            order.Currency,
		"status":              order.Status,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		order.ID.String(), eventType, payloadJSON)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
