package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/mscykler/storefront/internal/domain"
	_ "modernc.org/sqlite"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrUnknownProductType = errors.New("unknown product type")
)

type Sort string

const (
	SortDefault   Sort = ""
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortNewest    Sort = "newest"
	SortStockDesc Sort = "stock_desc"
)

// RelatedLimit caps the "other buyers also looked at" result set.
const RelatedLimit = 10

type RepoInterface interface {
	ListProducts(ctx context.Context, typ domain.ProductType, category string, sort Sort) ([]*domain.Product, error)
	GetProduct(ctx context.Context, typ domain.ProductType, id int64) (*domain.Product, error)
	GetRelated(ctx context.Context, typ domain.ProductType, category string, excludeID int64, limit int) ([]*domain.Product, error)
	SearchByName(ctx context.Context, typ domain.ProductType, query string) ([]*domain.Product, error)
	ListCategories(ctx context.Context, typ domain.ProductType) ([]string, error)
	CreateProduct(ctx context.Context, typ domain.ProductType, p *domain.Product) (int64, error)
	UpdateProduct(ctx context.Context, typ domain.ProductType, p *domain.Product) error
	DeleteProduct(ctx context.Context, typ domain.ProductType, id int64) error
	Close() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// tableFor maps a product type to its table. Only the two known types are
// valid; everything else is rejected before touching SQL.
func tableFor(typ domain.ProductType) (string, error) {
	switch typ {
	case domain.ProductTypeBike:
		return "bikes", nil
	case domain.ProductTypePart:
		return "parts", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProductType, typ)
	}
}

// orderClause whitelists sort options; anything unknown falls back to id
// order, matching what the storefront did with an unrecognized sort choice.
func orderClause(sort Sort) string {
	switch sort {
	case SortPriceAsc:
		return "price ASC"
	case SortPriceDesc:
		return "price DESC"
	case SortNewest:
		return "created_at DESC"
	case SortStockDesc:
		return "stock DESC"
	default:
		return "id"
	}
}

const productColumns = "id, name, description, price, stock, category, image_url, specs, created_at"

func (r *Repository) ListProducts(ctx context.Context, typ domain.ProductType, category string, sort Sort) ([]*domain.Product, error) {
	table, err := tableFor(typ)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", productColumns, table)
	var args []interface{}
	if category != "" {
		query += " WHERE category = $1"
		args = append(args, category)
	}
	query += " ORDER BY " + orderClause(sort)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *Repository) GetProduct(ctx context.Context, typ domain.ProductType, id int64) (*domain.Product, error) {
	table, err := tableFor(typ)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", productColumns, table)
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (r *Repository) GetRelated(ctx context.Context, typ domain.ProductType, category string, excludeID int64, limit int) ([]*domain.Product, error) {
	table, err := tableFor(typ)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE category = $1 AND id != $2 LIMIT $3",
		productColumns, table)

	rows, err := r.db.QueryContext(ctx, query, category, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *Repository) SearchByName(ctx context.Context, typ domain.ProductType, search string) ([]*domain.Product, error) {
	table, err := tableFor(typ)
	if err != nil {
		return nil, err
	}

	// sqlite LIKE is case-insensitive for ASCII, which matches the ilike
	// the storefront used.
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE name LIKE $1 ESCAPE '\\' ORDER BY name",
		productColumns, table)

	rows, err := r.db.QueryContext(ctx, query, "%"+escapeLike(search)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *Repository) ListCategories(ctx context.Context, typ domain.ProductType) ([]string, error) {
	table, err := tableFor(typ)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT DISTINCT category FROM %s WHERE category != '' ORDER BY category", table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

func (r *Repository) CreateProduct(ctx context.Context, typ domain.ProductType, p *domain.Product) (int64, error) {
	table, err := tableFor(typ)
	if err != nil {
		return 0, err
	}

	specsJSON, err := marshalSpecs(p.Specs)
	if err != nil {
		return 0, err
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (name, description, price, stock, category, image_url, specs, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, table)

	res, err := r.db.ExecContext(ctx, query,
		p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, specsJSON, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fetch inserted id: %w", err)
	}
	return id, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, typ domain.ProductType, p *domain.Product) error {
	table, err := tableFor(typ)
	if err != nil {
		return err
	}

	specsJSON, err := marshalSpecs(p.Specs)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE %s SET name = $1, description = $2, price = $3, stock = $4, category = $5, image_url = $6, specs = $7
		 WHERE id = $8`, table)

	res, err := r.db.ExecContext(ctx, query,
		p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, specsJSON, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetch affected rows: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, typ domain.ProductType, id int64) error {
	table, err := tableFor(typ)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetch affected rows: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var specs sql.NullString
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Category,
		&p.ImageURL,
		&specs,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if specs.Valid && specs.String != "" {
		if err := json.Unmarshal([]byte(specs.String), &p.Specs); err != nil {
			return nil, fmt.Errorf("failed to decode specs: %w", err)
		}
	}
	return p, nil
}

func scanProducts(rows *sql.Rows) ([]*domain.Product, error) {
	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func marshalSpecs(specs map[string]string) (interface{}, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode specs: %w", err)
	}
	return string(b), nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
