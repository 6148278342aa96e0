package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/db"
)

const (
	pgUniqueViolation = "23505"

	productColumns = "id, name, description, price, category, stock, is_active, created_at, updated_at"
)

var pgSortColumns = map[SortField]string{
	SortFieldName:      "name",
	SortFieldPrice:     "price",
	SortFieldStock:     "stock",
	SortFieldCategory:  "category",
	SortFieldCreatedAt: "created_at",
	SortFieldUpdatedAt: "updated_at",
}

type pgProductRepository struct {
	db db.DB
}

func NewPgProductRepository(db db.DB) ProductRepository {
	return &pgProductRepository{db: db}
}

func parseUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q: %w", ErrInvalidID, id, err)
	}
	return parsed, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r pgProductRepository) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	price, err := toNumeric(product.Price)
	if err != nil {
		return model.Product{}, err
	}

	if product.Stock > math.MaxInt32 || product.Stock < math.MinInt32 {
		return model.Product{}, fmt.Errorf("stock out of range: %d", product.Stock)
	}

	now := time.Now().UTC()
	row := r.db.QueryRow(ctx, `
		INSERT INTO products (id, name, description, price, category, stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+productColumns,
		id, product.Name, product.Description, price, string(product.Category),
		int32(product.Stock), product.IsActive, now,
	)

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Product{}, fmt.Errorf("insert product: %w: %w", ErrDuplicateName, err)
		}
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return created, nil
}

func (r pgProductRepository) ListProducts(ctx context.Context, params ListProductsParams) (ListProductsResult, error) {
	where, args := pgListFilter(params)

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return ListProductsResult{}, fmt.Errorf("count products: %w", err)
	}

	column, ok := pgSortColumns[params.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if params.SortOrder == SortOrderAsc {
		direction = "ASC"
	}

	args = append(args, params.Limit, params.Skip())
	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		productColumns, where, column, direction, direction, len(args)-1, len(args))

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return ListProductsResult{}, err
	}

	return ListProductsResult{Products: products, Total: total}, nil
}

func (r pgProductRepository) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
}

func (r pgProductRepository) GetProductByID(ctx context.Context, id string) (model.Product, error) {
	productID, err := parseUUID(id)
	if err != nil {
		return model.Product{}, err
	}

	return r.queryOne(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", productID)
}

func (r pgProductRepository) GetProductByName(ctx context.Context, name string) (model.Product, error) {
	return r.queryOne(ctx, "SELECT "+productColumns+" FROM products WHERE lower(name) = lower($1)", name)
}

func (r pgProductRepository) UpdateProduct(ctx context.Context, id string, params UpdateProductParams) (model.Product, error) {
	productID, err := parseUUID(id)
	if err != nil {
		return model.Product{}, err
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		set("name", *params.Name)
	}
	if params.Description != nil {
		set("description", *params.Description)
	}
	if params.Price != nil {
		price, err := toNumeric(*params.Price)
		if err != nil {
			return model.Product{}, err
		}
		set("price", price)
	}
	if params.Category != nil {
		set("category", string(*params.Category))
	}
	if params.Stock != nil {
		set("stock", *params.Stock)
	}
	set("updated_at", time.Now().UTC())

	args = append(args, productID)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), productColumns)

	product, err := r.queryOne(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Product{}, fmt.Errorf("update product: %w: %w", ErrDuplicateName, err)
		}
		return model.Product{}, err
	}

	return product, nil
}

func (r pgProductRepository) SoftDeleteProduct(ctx context.Context, id string) (model.Product, error) {
	productID, err := parseUUID(id)
	if err != nil {
		return model.Product{}, err
	}

	return r.queryOne(ctx, `
		UPDATE products SET is_active = FALSE, updated_at = $2
		WHERE id = $1
		RETURNING `+productColumns,
		productID, time.Now().UTC(),
	)
}

func (r pgProductRepository) HardDeleteProduct(ctx context.Context, id string) error {
	productID, err := parseUUID(id)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, "DELETE FROM products WHERE id = $1", productID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete product %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r pgProductRepository) ListProductsByCategory(ctx context.Context, category model.Category) ([]model.Product, error) {
	return r.query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE category = $1 AND is_active
		ORDER BY lower(name)`,
		string(category),
	)
}

func (r pgProductRepository) ListLowStockProducts(ctx context.Context, threshold int) ([]model.Product, error) {
	return r.query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE is_active AND stock <= $1
		ORDER BY stock ASC, lower(name) ASC`,
		threshold,
	)
}

func (r pgProductRepository) IncrementStock(ctx context.Context, id string, delta int) (model.Product, error) {
	productID, err := parseUUID(id)
	if err != nil {
		return model.Product{}, err
	}
	if delta < -MaxStock || delta > MaxStock {
		return model.Product{}, r.incrementFailure(ctx, productID, id, delta)
	}

	product, err := r.queryOne(ctx, `
		UPDATE products SET stock = (stock::bigint + $2::bigint)::integer, updated_at = $3
		WHERE id = $1 AND stock::bigint + $2::bigint BETWEEN 0 AND $4::bigint
		RETURNING `+productColumns,
		productID, int64(delta), time.Now().UTC(), int64(MaxStock),
	)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return product, err
	}

	return model.Product{}, r.incrementFailure(ctx, productID, id, delta)
}

// incrementFailure tells a missing product from a stock bound.
func (r pgProductRepository) incrementFailure(ctx context.Context, productID uuid.UUID, id string, delta int) error {
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", productID).Scan(&exists); err != nil {
		return fmt.Errorf("check product exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("increment stock %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("increment stock %s by %d: %w", id, delta, stockBoundErr(delta))
}

func (r pgProductRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	var exclude *uuid.UUID
	if excludeID != "" {
		productID, err := parseUUID(excludeID)
		if err != nil {
			return false, err
		}
		exclude = &productID
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM products
			WHERE lower(name) = lower($1) AND ($2::uuid IS NULL OR id <> $2)
		)`,
		name, exclude,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product name exists: %w", err)
	}

	return exists, nil
}

func (r pgProductRepository) queryOne(ctx context.Context, query string, args ...any) (model.Product, error) {
	product, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, fmt.Errorf("query product: %w", ErrNotFound)
		}
		return model.Product{}, fmt.Errorf("query product: %w", err)
	}

	return product, nil
}

func (r pgProductRepository) query(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		id       uuid.UUID
		price    pgtype.Numeric
		category string
		stock    int32
		product  model.Product
	)

	if err := row.Scan(
		&id,
		&product.Name,
		&product.Description,
		&price,
		&category,
		&stock,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return model.Product{}, err
	}

	priceValue, err := price.Float64Value()
	if err != nil {
		return model.Product{}, fmt.Errorf("convert price to float64: %w", err)
	}

	product.ID = id.String()
	product.Price = priceValue.Float64
	product.Category = model.Category(category)
	product.Stock = int(stock)

	return product, nil
}

func toNumeric(v float64) (pgtype.Numeric, error) {
	var price pgtype.Numeric
	if err := price.Scan(strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("scan price: %w", err)
	}
	return price, nil
}

// pgListFilter builds the WHERE clause shared by the count and page queries.
func pgListFilter(params ListProductsParams) (string, []any) {
	conds := make([]string, 0, 5)
	args := make([]any, 0, 5)
	add := func(format string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if params.Category != nil {
		add("category = $%d", string(*params.Category))
	}
	if params.IsActive != nil {
		add("is_active = $%d", *params.IsActive)
	}
	if params.MinPrice != nil {
		add("price >= $%d", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		add("price <= $%d", *params.MaxPrice)
	}
	if params.Search != "" {
		args = append(args, "%"+escapeLike(params.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
