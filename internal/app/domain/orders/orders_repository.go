package orders

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB is the slice of pgxpool.Pool the repository needs. pgxmock satisfies
// it, which is how the idempotency SQL is tested without a database.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.OrderRecord, error)
	InsertOrder(ctx context.Context, rec *models.OrderRecord) (string, error)
}

type RepositoryImpl struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	query, args, err := psql.Select("id, restaurant_id, name, price, category, available, size, extras").
		From("menu_items").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, query, args...)
	var it models.MenuItem
	var size *string
	err = row.Scan(&it.ID, &it.RestaurantID, &it.Name, &it.Price, &it.Category,
		&it.Available, &size, &it.Extras)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if size != nil {
		it.Size = *size
	}
	return &it, nil
}

func (r *RepositoryImpl) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	query, args, err := psql.Select("id, name, city, cuisine_type, is_open, min_order_pln").
		From("restaurants").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, query, args...)
	var rest models.Restaurant
	err = row.Scan(&rest.ID, &rest.Name, &rest.City, &rest.CuisineType,
		&rest.IsOpen, &rest.MinOrderPLN)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rest, nil
}

// FindByIdempotencyKey looks up a previously committed order. The skip path
// only needs the identifying columns, so items are not rehydrated here.
func (r *RepositoryImpl) FindByIdempotencyKey(ctx context.Context, key string) (*models.OrderRecord, error) {
	query, args, err := psql.Select("id, restaurant_id, restaurant_name, session_id, total_price, total_cents, status, created_at").
		From("orders").
		Where(sq.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, query, args...)
	var rec models.OrderRecord
	err = row.Scan(&rec.ID, &rec.RestaurantID, &rec.RestaurantName, &rec.SessionID,
		&rec.TotalPrice, &rec.TotalCents, &rec.Status, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.IdempotencyKey = key
	return &rec, nil
}

// InsertOrder writes a confirmed order. Deployments that predate the
// idempotency column reject the first statement with undefined_column;
// those get one retry without the column so the order still lands.
func (r *RepositoryImpl) InsertOrder(ctx context.Context, rec *models.OrderRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return "", err
	}

	err = r.exec(ctx, rec, itemsJSON, true)
	if isUndefinedIdempotencyColumn(err) {
		err = r.exec(ctx, rec, itemsJSON, false)
	}
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (r *RepositoryImpl) exec(ctx context.Context, rec *models.OrderRecord, itemsJSON []byte, withKey bool) error {
	columns := []string{"id", "restaurant_id", "restaurant_name", "session_id", "items", "total_price", "total_cents", "status", "created_at"}
	values := []any{rec.ID, rec.RestaurantID, rec.RestaurantName, rec.SessionID, itemsJSON, rec.TotalPrice, rec.TotalCents, rec.Status, rec.CreatedAt}
	if rec.UserID != "" {
		columns = append(columns, "user_id")
		values = append(values, rec.UserID)
	}
	if withKey {
		columns = append(columns, "idempotency_key")
		values = append(values, rec.IdempotencyKey)
	}

	query, args, err := psql.Insert("orders").Columns(columns...).Values(values...).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func isUndefinedIdempotencyColumn(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "42703" && strings.Contains(pgErr.Message, "idempotency_key")
}
