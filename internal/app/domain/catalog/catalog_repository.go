package catalog

import (
	"context"
	"errors"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const restaurantColumns = "id, name, aliases, city, cuisine_type, lat, lng, is_open, min_order_pln"
const menuItemColumns = "id, restaurant_id, name, price, category, available, size, extras"

// queryTimeout bounds catalog range scans; a slow database costs one
// turn, not the session lock.
const queryTimeout = 4 * time.Second

type Repository interface {
	ListRestaurants(ctx context.Context) ([]models.Restaurant, error)
	SearchRestaurants(ctx context.Context, city string, cuisines []string) ([]models.Restaurant, error)
	SearchNearby(ctx context.Context, lat, lng, radiusKm float64) ([]models.Restaurant, error)
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	GetMenu(ctx context.Context, restaurantID string, availableOnly bool) ([]models.MenuItem, error)
	SearchMenuItems(ctx context.Context, tokens []string) ([]models.MenuItem, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &RepositoryImpl{db: db}
}

// ListRestaurants returns the whole catalog; used to build the boot index.
func (r *RepositoryImpl) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	query, args, err := psql.Select(restaurantColumns).
		From("restaurants").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryRestaurants(ctx, query, args)
}

// SearchRestaurants filters by city substring and optional cuisine labels.
// Several labels become an IN clause, which is how one spoken word like
// "azjatyckie" fans out to multiple cuisines.
func (r *RepositoryImpl) SearchRestaurants(ctx context.Context, city string, cuisines []string) ([]models.Restaurant, error) {
	qb := psql.Select(restaurantColumns).From("restaurants")
	if city != "" {
		qb = qb.Where(sq.ILike{"city": "%" + city + "%"})
	}
	switch len(cuisines) {
	case 0:
	case 1:
		qb = qb.Where(sq.Eq{"cuisine_type": cuisines[0]})
	default:
		qb = qb.Where(sq.Eq{"cuisine_type": cuisines})
	}

	query, args, err := qb.OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryRestaurants(ctx, query, args)
}

// SearchNearby runs a bounding-box filter around the given point.
func (r *RepositoryImpl) SearchNearby(ctx context.Context, lat, lng, radiusKm float64) ([]models.Restaurant, error) {
	latDelta := radiusKm / 111.0
	lngDelta := radiusKm / (111.0 * math.Cos(lat*math.Pi/180))
	if math.IsNaN(lngDelta) || math.IsInf(lngDelta, 0) {
		lngDelta = latDelta
	}

	query, args, err := psql.Select(restaurantColumns).
		From("restaurants").
		Where(sq.And{
			sq.GtOrEq{"lat": lat - latDelta},
			sq.LtOrEq{"lat": lat + latDelta},
			sq.GtOrEq{"lng": lng - lngDelta},
			sq.LtOrEq{"lng": lng + lngDelta},
		}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryRestaurants(ctx, query, args)
}

func (r *RepositoryImpl) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	query, args, err := psql.Select(restaurantColumns).
		From("restaurants").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, query, args...)
	var rest models.Restaurant
	err = row.Scan(&rest.ID, &rest.Name, &rest.Aliases, &rest.City, &rest.CuisineType,
		&rest.Lat, &rest.Lng, &rest.IsOpen, &rest.MinOrderPLN)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rest, nil
}

// GetMenu returns a restaurant's dishes, optionally only the orderable ones.
func (r *RepositoryImpl) GetMenu(ctx context.Context, restaurantID string, availableOnly bool) ([]models.MenuItem, error) {
	qb := psql.Select(menuItemColumns).
		From("menu_items").
		Where(sq.Eq{"restaurant_id": restaurantID})
	if availableOnly {
		qb = qb.Where(sq.Eq{"available": true})
	}

	query, args, err := qb.OrderBy("category ASC", "name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryMenuItems(ctx, query, args)
}

// SearchMenuItems is the coarse pre-filter for dish resolution: any token
// matching by substring qualifies the row; the resolver ranks afterwards.
func (r *RepositoryImpl) SearchMenuItems(ctx context.Context, tokens []string) ([]models.MenuItem, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	or := make(sq.Or, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		or = append(or, sq.ILike{"name": "%" + tok + "%"})
	}
	if len(or) == 0 {
		return nil, nil
	}

	query, args, err := psql.Select(menuItemColumns).
		From("menu_items").
		Where(sq.Eq{"available": true}).
		Where(or).
		OrderBy("restaurant_id ASC", "name ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryMenuItems(ctx, query, args)
}

func (r *RepositoryImpl) queryRestaurants(ctx context.Context, query string, args []interface{}) ([]models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var restaurants []models.Restaurant
	for rows.Next() {
		var rest models.Restaurant
		err := rows.Scan(
			&rest.ID,
			&rest.Name,
			&rest.Aliases,
			&rest.City,
			&rest.CuisineType,
			&rest.Lat,
			&rest.Lng,
			&rest.IsOpen,
			&rest.MinOrderPLN,
		)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, rest)
	}

	return restaurants, rows.Err()
}

func (r *RepositoryImpl) queryMenuItems(ctx context.Context, query string, args []interface{}) ([]models.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var it models.MenuItem
		var size *string
		err := rows.Scan(
			&it.ID,
			&it.RestaurantID,
			&it.Name,
			&it.Price,
			&it.Category,
			&it.Available,
			&size,
			&it.Extras,
		)
		if err != nil {
			return nil, err
		}
		if size != nil {
			it.Size = *size
		}
		items = append(items, it)
	}

	return items, rows.Err()
}
