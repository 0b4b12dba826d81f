package orders

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

func testRecord() *models.OrderRecord {
	return &models.OrderRecord{
		RestaurantID:   "r1",
		RestaurantName: "Bar Praha",
		SessionID:      "sess_1739983000000_abc123",
		IdempotencyKey: "deadbeef",
		Items: []models.OrderLine{
			{MenuItemID: "mi-1", Name: "Pad Thai", UnitPriceCents: 3200, Qty: 2},
		},
		TotalPrice: 64.00,
		TotalCents: 6400,
		Status:     StatusConfirmed,
		CreatedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRepositoryInsertOrderWritesIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectExec(`INSERT INTO orders \(id,restaurant_id,restaurant_name,session_id,items,total_price,total_cents,status,created_at,idempotency_key\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := repo.InsertOrder(context.Background(), testRecord())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertOrderRetriesOnLegacySchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectExec(`INSERT INTO orders .*idempotency_key`).
		WillReturnError(&pgconn.PgError{
			Code:    "42703",
			Message: `column "idempotency_key" of relation "orders" does not exist`,
		})
	mock.ExpectExec(`INSERT INTO orders \(id,restaurant_id,restaurant_name,session_id,items,total_price,total_cents,status,created_at\) VALUES`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err = repo.InsertOrder(context.Background(), testRecord())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertOrderPropagatesOtherErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	// A unique violation is not the legacy-schema case and must not retry.
	mock.ExpectExec(`INSERT INTO orders`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "orders_idempotency_key_key"`})

	_, err = repo.InsertOrder(context.Background(), testRecord())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindByIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM orders WHERE idempotency_key = \$1`).
		WithArgs("deadbeef").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "restaurant_id", "restaurant_name", "session_id", "total_price", "total_cents", "status", "created_at",
		}).AddRow("ord-1", "r1", "Bar Praha", "sess_1", 64.00, int64(6400), StatusConfirmed, created))

	rec, err := repo.FindByIdempotencyKey(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", rec.ID)
	assert.Equal(t, "deadbeef", rec.IdempotencyKey)
	assert.Equal(t, int64(6400), rec.TotalCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindByIdempotencyKeyNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM orders WHERE idempotency_key = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.FindByIdempotencyKey(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetMenuItem(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM menu_items WHERE id = \$1`).
		WithArgs("mi-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "restaurant_id", "name", "price", "category", "available", "size", "extras",
		}).AddRow("mi-1", "r1", "Pad Thai", 32.00, "dania główne", true, nil, []string{"ostre"}))

	it, err := repo.GetMenuItem(context.Background(), "mi-1")
	require.NoError(t, err)
	assert.Equal(t, "Pad Thai", it.Name)
	assert.True(t, it.Available)
	assert.Equal(t, []string{"ostre"}, it.Extras)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetMenuItemNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM menu_items WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetMenuItem(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
