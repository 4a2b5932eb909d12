package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillexchange/exchange-service/internal/domain"
	"github.com/skillexchange/exchange-service/internal/repository"
	"github.com/skillexchange/exchange-service/pkg/database"
	apperrors "github.com/skillexchange/exchange-service/pkg/errors"
)

// --- Test Helpers ---

func newTestExchangeRepo(t *testing.T) (*ExchangeRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewExchangeRepository(mock)
	return repo, mock
}

func sampleExchange() *domain.Exchange {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Exchange{
		ID:          "exchange-001",
		RequesterID: "user-req",
		ListingID:   "listing-001",
		Status:      domain.ExchangeStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// --- Create Tests ---

func TestExchangeRepository_Create_Success(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	e := sampleExchange()

	mock.ExpectBegin()

	mock.ExpectQuery("SELECT status FROM listings").
		WithArgs(e.ListingID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("available"))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(e.RequesterID, e.ListingID, domain.ExchangeStatusPending, domain.ExchangeStatusAccepted).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectExec("INSERT INTO exchanges").
		WithArgs(e.ID, e.RequesterID, e.ListingID, e.Status, e.CreatedAt, e.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectCommit()

	err := repo.Create(context.Background(), e)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_Create_ListingNotFound(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	e := sampleExchange()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM listings").
		WithArgs(e.ListingID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), e)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_Create_ListingNotAvailable(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	e := sampleExchange()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM listings").
		WithArgs(e.ListingID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("exchanged"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), e)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_Create_DuplicateRequest(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	e := sampleExchange()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM listings").
		WithArgs(e.ListingID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("available"))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(e.RequesterID, e.ListingID, domain.ExchangeStatusPending, domain.ExchangeStatusAccepted).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), e)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_Create_BeginError(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), sampleExchange())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_Create_InsertError(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	e := sampleExchange()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM listings").
		WithArgs(e.ListingID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("available"))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(e.RequesterID, e.ListingID, domain.ExchangeStatusPending, domain.ExchangeStatusAccepted).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO exchanges").
		WithArgs(e.ID, e.RequesterID, e.ListingID, e.Status, e.CreatedAt, e.UpdatedAt).
		WillReturnError(errors.New("write conflict"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), e)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert exchange")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByID Tests ---

func TestExchangeRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows([]string{
		"id", "requester_id", "listing_id", "status", "created_at", "updated_at",
		"owner_id", "title",
	}).AddRow(
		"exchange-001", "user-req", "listing-001", "accepted", now, now,
		"user-prov", "Guitar lessons",
	)

	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("exchange-001").
		WillReturnRows(rows)

	e, err := repo.GetByID(context.Background(), "exchange-001")
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "exchange-001", e.ID)
	assert.Equal(t, "user-req", e.RequesterID)
	assert.Equal(t, "listing-001", e.ListingID)
	assert.Equal(t, domain.ExchangeStatusAccepted, e.Status)
	assert.Equal(t, "user-prov", e.ProviderID)
	assert.Equal(t, "Guitar lessons", e.ListingTitle)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("nonexistent-id").
		WillReturnError(pgx.ErrNoRows)

	e, err := repo.GetByID(context.Background(), "nonexistent-id")
	assert.Nil(t, e)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_GetByID_ScanError(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("exchange-err").
		WillReturnError(errors.New("connection reset"))

	e, err := repo.GetByID(context.Background(), "exchange-err")
	assert.Nil(t, e)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scan exchange")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- List Tests ---

func exchangeListRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "requester_id", "listing_id", "status", "created_at", "updated_at",
		"owner_id", "title", "total_count",
	})
}

func TestExchangeRepository_List_AllDirections(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := exchangeListRows().
		AddRow("exchange-002", "user-001", "listing-002", "pending", now, now, "user-prov", "Yoga classes", 2).
		AddRow("exchange-001", "user-req", "listing-001", "completed", now, now, "user-001", "Guitar lessons", 2)

	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("user-001", 20, 0).
		WillReturnRows(rows)

	filter := repository.ExchangeFilter{UserID: "user-001", Direction: repository.DirectionAll, Page: 1, PerPage: 20}
	exchanges, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, exchanges, 2)
	assert.Equal(t, "exchange-002", exchanges[0].ID)
	assert.Equal(t, "exchange-001", exchanges[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_List_Incoming(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := exchangeListRows().
		AddRow("exchange-003", "user-other", "listing-003", "pending", now, now, "user-001", "Language tandem", 1)

	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("user-001", 20, 0).
		WillReturnRows(rows)

	filter := repository.ExchangeFilter{UserID: "user-001", Direction: repository.DirectionIncoming, Page: 1, PerPage: 20}
	exchanges, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, exchanges, 1)
	assert.Equal(t, "user-001", exchanges[0].ProviderID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_List_OutgoingWithStatus(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)
	status := domain.ExchangeStatusPending

	rows := exchangeListRows().
		AddRow("exchange-004", "user-001", "listing-004", status, now, now, "user-prov", "Chess coaching", 1)

	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("user-001", status, 10, 0).
		WillReturnRows(rows)

	filter := repository.ExchangeFilter{
		UserID:    "user-001",
		Direction: repository.DirectionOutgoing,
		Status:    &status,
		Page:      1,
		PerPage:   10,
	}
	exchanges, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, exchanges, 1)
	assert.Equal(t, "user-001", exchanges[0].RequesterID)
	assert.Equal(t, status, exchanges[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_List_Empty(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("user-001", 20, 0).
		WillReturnRows(exchangeListRows())

	filter := repository.ExchangeFilter{UserID: "user-001", Page: 1, PerPage: 20}
	exchanges, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 0, total)
	assert.Empty(t, exchanges)
	assert.NotNil(t, exchanges) // should be [] not nil

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_List_SecondPage(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := exchangeListRows().
		AddRow("exchange-011", "user-001", "listing-011", "rejected", now, now, "user-prov", "Woodworking", 11)

	// Page 2 with PerPage 10: limit 10, offset 10.
	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("user-001", 10, 10).
		WillReturnRows(rows)

	filter := repository.ExchangeFilter{UserID: "user-001", Page: 2, PerPage: 10}
	exchanges, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 11, total)
	require.Len(t, exchanges, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_List_QueryError(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT .+ FROM exchanges").
		WithArgs("user-001", 20, 0).
		WillReturnError(errors.New("database timeout"))

	filter := repository.ExchangeFilter{UserID: "user-001", Page: 1, PerPage: 20}
	exchanges, total, err := repo.List(context.Background(), filter)
	assert.Nil(t, exchanges)
	assert.Equal(t, 0, total)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "list exchanges")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- UpdateStatus Tests ---

func TestExchangeRepository_UpdateStatus_Success(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectExec("UPDATE exchanges").
		WithArgs(domain.ExchangeStatusRejected, pgxmock.AnyArg(), "exchange-001", domain.ExchangeStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateStatus(context.Background(), "exchange-001", domain.ExchangeStatusPending, domain.ExchangeStatusRejected)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_UpdateStatus_GuardFails(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	// Status changed underneath the caller: guarded update touches no rows.
	mock.ExpectExec("UPDATE exchanges").
		WithArgs(domain.ExchangeStatusCompleted, pgxmock.AnyArg(), "exchange-001", domain.ExchangeStatusAccepted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateStatus(context.Background(), "exchange-001", domain.ExchangeStatusAccepted, domain.ExchangeStatusCompleted)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_UpdateStatus_ExecError(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectExec("UPDATE exchanges").
		WithArgs(domain.ExchangeStatusRejected, pgxmock.AnyArg(), "exchange-001", domain.ExchangeStatusPending).
		WillReturnError(errors.New("write conflict"))

	err := repo.UpdateStatus(context.Background(), "exchange-001", domain.ExchangeStatusPending, domain.ExchangeStatusRejected)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "update exchange status")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Accept Tests ---

func TestExchangeRepository_Accept_Success(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE exchanges").
		WithArgs(domain.ExchangeStatusAccepted, pgxmock.AnyArg(), "exchange-001", domain.ExchangeStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE listings").
		WithArgs(domain.ListingStatusExchanged, pgxmock.AnyArg(), "listing-001", domain.ListingStatusAvailable).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.Accept(context.Background(), "exchange-001", "listing-001")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_Accept_ExchangeGuardFails(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	// Exchange already left pending: nothing is written and the listing
	// update never runs.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE exchanges").
		WithArgs(domain.ExchangeStatusAccepted, pgxmock.AnyArg(), "exchange-001", domain.ExchangeStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Accept(context.Background(), "exchange-001", "listing-001")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_Accept_ListingGuardFails(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	// Listing no longer available: the exchange update rolls back with it.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE exchanges").
		WithArgs(domain.ExchangeStatusAccepted, pgxmock.AnyArg(), "exchange-001", domain.ExchangeStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE listings").
		WithArgs(domain.ListingStatusExchanged, pgxmock.AnyArg(), "listing-001", domain.ListingStatusAvailable).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Accept(context.Background(), "exchange-001", "listing-001")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepository_Accept_BeginError(t *testing.T) {
	repo, mock := newTestExchangeRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.Accept(context.Background(), "exchange-001", "listing-001")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")

	assert.NoError(t, mock.ExpectationsWereMet())
}
