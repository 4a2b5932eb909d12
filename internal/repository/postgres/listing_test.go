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

func newTestListingRepo(t *testing.T) (*ListingRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewListingRepository(mock)
	return repo, mock
}

func sampleListing() *domain.Listing {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Listing{
		ID:          "listing-001",
		OwnerID:     "user-prov",
		Title:       "Guitar lessons",
		Description: "One hour per week, beginner friendly",
		Category:    "music",
		Status:      domain.ListingStatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func listingRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "owner_id", "title", "description", "category", "status",
		"created_at", "updated_at", "total_count",
	})
}

// --- Create Tests ---

func TestListingRepository_Create_Success(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	l := sampleListing()

	mock.ExpectExec("INSERT INTO listings").
		WithArgs(l.ID, l.OwnerID, l.Title, l.Description, l.Category, l.Status, l.CreatedAt, l.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), l)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_Create_ExecError(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	l := sampleListing()

	mock.ExpectExec("INSERT INTO listings").
		WithArgs(l.ID, l.OwnerID, l.Title, l.Description, l.Category, l.Status, l.CreatedAt, l.UpdatedAt).
		WillReturnError(errors.New("duplicate key"))

	err := repo.Create(context.Background(), l)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert listing")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByID Tests ---

func TestListingRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows([]string{
		"id", "owner_id", "title", "description", "category", "status",
		"created_at", "updated_at",
	}).AddRow(
		"listing-001", "user-prov", "Guitar lessons", "Beginner friendly",
		"music", "available", now, now,
	)

	mock.ExpectQuery("SELECT .+ FROM listings").
		WithArgs("listing-001").
		WillReturnRows(rows)

	l, err := repo.GetByID(context.Background(), "listing-001")
	require.NoError(t, err)
	require.NotNil(t, l)

	assert.Equal(t, "listing-001", l.ID)
	assert.Equal(t, "user-prov", l.OwnerID)
	assert.Equal(t, "Guitar lessons", l.Title)
	assert.True(t, l.IsAvailable())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT .+ FROM listings").
		WithArgs("nonexistent-id").
		WillReturnError(pgx.ErrNoRows)

	l, err := repo.GetByID(context.Background(), "nonexistent-id")
	assert.Nil(t, l)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- List Tests ---

func TestListingRepository_List_Success(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := listingRows().
		AddRow("listing-002", "user-002", "Yoga classes", "", "fitness", "available", now, now, 2).
		AddRow("listing-001", "user-prov", "Guitar lessons", "", "music", "exchanged", now, now, 2)

	mock.ExpectQuery("SELECT .+ FROM listings").
		WithArgs(20, 0).
		WillReturnRows(rows)

	filter := repository.ListingFilter{Page: 1, PerPage: 20}
	listings, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, listings, 2)
	assert.Equal(t, "listing-002", listings[0].ID)
	assert.Equal(t, "listing-001", listings[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_List_OnlyAvailable(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := listingRows().
		AddRow("listing-002", "user-002", "Yoga classes", "", "fitness", "available", now, now, 1)

	mock.ExpectQuery("SELECT .+ FROM listings").
		WithArgs(domain.ListingStatusAvailable, 20, 0).
		WillReturnRows(rows)

	filter := repository.ListingFilter{OnlyAvailable: true, Page: 1, PerPage: 20}
	listings, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, listings, 1)
	assert.Equal(t, "available", listings[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_List_WithOwnerFilter(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)
	ownerID := "user-prov"

	rows := listingRows().
		AddRow("listing-001", ownerID, "Guitar lessons", "", "music", "exchanged", now, now, 1)

	mock.ExpectQuery("SELECT .+ FROM listings").
		WithArgs(ownerID, 10, 0).
		WillReturnRows(rows)

	filter := repository.ListingFilter{OwnerID: &ownerID, Page: 1, PerPage: 10}
	listings, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, listings, 1)
	assert.Equal(t, ownerID, listings[0].OwnerID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_List_Empty(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT .+ FROM listings").
		WithArgs(20, 0).
		WillReturnRows(listingRows())

	filter := repository.ListingFilter{Page: 1, PerPage: 20}
	listings, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 0, total)
	assert.Empty(t, listings)
	assert.NotNil(t, listings) // should be [] not nil

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_List_QueryError(t *testing.T) {
	repo, mock := newTestListingRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT .+ FROM listings").
		WithArgs(20, 0).
		WillReturnError(errors.New("database timeout"))

	filter := repository.ListingFilter{Page: 1, PerPage: 20}
	listings, total, err := repo.List(context.Background(), filter)
	assert.Nil(t, listings)
	assert.Equal(t, 0, total)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "list listings")

	assert.NoError(t, mock.ExpectationsWereMet())
}
