package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skillexchange/exchange-service/internal/domain"
	"github.com/skillexchange/exchange-service/internal/repository"
	apperrors "github.com/skillexchange/exchange-service/pkg/errors"
	"github.com/skillexchange/exchange-service/pkg/httputil"
)

func TestCreateListingEndpoint_Success(t *testing.T) {
	repos := newTestRepos()
	router := setupRouter(repos)

	repos.listings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Listing")).Return(nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/listings", providerID, map[string]string{
		"title":       "Guitar lessons",
		"description": "One hour per week",
		"category":    "music",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, providerID, data["owner_id"])
	assert.Equal(t, "available", data["status"])
}

func TestCreateListingEndpoint_TitleTooShort(t *testing.T) {
	router := setupRouter(newTestRepos())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/listings", providerID, map[string]string{
		"title": "ab",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCreateListingEndpoint_Unauthorized(t *testing.T) {
	router := setupRouter(newTestRepos())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/listings", "", map[string]string{
		"title": "Guitar lessons",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBrowseListingsEndpoint_Success(t *testing.T) {
	repos := newTestRepos()
	router := setupRouter(repos)

	repos.listings.On("List", mock.Anything, repository.ListingFilter{
		OnlyAvailable: true,
		Page:          1,
		PerPage:       20,
	}).Return([]domain.Listing{*availableListing()}, 1, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/listings", requesterID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp httputil.PaginatedResponse[domain.Listing]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.TotalCount)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, listingID, resp.Data[0].ID)
}

func TestMyListingsEndpoint_Success(t *testing.T) {
	repos := newTestRepos()
	router := setupRouter(repos)

	repos.listings.On("List", mock.Anything, mock.MatchedBy(func(f repository.ListingFilter) bool {
		return f.OwnerID != nil && *f.OwnerID == providerID && !f.OnlyAvailable
	})).Return([]domain.Listing{*availableListing()}, 1, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/listings/mine", providerID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetListingEndpoint_Success(t *testing.T) {
	repos := newTestRepos()
	router := setupRouter(repos)

	repos.listings.On("GetByID", mock.Anything, listingID).Return(availableListing(), nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/listings/"+listingID, requesterID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "Guitar lessons", data["title"])
}

func TestGetListingEndpoint_NotFound(t *testing.T) {
	repos := newTestRepos()
	router := setupRouter(repos)

	repos.listings.On("GetByID", mock.Anything, listingID).Return(nil, apperrors.ErrNotFound)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/listings/"+listingID, requesterID, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestGetListingEndpoint_InvalidUUID(t *testing.T) {
	router := setupRouter(newTestRepos())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/listings/not-a-uuid", requesterID, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
