package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
)

// Лимиты быстрых поисков по умолчанию.
const (
	DefaultUserSearchLimit  = 10
	DefaultQuickSearchLimit = 20
	DefaultHistoryLimit     = 50
)

type SearchAPI struct {
	c *apiclient.Client
}

// Search — GET /search с фильтрами из params (пустые не передаются).
func (s *SearchAPI) Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	data, err := s.c.Get(ctx, "/search", params.Values())
	if err != nil {
		return nil, err
	}

	return searchResults("api.Search.Search", data)
}

// Advanced — POST /search с параметрами в JSON-теле.
func (s *SearchAPI) Advanced(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	data, err := s.c.Post(ctx, "/search", params)
	if err != nil {
		return nil, err
	}

	return searchResults("api.Search.Advanced", data)
}

func (s *SearchAPI) Users(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	return s.quick(ctx, models.SearchTypeUsers, query, limit, DefaultUserSearchLimit)
}

func (s *SearchAPI) DashboardItems(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	return s.quick(ctx, models.SearchTypeDashboardItems, query, limit, DefaultQuickSearchLimit)
}

func (s *SearchAPI) Messages(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	return s.quick(ctx, models.SearchTypeMessages, query, limit, DefaultQuickSearchLimit)
}

func (s *SearchAPI) Notifications(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	return s.quick(ctx, models.SearchTypeNotifications, query, limit, DefaultQuickSearchLimit)
}

func (s *SearchAPI) ByLocation(ctx context.Context, location, country, city string, limit int) (*models.SearchResponse, error) {
	if limit <= 0 {
		limit = DefaultQuickSearchLimit
	}

	return s.Search(ctx, models.SearchParams{
		Type:     models.SearchTypeLocations,
		Limit:    limit,
		Location: location,
		Country:  country,
		City:     city,
	})
}

func (s *SearchAPI) quick(ctx context.Context, typ, query string, limit, def int) (*models.SearchResponse, error) {
	if limit <= 0 {
		limit = def
	}

	return s.Search(ctx, models.SearchParams{Query: query, Type: typ, Limit: limit})
}

func (s *SearchAPI) History(ctx context.Context, limit int) ([]models.SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	data, err := s.c.Get(ctx, "/search/history", url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		return nil, err
	}

	return decodeList[models.SearchHistoryEntry]("api.Search.History", data, "history", "items")
}

func (s *SearchAPI) ClearHistory(ctx context.Context) error {
	_, err := s.c.Delete(ctx, "/search/history")
	return err
}

func searchResults(op string, data json.RawMessage) (*models.SearchResponse, error) {
	resp, err := models.SearchResultsFrom(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp, nil
}
