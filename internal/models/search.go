package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Типы сущностей глобального поиска.
const (
	SearchTypeUsers          = "users"
	SearchTypeDashboardItems = "dashboard_items"
	SearchTypeMessages       = "messages"
	SearchTypeNotifications  = "notifications"
	SearchTypeLocations      = "locations"
)

// SearchParams — фильтры GET /search; пустые значения не попадают в query.
type SearchParams struct {
	Query    string `json:"query,omitempty"`
	Type     string `json:"type,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	Location string `json:"location,omitempty"`
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
}

// Values кодирует параметры в query-строку в порядке, принятом бэкендом.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}

	set("q", p.Query)
	set("type", p.Type)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	set("location", p.Location)
	set("country", p.Country)
	set("city", p.City)
	set("date_from", p.DateFrom)
	set("date_to", p.DateTo)
	set("category", p.Category)
	set("status", p.Status)
	set("entity_id", p.EntityID)

	return v
}

type SearchResult struct {
	Type     string         `json:"type"`
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Snippet  string         `json:"snippet,omitempty"`
	Score    float64        `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Query   string         `json:"query"`
}

type SearchHistoryEntry struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Type      string `json:"type,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SearchResultsFrom разбирает ответ поиска. Бэкенд отдаёт результаты
// в одной из форм:
//   - {"results": [...], "total": N};
//   - {"type": "search_results", "data": {"results": [...]}};
//   - просто массив результатов.
func SearchResultsFrom(data json.RawMessage) (SearchResponse, error) {
	const op = "models.SearchResultsFrom"

	var list []SearchResult
	if err := json.Unmarshal(data, &list); err == nil {
		return SearchResponse{Results: list, Total: len(list)}, nil
	}

	var obj struct {
		SearchResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return SearchResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if obj.Results == nil && !isNull(obj.Data) {
		return SearchResultsFrom(obj.Data)
	}

	resp := obj.SearchResponse
	if resp.Results == nil {
		resp.Results = []SearchResult{}
	}
	if resp.Total == 0 {
		resp.Total = len(resp.Results)
	}

	return resp, nil
}
