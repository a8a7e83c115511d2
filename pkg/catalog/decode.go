package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/Sternrassler/catalog-select/pkg/pagination"
)

// listResponse is the upstream list envelope:
//
//	{"pagination": {"total": 126000, "limit": 12, "offset": 24,
//	                "total_pages": 10500, "current_page": 3},
//	 "data": [{"id": 27992, "title": "...", ...}, ...]}
type listResponse struct {
	Pagination struct {
		Total       int `json:"total"`
		Limit       int `json:"limit"`
		Offset      int `json:"offset"`
		TotalPages  int `json:"total_pages"`
		CurrentPage int `json:"current_page"`
	} `json:"pagination"`
	Data []map[string]any `json:"data"`
}

// decodePage turns a list response body into a Page. page and limit are
// what was requested; the upstream's own values win when present.
func decodePage(r io.Reader, page, limit int) (*pagination.Page, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp listResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	p := &pagination.Page{
		Index:      page,
		Limit:      limit,
		TotalPages: resp.Pagination.TotalPages,
		Total:      resp.Pagination.Total,
		Records:    make([]pagination.Record, 0, len(resp.Data)),
	}
	if resp.Pagination.CurrentPage > 0 {
		p.Index = resp.Pagination.CurrentPage
	}
	if resp.Pagination.Limit > 0 {
		p.Limit = resp.Pagination.Limit
	}

	for i, item := range resp.Data {
		id := recordID(item["id"])
		if id == "" {
			return nil, fmt.Errorf("%w: record %d on page %d has no id", ErrMalformedPage, i, p.Index)
		}
		p.Records = append(p.Records, pagination.Record{ID: id, Fields: item})
	}

	return p, nil
}

// recordID renders an upstream id, numeric or string, as a string.
func recordID(v any) string {
	switch id := v.(type) {
	case json.Number:
		return id.String()
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
