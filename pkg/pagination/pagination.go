// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination parses page/limit query parameters for list endpoints
// and builds the metadata block of the paginated response envelope.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20
	// MaxLimit caps the page size; larger requests are clamped to it.
	MaxLimit = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
)

// Params holds the parsed page and limit from a request's query string.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the SQL OFFSET value derived from [Params.Page] and [Params.Limit].
func (params Params) Offset() int {
	if params.Page <= 1 {
		return 0
	}
	return (params.Page - 1) * params.Limit
}

// Meta is the pagination metadata included in list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta constructs pagination metadata, deriving TotalPages from total and limit.
func NewMeta(page, limit, total int) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// FromRequest parses "page" and "limit" from the query string.
//
// # Clamping
//
// Missing or malformed values use the defaults; a page below 1 becomes
// [DefaultPage] and a limit above [MaxLimit] becomes [MaxLimit].
func FromRequest(request *http.Request) Params {
	query := request.URL.Query()
	page := parseInt(query.Get("page"), DefaultPage)
	limit := parseInt(query.Get("limit"), DefaultLimit)

	if page < 1 {
		page = DefaultPage
	}

	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit}
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
