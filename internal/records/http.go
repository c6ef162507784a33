// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package records

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/voxboard/internal/platform/middleware"
	requestutil "github.com/taibuivan/voxboard/internal/platform/request"
	"github.com/taibuivan/voxboard/internal/platform/respond"
	"github.com/taibuivan/voxboard/internal/platform/sec"
	"github.com/taibuivan/voxboard/pkg/pagination"
)

// Handler exposes the record listings. Mount it behind auth.RequireSession.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches GET / (summaries) and GET /{kind} (listing).
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.summaries)
	router.With(middleware.RequireRole(sec.RoleAdmin)).Get("/"+string(KindErrorLogs), handler.listKind(KindErrorLogs))
	router.Get("/{kind}", handler.list)
}

func (handler *Handler) summaries(writer http.ResponseWriter, request *http.Request) {
	summaries, err := handler.service.Summaries(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, summaries)
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	handler.serveList(writer, request, requestutil.Param(request, "kind"))
}

func (handler *Handler) listKind(kind Kind) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		handler.serveList(writer, request, string(kind))
	}
}

func (handler *Handler) serveList(writer http.ResponseWriter, request *http.Request, kind string) {
	paginationParams := pagination.FromRequest(request)

	items, total, err := handler.service.List(request.Context(), kind, paginationParams)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, items, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}
