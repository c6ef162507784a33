// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package records

import (
	"context"
	"log/slog"

	"github.com/taibuivan/voxboard/internal/platform/apperr"
	"github.com/taibuivan/voxboard/internal/platform/ctxutil"
	"github.com/taibuivan/voxboard/internal/platform/sec"
	"github.com/taibuivan/voxboard/pkg/pagination"
)

// Service authorizes and serves record reads.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// requireIdentity returns the gate-approved identity of the request.
func requireIdentity(ctx context.Context) (*sec.Identity, error) {
	identity := ctxutil.GetIdentity(ctx)
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return identity, nil
}

func canRead(identity *sec.Identity, kind Kind) bool {
	return !kind.AdminOnly() || identity.IsAdmin()
}

/*
List returns one page of records of the named kind.

Returns:
  - []*Record, int: The page and the kind's total
  - error: NOT_FOUND for unknown kinds, UNAUTHORIZED/FORBIDDEN, or storage errors
*/
func (service *Service) List(ctx context.Context, raw string, params pagination.Params) ([]*Record, int, error) {
	kind, found := ParseKind(raw)
	if !found {
		return nil, 0, apperr.NotFound("Record kind")
	}

	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !canRead(identity, kind) {
		return nil, 0, apperr.Forbidden("Insufficient permissions")
	}

	items, total, err := service.repo.ListRecords(ctx, kind, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, err
	}

	service.logger.DebugContext(ctx, "records_listed",
		slog.String("kind", string(kind)),
		slog.String("user_id", identity.ID),
		slog.Int("count", len(items)),
	)
	return items, total, nil
}

// Summaries counts every kind the caller may read, in display order.
func (service *Service) Summaries(ctx context.Context) ([]Summary, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(Kinds))
	for _, kind := range Kinds {
		if !canRead(identity, kind) {
			continue
		}

		count, err := service.repo.CountRecords(ctx, kind)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{Kind: kind, Label: kind.Label(), Count: count})
	}
	return summaries, nil
}
