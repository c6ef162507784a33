// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package records serves the read-only dashboard record listings.

Every read goes through the session gate first: the service refuses to run
unless the request context carries the identity injected by
auth.RequireSession, and error logs are limited to administrators.
*/
package records

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taibuivan/voxboard/internal/platform/database/schema"
)

// Kind names one dashboard record table.
type Kind string

const (
	KindCharacters   Kind = "characters"
	KindDevices      Kind = "devices"
	KindSessions     Kind = "sessions"
	KindVoices       Kind = "voices"
	KindInteractions Kind = "interactions"
	KindErrorLogs    Kind = "error_logs"
)

// Kinds lists every record kind in dashboard display order.
var Kinds = []Kind{
	KindCharacters,
	KindDevices,
	KindSessions,
	KindVoices,
	KindInteractions,
	KindErrorLogs,
}

var tables = map[Kind]string{
	KindCharacters:   schema.DashboardCharacters,
	KindDevices:      schema.DashboardDevices,
	KindSessions:     schema.DashboardSessions,
	KindVoices:       schema.DashboardVoices,
	KindInteractions: schema.DashboardInteractions,
	KindErrorLogs:    schema.DashboardErrorLogs,
}

var labelCaser = cases.Title(language.English)

// ParseKind returns the kind named by raw, or false if there is none.
func ParseKind(raw string) (Kind, bool) {
	kind := Kind(raw)
	_, found := tables[kind]
	return kind, found
}

// Table is the fully qualified table name backing the kind.
func (kind Kind) Table() string { return tables[kind] }

// AdminOnly reports whether only administrators may read the kind.
func (kind Kind) AdminOnly() bool { return kind == KindErrorLogs }

// Label is the human-readable title ("error_logs" becomes "Error Logs").
func (kind Kind) Label() string {
	return labelCaser.String(strings.ReplaceAll(string(kind), "_", " "))
}

// Record is one row of any dashboard table. The payload is stored as jsonb.
type Record struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// Summary is the per-kind entry of the dashboard overview.
type Summary struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	Count int    `json:"count"`
}
