// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// RecordColumns are shared by every table in the 'dashboard' schema.
type RecordColumns struct {
	ID        string
	CreatedAt string
	Data      string
}

// DashboardRecord is the column set of every dashboard record table.
var DashboardRecord = RecordColumns{
	ID:        "id",
	CreatedAt: "created_at",
	Data:      "data",
}

// Dashboard record tables.
const (
	DashboardCharacters   = "dashboard.characters"
	DashboardDevices      = "dashboard.devices"
	DashboardSessions     = "dashboard.sessions"
	DashboardVoices       = "dashboard.voices"
	DashboardInteractions = "dashboard.interactions"
	DashboardErrorLogs    = "dashboard.error_logs"
)
