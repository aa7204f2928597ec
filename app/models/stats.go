package models

import "time"

// DashboardStats holds the totals shown on the admin dashboard.
type DashboardStats struct {
	Users           int64              `json:"users"`
	Admins          int64              `json:"admins"`
	AccountLinks    int64              `json:"account_links"`
	Campaigns       int64              `json:"campaigns"`
	LinksByPlatform map[Platform]int64 `json:"links_by_platform"`

	ConnectionsLinked map[Platform]int64 `json:"connections_linked"`
	ConnectionsFailed map[Platform]int64 `json:"connections_failed"`
	Generations       map[Platform]int64 `json:"generations"`
	GeneratedAt       time.Time          `json:"generated_at"`
}
