package model

import "time"

// Content is a generated piece of marketing content owned by a tenant.
type Content struct {
	ID        string     `db:"id"`
	TenantID  string     `db:"tenant_id"`
	Title     string     `db:"title"`
	Body      string     `db:"body"`
	MediaKeys []string   `db:"media_keys"` // object storage keys of attached assets
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// ContentSnapshot is the resolved form handed to a publish adapter: the
// content row plus short-lived fetchable URLs for its media assets.
type ContentSnapshot struct {
	ID        string   `json:"id"`
	TenantID  string   `json:"tenant_id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	MediaURLs []string `json:"media_urls"`
}
