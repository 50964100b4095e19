package domain

import "time"

type Link struct {
	ID        string
	Key       string
	SecretKey string
	TargetURL string
	IsActive  bool
	Clicks    int64
	CreatedAt time.Time
}

type ClickMetric struct {
	ID     string
	LinkID string
	IP     string
	Device string
	Date   string
}
