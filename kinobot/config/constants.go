package config

import "time"

// UI
const (
	PendingPerPage = 5

	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	EmbedDefaultColor = 0x2B2D31
)

// Database and performance
const (
	DefaultQueryTimeout     = 30 * time.Second
	BatchQueryTimeout       = 2 * time.Minute
	CommandExecutionTimeout = 10 * time.Second
	SlowCommandThreshold    = 2 * time.Second

	DefaultBatchSize = 200
	MaxImportWorkers = 4
)

// Subscription
const (
	DefaultGrantDays     = 30
	DefaultSweepSchedule = "@daily"
	SweepAccountTimeout  = 15 * time.Second
	SweepRunTimeout      = 30 * time.Minute
	NotificationTimeout  = 10 * time.Second
	MaxReceiptSize       = 20 << 20
	CatalogCacheSize     = 512
)
