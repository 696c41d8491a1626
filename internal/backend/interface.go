// Package backend assembles the collaborators a session needs from the
// configured data backend.
package backend

import (
	"context"
	"time"

	"finsight/internal/cache"
	"finsight/internal/ports"
	"finsight/internal/sheets"
)

// Backend groups the collaborators of the dashboard.
type Backend struct {
	Reader    ports.TransactionReader
	Writer    ports.TransactionWriter
	Users     ports.UserDirectory
	Analytics ports.AnalyticsSource
	Exporter  sheets.Exporter
	// Health reports whether the remote services answer; nil for backends
	// without remote dependencies.
	Health func(ctx context.Context) error
	// OutboxEnabled is true when failed writes are queued for replay.
	OutboxEnabled bool
	// Caches should be swept by a cache.Janitor.
	Caches []cache.Cleaner
}

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Remote specific
	TransactionsURL string
	UsersURL        string
	AnalyticsURL    string
	HTTPTimeout     time.Duration
	CacheTTL        time.Duration

	// Outbox, remote only
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Memory specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
