package eutils

import (
	"time"

	"github.com/henrybloomingdale/scapis-dashboard/internal/ncbi"
)

const (
	// DefaultBaseURL is the NCBI E-utilities base URL.
	DefaultBaseURL = ncbi.DefaultBaseURL

	// DefaultBatchSize is how many PMIDs go into one EFetch request.
	DefaultBatchSize = 50
	// DefaultBatchDelay separates consecutive EFetch requests.
	DefaultBatchDelay = 500 * time.Millisecond
	// DefaultRetMax bounds the number of identifiers one search returns.
	DefaultRetMax = 5000
)

// Client is an HTTP client for NCBI E-utilities.
// It embeds ncbi.BaseClient for shared rate limiting, retries, common
// parameters, and response size guards.
type Client struct {
	*ncbi.BaseClient

	// BatchSize and BatchDelay control FetchDetails.
	BatchSize  int
	BatchDelay time.Duration
}

// Option configures a Client (alias for ncbi.Option).
type Option = ncbi.Option

// Re-export ncbi options so callers only need this package.
var (
	WithBaseURL    = ncbi.WithBaseURL
	WithAPIKey     = ncbi.WithAPIKey
	WithHTTPClient = ncbi.WithHTTPClient
	WithRetry      = ncbi.WithRetry
	WithRateLimit  = ncbi.WithRateLimit
	WithLogger     = ncbi.WithLogger
)

// NewClient creates a new E-utilities client with the given options.
func NewClient(opts ...Option) *Client {
	return NewClientWithBase(ncbi.NewBaseClient(opts...))
}

// NewClientWithBase creates a new E-utilities client using an existing base
// client, sharing its rate limiter with other callers.
func NewClientWithBase(base *ncbi.BaseClient) *Client {
	return &Client{
		BaseClient: base,
		BatchSize:  DefaultBatchSize,
		BatchDelay: DefaultBatchDelay,
	}
}
