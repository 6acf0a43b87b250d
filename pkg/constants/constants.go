// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// Sync protocol constants
const (
	// DefaultPollInterval bounds the staleness of a client's view
	DefaultPollInterval = 3 * time.Second

	// MinPollInterval is the lowest interval a client may poll at
	MinPollInterval = 1 * time.Second

	// ProvisionalDedupeWindow is how close in time a server-confirmed
	// message must be to a provisional one to count as the same send
	ProvisionalDedupeWindow = 2 * time.Minute

	// IdempotencyTokenTTL is how long a replayed append token still
	// returns the original result
	IdempotencyTokenTTL = 10 * time.Minute
)

// Storage and file upload constants
const (
	// PresignedURLExpiry is the validity period for presigned download URLs
	PresignedURLExpiry = 1 * time.Hour

	// MaxAudioSize is the attachment ceiling for audio uploads (10 MiB)
	MaxAudioSize = 10 * 1024 * 1024

	// MaxVideoSize is the attachment ceiling for video uploads (50 MiB)
	MaxVideoSize = 50 * 1024 * 1024

	// MaxImageSize is the attachment ceiling for image uploads (5 MiB)
	MaxImageSize = 5 * 1024 * 1024

	// MaxDocumentSize is the attachment ceiling for document uploads (25 MiB)
	MaxDocumentSize = 25 * 1024 * 1024
)

// Pagination constants
const (
	// DefaultPageSize is the default number of messages per page
	DefaultPageSize = 20

	// MaxPageSize is the maximum number of messages per page
	MaxPageSize = 100

	// MinPageSize is the minimum number of messages per page
	MinPageSize = 1
)

// Message constants
const (
	// MaxMessageLength is the maximum allowed message content length
	MaxMessageLength = 10000

	// MaxAttachmentsPerMessage caps the attachment list on a FILE message
	MaxAttachmentsPerMessage = 10
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute
)

// Unread counter cache constants
const (
	// UnreadCacheTTL bounds how stale a cached unread count may be
	UnreadCacheTTL = 30 * time.Second
)
