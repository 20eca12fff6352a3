package utils

// OAuth scopes
const (
	ScopeFull = "https://www.googleapis.com/auth/drive"
	ScopeFile = "https://www.googleapis.com/auth/drive.file"
)

// ScopesSync are requested by the service-account authorizer
var ScopesSync = []string{ScopeFull}

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Reconciliation defaults
const (
	DefaultConcurrency    = 20
	DefaultNoticeMaxChars = 30000
	DefaultNoticeInterval = 500 // milliseconds
	DefaultAppName        = "Github2Drive"
)

// FingerprintProperty is the Drive file property holding the source fingerprint
const FingerprintProperty = "gitHash"

// NoFingerprint is stamped on remote files deleted without a tracked counterpart
const NoFingerprint = "no-hash"

// BadLink is used when Drive returns no webViewLink
const BadLink = "about:blank"

// Schema version
const SchemaVersion = "1.0"

// MimeTypeFolder is the Drive folder MIME type
const MimeTypeFolder = "application/vnd.google-apps.folder"

// Drive list page size
const DriveListPageSize = 1000
