package main

// Exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing repo/token settings)
	ExitDataError   = 3 // Data error (invalid DOI, malformed record input)
	ExitConflict    = 4 // Commit conflict after retries; batch not persisted
	ExitTransport   = 5 // Content host unreachable or rejected the request
	ExitAuthError   = 6 // Credential check failed
)
