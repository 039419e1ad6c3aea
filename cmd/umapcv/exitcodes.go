package main

// Exit codes shared by all commands.
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (missing config, invalid knobs)
	ExitNotFound      = 3 // Input file or article not found
	ExitDataError     = 4 // Data error (malformed input, validation failure)
	ExitProviderError = 5 // Embedding, reduction or scoring provider failed
	ExitStale         = 6 // Artifact is stale or has partial reductions
)
