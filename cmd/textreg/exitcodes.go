package main

// Exit codes reported by the CLI.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (invalid experiment file, bad flags)
	ExitDataError   = 3 // Data error (malformed corpus, empty input)
	ExitRunFailed   = 4 // Evaluation failed (all folds excluded)
	ExitCancelled   = 5 // Run aborted by signal; partial results may have printed
)
