package main

// Exit codes used by the bib CLI
const (
	// ExitSuccess indicates successful completion
	ExitSuccess = 0

	// ExitError indicates a general error
	ExitError = 1

	// ExitConfigError indicates a configuration problem
	ExitConfigError = 2

	// ExitDataError indicates invalid or unparseable input data
	ExitDataError = 3
)
