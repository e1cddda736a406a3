// Package cli turns the command line into a validated Config. It never
// exits the process: failures come back as *UsageError or *ValidationError
// and the caller decides the exit code.
package cli
