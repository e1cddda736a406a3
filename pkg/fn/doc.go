// Package fn provides a generic result type and composable stages for
// building the backup run as a chain of fallible steps.
package fn
