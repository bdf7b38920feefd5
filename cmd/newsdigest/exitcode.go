package main

import (
	"NewsDigest/internal/domain"
)

const (
	exitOK       = 0
	exitConfig   = 1
	exitStore    = 2
	exitDelivery = 3
)

// exitCode maps a command error to the process status. Fetch failures never
// reach here: commands log them and succeed.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case domain.IsStoreError(err):
		return exitStore
	case domain.IsDeliveryError(err):
		return exitDelivery
	default:
		return exitConfig
	}
}
