package domain

import (
	"errors"
	"fmt"
)

// ErrStoreMalformed marks a store whose content failed read-back verification.
var ErrStoreMalformed = errors.New("store content malformed")

// FetchError reports a network or HTTP failure while reaching the listing source.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a single candidate whose fields could not be extracted.
type ParseError struct {
	Link   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse candidate %s: %s: %v", e.Link, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse candidate %s: %s", e.Link, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreOp names the store operation that failed.
type StoreOp string

const (
	StoreRead  StoreOp = "read"
	StoreWrite StoreOp = "write"
)

// StoreError reports an unreadable or unwritable record store.
type StoreError struct {
	Op  StoreOp
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DeliveryError reports a failed notifier call. Nothing is marked notified after it.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("deliver digest: %v", e.Err)
	}
	return fmt.Sprintf("deliver digest via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsFetchError reports whether err carries a FetchError.
func IsFetchError(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

// IsStoreError reports whether err carries a StoreError.
func IsStoreError(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// IsDeliveryError reports whether err carries a DeliveryError.
func IsDeliveryError(err error) bool {
	var target *DeliveryError
	return errors.As(err, &target)
}
