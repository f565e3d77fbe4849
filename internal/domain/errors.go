package domain

import "errors"

var (
	// ErrMalformedEvent marks an event that cannot be turned into a record.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrInvalidSignature is returned for events whose id or signature does not verify.
	ErrInvalidSignature = errors.New("invalid event signature")
	// ErrGoalNotFound is returned when a goal is not in the store.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrSignerUnavailable is returned when server side signing is not configured.
	ErrSignerUnavailable = errors.New("signer is not configured")
	// ErrInvalidDraft is returned for drafts that fail validation.
	ErrInvalidDraft = errors.New("invalid draft")
	// ErrCacheMiss is returned by caches for absent keys.
	ErrCacheMiss = errors.New("cache miss")
	// ErrJobNotFound is returned for unknown publish jobs.
	ErrJobNotFound = errors.New("publish job not found")
)
