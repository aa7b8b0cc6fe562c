package store

import "errors"

var (
	// ErrNotFound means the durable store holds no configuration blob.
	ErrNotFound = errors.New("store: no persisted configuration")
	// ErrCorrupt means a blob exists but has the wrong size or fails
	// validation. It is never repaired automatically.
	ErrCorrupt = errors.New("store: persisted configuration is corrupt")
	// ErrInvalidParam rejects a mutation before anything changes.
	ErrInvalidParam = errors.New("store: invalid parameter")
	// ErrPersist means the new state is live in memory but the durable
	// write failed.
	ErrPersist = errors.New("store: persist failed")
	// ErrNotInitialized is returned by accessors before Init, Load or
	// ResetToDefault installed a configuration.
	ErrNotInitialized = errors.New("store: not initialized")
)
