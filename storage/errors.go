package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned by the storage layer for missing keys. Modules in
	// storage/badger convert badger.ErrKeyNotFound into this error.
	ErrNotFound = errors.New("key not found")

	ErrAlreadyExists = errors.New("key already exists")
)
