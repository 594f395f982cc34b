// Package memorystore keeps credentials for the lifetime of the process only.
package memorystore

import (
	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore/jsonstore"
)

type MemoryStore struct {
	*jsonstore.Store
}

func New() *MemoryStore {
	return &MemoryStore{
		Store: jsonstore.NewUnbacked(),
	}
}
