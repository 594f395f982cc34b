// Package mockstore provides a testify-based mock of a credentials store.
// It is used to drive session tests through storage failures.
package mockstore

import (
	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore"
)

// StoreMock implements Load, Save and Clear through testify's mock.Mock.
type StoreMock struct {
	mock.Mock
}

// Load mocks reading the persisted pair.
func (m *StoreMock) Load() (credstore.Credentials, bool, error) {
	args := m.Called()
	creds, _ := args.Get(0).(credstore.Credentials)
	return creds, args.Bool(1), args.Error(2)
}

// Save mocks persisting a pair.
func (m *StoreMock) Save(creds credstore.Credentials) error {
	args := m.Called(creds)
	return args.Error(0)
}

// Clear mocks erasing the persisted pair.
func (m *StoreMock) Clear() error {
	args := m.Called()
	return args.Error(0)
}
