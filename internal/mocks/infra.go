package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-settlement/internal/domain"
)

type MockSettlementLock struct {
	mock.Mock
	Released int
}

// Acquire returns a release func that counts calls when the mock grants the lock
func (m *MockSettlementLock) Acquire(ctx context.Context, paymentID uuid.UUID) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, paymentID)
	ok := args.Bool(0)
	if !ok || args.Error(1) != nil {
		return nil, ok, args.Error(1)
	}
	return func(context.Context) error {
		m.Released++
		return nil
	}, true, nil
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Upload(ctx context.Context, owner string, doc domain.Document) (string, error) {
	args := m.Called(ctx, owner, doc)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) Close() error {
	return nil
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, phone, message string) error {
	args := m.Called(ctx, phone, message)
	return args.Error(0)
}
