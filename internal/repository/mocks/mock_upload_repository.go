package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"shotbrain/internal/model"
	"shotbrain/internal/repository"
)

type MockUploadRepository struct {
	mock.Mock
}

func (m *MockUploadRepository) Append(ctx context.Context, rec *model.UploadRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockUploadRepository) ListRecent(ctx context.Context, n int) (*repository.PageResult[model.UploadRecord], error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.UploadRecord]), args.Error(1)
}
