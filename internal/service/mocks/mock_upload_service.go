package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"shotbrain/internal/model"
	"shotbrain/internal/service"
)

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Upload(ctx context.Context, originalFilename string, r io.Reader, opt service.UploadOptions) (*model.UploadRecord, error) {
	args := m.Called(ctx, originalFilename, r, opt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadRecord), args.Error(1)
}

func (m *MockUploadService) Recent(ctx context.Context, n int) (*service.UploadListResult, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadListResult), args.Error(1)
}
