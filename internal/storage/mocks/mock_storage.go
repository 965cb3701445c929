package mocks

import (
	"context"
	"io"

	"shotbrain/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo); ok {
		return f(ctx, key, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) Create(ctx context.Context, name string, r io.Reader) (storage.ObjectInfo, error) {
	args := m.Called(ctx, name, r)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockContentStore) Path(name string) string {
	args := m.Called(name)
	return args.String(0)
}

func (m *MockContentStore) Rename(ctx context.Context, from, to string) error {
	args := m.Called(ctx, from, to)
	return args.Error(0)
}

func (m *MockContentStore) Remove(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
