package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, imagePath, languageHint string) (string, error) {
	args := m.Called(ctx, imagePath, languageHint)
	return args.String(0), args.Error(1)
}
