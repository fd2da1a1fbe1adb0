package mocks

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
)

// --- MockPreviewGenerator ---

type MockPreviewGenerator struct {
	mu               sync.Mutex
	calls            []string
	placeholders     []string
	shouldFail       bool
	failError        error
	placeholderError error
}

func NewMockPreviewGenerator() *MockPreviewGenerator {
	return &MockPreviewGenerator{}
}

// Generate writes a small fake JPEG marker file so callers can stat it
func (m *MockPreviewGenerator) Generate(ctx context.Context, inputPath, outputPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, inputPath)
	if m.shouldFail {
		inner := m.failError
		if inner == nil {
			inner = fmt.Errorf("decode failed for %s", inputPath)
		}
		return "", &domain.PreviewError{Path: inputPath, Op: "decode", Inner: inner}
	}
	if err := os.WriteFile(outputPath, []byte("\xff\xd8mock\xff\xd9"), 0644); err != nil {
		return "", &domain.PreviewError{Path: outputPath, Op: "encode", Inner: err}
	}
	return outputPath, nil
}

func (m *MockPreviewGenerator) Placeholder(outputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeholders = append(m.placeholders, outputPath)
	if m.placeholderError != nil {
		return m.placeholderError
	}
	return os.WriteFile(outputPath, []byte("\xff\xd8grey\xff\xd9"), 0644)
}

func (m *MockPreviewGenerator) SetShouldFail(fail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = fail
	m.failError = err
}

func (m *MockPreviewGenerator) SetPlaceholderError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeholderError = err
}

func (m *MockPreviewGenerator) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}

func (m *MockPreviewGenerator) GetPlaceholders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.placeholders))
	copy(out, m.placeholders)
	return out
}

func (m *MockPreviewGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.placeholders = nil
	m.shouldFail = false
	m.failError = nil
	m.placeholderError = nil
}

// --- MockLegacySource ---

type MockLegacySource struct {
	Columns []string
	Rows    []domain.LegacyRecord
	Err     error
}

func (m *MockLegacySource) TagColumns(ctx context.Context) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Columns, nil
}

func (m *MockLegacySource) Records(ctx context.Context) ([]domain.LegacyRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rows, nil
}
