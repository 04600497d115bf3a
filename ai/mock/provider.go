package mock

import "github.com/poiesic/scandex/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder *MockEmbedder

	// Loaded controls the IsLoaded report. Defaults to true.
	Loaded bool
}

var _ ai.AIProvider = (*MockProvider)(nil)

// NewMockProvider creates a provider wrapping a deterministic mock embedder.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		Loaded:   true,
	}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// GetMockEmbedder returns the concrete mock for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// IsLoaded reports the configured Loaded flag.
func (p *MockProvider) IsLoaded() bool {
	return p.Loaded
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
