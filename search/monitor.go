package search

import (
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/query"
)

// Monitor provides hooks to observe the search pipeline.
// Implement this interface to track intermediate steps and results during search.
type Monitor interface {
	Start(rawQuery string)
	CacheHit(rawQuery string)
	AfterParse(parsed *query.ParsedQuery)
	AfterStorageFetch(count int)
	AfterEmbedding(dimensions int)
	EmbeddingUnavailable(err error)
	AfterRanking(scored []core.ScoredDocument)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor.
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                       {}
func (n *noopMonitor) CacheHit(_ string)                    {}
func (n *noopMonitor) AfterParse(_ *query.ParsedQuery)      {}
func (n *noopMonitor) AfterStorageFetch(_ int)              {}
func (n *noopMonitor) AfterEmbedding(_ int)                 {}
func (n *noopMonitor) EmbeddingUnavailable(_ error)         {}
func (n *noopMonitor) AfterRanking(_ []core.ScoredDocument) {}
func (n *noopMonitor) Finish(_ *Result)                     {}
