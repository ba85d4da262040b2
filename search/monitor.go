package search

import "github.com/poiesic/chunksearch/core"

// SearchMonitor provides hooks to observe the hybrid search process.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(query string)
	AfterVectorSearch(results []*core.SearchResult)
	AfterKeywordSearch(hits int)
	FusionFallback(err error)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.SearchResult) {}
func (n *noopMonitor) AfterKeywordSearch(_ int)                 {}
func (n *noopMonitor) FusionFallback(_ error)                   {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)            {}
