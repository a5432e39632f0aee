package provider

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"saucery/pkg/types"
)

const (
	memoSize = 512
	memoTTL  = 10 * time.Minute
)

// memo caches resolved enrichments per foreign ID. One search request often
// yields several hits pointing at the same work; the memo collapses those
// into a single backend lookup. A cached nil records a confirmed not-found.
type memo struct {
	lru *expirable.LRU[string, *types.Enrichment]
}

func newMemo() *memo {
	return &memo{
		lru: expirable.NewLRU[string, *types.Enrichment](memoSize, nil, memoTTL),
	}
}

func (m *memo) get(key string) (*types.Enrichment, bool) {
	return m.lru.Get(key)
}

func (m *memo) add(key string, e *types.Enrichment) {
	m.lru.Add(key, e)
}
