package provider

import (
	"context"
	"sort"

	"saucery/internal/sites"
	"saucery/pkg/types"
)

const genericName = "generic"

// Generic seeds an enrichment straight from the hit itself: every metadata
// key that names a recognized service becomes an external link, and the
// hit's thumbnail is carried along. It performs no I/O and runs at the
// lowest priority so that it fills gaps under every specialized provider.
type Generic struct{}

// NewGeneric creates the metadata-seeded provider.
func NewGeneric() *Generic { return &Generic{} }

func (g *Generic) Name() string  { return genericName }
func (g *Generic) Priority() int { return 0 }
func (g *Generic) Enabled() bool { return true }

func (g *Generic) CanEnrich(hit types.SearchHit) bool {
	return len(hit.Metadata) > 0 || hit.Thumbnail != ""
}

func (g *Generic) Enrich(_ context.Context, hit types.SearchHit) (*types.Enrichment, error) {
	// Metadata is a map; sort keys so link order is deterministic.
	keys := make([]string, 0, len(hit.Metadata))
	for k := range hit.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var links []types.Link
	for _, k := range keys {
		site := sites.FromKey(k)
		if site == nil {
			continue
		}
		id, ok := hit.MetaString(k)
		if !ok || id == "" {
			continue
		}
		links = append(links, types.Link{URL: site.PostURL(id), Name: site.Name})
	}

	e := &types.Enrichment{
		Thumbnail: hit.Thumbnail,
		Priority:  g.Priority(),
		Enrichers: []string{genericName},
	}
	if len(links) > 0 {
		e.MainLink = &links[0]
		e.Links = links[1:]
	}
	if e.Empty() {
		return nil, nil
	}
	return e, nil
}
