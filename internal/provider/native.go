package provider

import (
	"context"
	"sort"
	"strconv"

	"saucery/internal/sites"
	"saucery/pkg/types"
)

// The native providers reshape data an engine already returned with the hit
// into proper enrichment fields. They perform no I/O and sit just above the
// generic provider so that genuinely fetched records still win over them.

const nativePriority = 1

// TraceMoeNative turns trace.moe's scene-match payload (episode, timestamp,
// preview media) into an Episodes record.
type TraceMoeNative struct{}

// NewTraceMoeNative creates the trace.moe payload provider.
func NewTraceMoeNative() *TraceMoeNative { return &TraceMoeNative{} }

func (p *TraceMoeNative) Name() string  { return "tracemoe-native" }
func (p *TraceMoeNative) Priority() int { return nativePriority }
func (p *TraceMoeNative) Enabled() bool { return true }

func (p *TraceMoeNative) CanEnrich(hit types.SearchHit) bool {
	if hit.Engine != "tracemoe" {
		return false
	}
	_, hasEp := hit.Metadata["hit_episode"]
	_, hasTS := hit.Metadata["hit_timestamp"]
	return hasEp || hasTS
}

func (p *TraceMoeNative) Enrich(_ context.Context, hit types.SearchHit) (*types.Enrichment, error) {
	ep := &types.Episodes{}
	if n, ok := metaInt(hit, "hit_episode"); ok {
		ep.Hit = n
	}
	if ts, ok := metaFloat(hit, "hit_timestamp"); ok {
		ep.HitTimestamp = ts
	}
	if img, ok := hit.MetaString("hit_image"); ok {
		ep.HitImage = img
	}
	if vid, ok := hit.MetaString("hit_video"); ok {
		ep.HitVideo = vid
	}

	return &types.Enrichment{
		Episodes:  ep,
		Priority:  p.Priority(),
		Enrichers: []string{p.Name()},
	}, nil
}

// SauceNaoNative turns SauceNao's folded external URLs and thumbnail into
// links, mirroring what the backend shows on its own result page.
type SauceNaoNative struct{}

// NewSauceNaoNative creates the SauceNao payload provider.
func NewSauceNaoNative() *SauceNaoNative { return &SauceNaoNative{} }

func (p *SauceNaoNative) Name() string  { return "saucenao-native" }
func (p *SauceNaoNative) Priority() int { return nativePriority }
func (p *SauceNaoNative) Enabled() bool { return true }

func (p *SauceNaoNative) CanEnrich(hit types.SearchHit) bool {
	return hit.Engine == "saucenao" && (len(hit.Metadata) > 0 || hit.Thumbnail != "")
}

func (p *SauceNaoNative) Enrich(_ context.Context, hit types.SearchHit) (*types.Enrichment, error) {
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
		if id, ok := hit.MetaString(k); ok && id != "" {
			links = append(links, types.Link{URL: site.PostURL(id), Name: site.Name})
		}
	}

	e := &types.Enrichment{
		Thumbnail: hit.Thumbnail,
		Links:     links,
		Priority:  p.Priority(),
		Enrichers: []string{p.Name()},
	}
	if e.Empty() {
		return nil, nil
	}
	return e, nil
}

// metaFloat reads a numeric metadata value, accepting both JSON numbers and
// numeric strings.
func metaFloat(hit types.SearchHit, key string) (float64, bool) {
	switch v := hit.Metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func metaInt(hit types.SearchHit, key string) (int, bool) {
	f, ok := metaFloat(hit, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}
