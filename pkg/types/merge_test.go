package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_Empty(t *testing.T) {
	assert.Nil(t, Merge(nil))
	assert.Nil(t, Merge([]Enrichment{}))
}

func TestMerge_SingleElementUnchanged(t *testing.T) {
	in := Enrichment{
		Title:     &Title{English: "Cowboy Bebop"},
		Year:      1998,
		Tags:      []string{"space", "bounty hunter"},
		Priority:  10,
		Enrichers: []string{"anilist"},
	}

	got := Merge([]Enrichment{in})
	require.NotNil(t, got)
	assert.Equal(t, in, *got)
}

func TestMerge_FillsAbsentFields(t *testing.T) {
	a := Enrichment{
		Priority:  1,
		Tags:      []string{"x"},
		Enrichers: []string{"tracemoe"},
	}
	b := Enrichment{
		Priority:  5,
		Title:     &Title{English: "T"},
		Tags:      []string{"y"},
		Enrichers: []string{"gelbooru"},
	}

	got := Merge([]Enrichment{a, b})
	require.NotNil(t, got)

	require.NotNil(t, got.Title)
	assert.Equal(t, "T", got.Title.English)
	assert.ElementsMatch(t, []string{"x", "y"}, got.Tags)
	assert.ElementsMatch(t, []string{"tracemoe", "gelbooru"}, got.Enrichers)
}

func TestMerge_PresentFieldIsNeverOverwritten(t *testing.T) {
	a := Enrichment{Priority: 1, Title: &Title{English: "Keep"}}
	b := Enrichment{Priority: 5, Title: &Title{English: "Override"}}

	got := Merge([]Enrichment{a, b})
	require.NotNil(t, got)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Keep", got.Title.English)

	// Order of the input slice must not matter, only priority.
	got = Merge([]Enrichment{b, a})
	require.NotNil(t, got)
	assert.Equal(t, "Keep", got.Title.English)
}

func TestMerge_PriorityOrderIsStable(t *testing.T) {
	// Equal priorities resolve by input order: first-applied wins.
	a := Enrichment{Priority: 5, Thumbnail: "first"}
	b := Enrichment{Priority: 5, Thumbnail: "second"}

	got := Merge([]Enrichment{a, b})
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Thumbnail)
}

func TestMerge_SetsAreUnioned(t *testing.T) {
	a := Enrichment{
		Priority:   0,
		Tags:       []string{"tag1", "shared"},
		Artists:    []string{"artist1"},
		Characters: []string{"char1"},
		Enrichers:  []string{"generic"},
	}
	b := Enrichment{
		Priority:   10,
		Tags:       []string{"shared", "tag2"},
		Artists:    []string{"artist2"},
		Characters: []string{"char1", "char2"},
		Enrichers:  []string{"danbooru"},
	}

	got := Merge([]Enrichment{a, b})
	require.NotNil(t, got)
	assert.Equal(t, []string{"tag1", "shared", "tag2"}, got.Tags)
	assert.Equal(t, []string{"artist1", "artist2"}, got.Artists)
	assert.Equal(t, []string{"char1", "char2"}, got.Characters)
	assert.Equal(t, []string{"generic", "danbooru"}, got.Enrichers)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	a := Enrichment{Priority: 0, Tags: []string{"a"}}
	b := Enrichment{Priority: 5, Tags: []string{"b"}}
	in := []Enrichment{b, a}

	_ = Merge(in)

	assert.Equal(t, []string{"b"}, in[0].Tags)
	assert.Equal(t, []string{"a"}, in[1].Tags)
	assert.Equal(t, 5, in[0].Priority)
}

func TestMerge_GenericSeedsSpecializedEnriches(t *testing.T) {
	// The generic provider (priority 0) seeds link and thumbnail defaults;
	// a specialized provider (priority 10) fills what is still missing.
	generic := Enrichment{
		Priority:  0,
		Thumbnail: "https://thumbs.example/1.jpg",
		MainLink:  &Link{URL: "https://danbooru.donmai.us/posts/1", Name: "Danbooru"},
		Enrichers: []string{"generic"},
	}
	anilist := Enrichment{
		Priority:  10,
		Title:     &Title{Romaji: "Shingeki no Kyojin"},
		Year:      2013,
		Status:    StatusCompleted,
		Thumbnail: "https://anilist.example/cover.png",
		Enrichers: []string{"anilist"},
	}

	got := Merge([]Enrichment{anilist, generic})
	require.NotNil(t, got)
	assert.Equal(t, "https://thumbs.example/1.jpg", got.Thumbnail)
	require.NotNil(t, got.MainLink)
	assert.Equal(t, "Danbooru", got.MainLink.Name)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Shingeki no Kyojin", got.Title.Romaji)
	assert.Equal(t, 2013, got.Year)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, []string{"generic", "anilist"}, got.Enrichers)
}

func TestEnrichment_Empty(t *testing.T) {
	e := Enrichment{Priority: 3, Enrichers: []string{"p"}}
	assert.True(t, e.Empty())

	e.Thumbnail = "https://example.com/t.jpg"
	assert.False(t, e.Empty())
}
