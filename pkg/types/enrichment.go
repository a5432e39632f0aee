package types

// Status describes the release state of a matched work.
type Status string

const (
	StatusAnnounced Status = "announced"
	StatusOngoing   Status = "ongoing"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

// Title holds the language variants of a work's title.
type Title struct {
	English string `json:"english,omitempty"`
	Romaji  string `json:"romaji,omitempty"`
	Native  string `json:"native,omitempty"`
}

// Link is an external URL tagged with an optional display name.
type Link struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// Episodes describes where in an anime the hit frame was found.
type Episodes struct {
	Total        int     `json:"total,omitempty"`
	Hit          int     `json:"hit,omitempty"`
	HitTimestamp float64 `json:"hit_timestamp,omitempty"`
	HitImage     string  `json:"hit_image,omitempty"`
	HitVideo     string  `json:"hit_video,omitempty"`
}

// Chapters describes where in a manga the hit page was found.
type Chapters struct {
	Total    int    `json:"total,omitempty"`
	Hit      int    `json:"hit,omitempty"`
	HitImage string `json:"hit_image,omitempty"`
}

// Enrichment is a partial or merged metadata record describing one hit.
// A provider fills in whatever it knows; absent fields stay zero-valued.
// An Enrichment with every optional field absent is the merge identity.
type Enrichment struct {
	Title      *Title    `json:"title,omitempty"`
	Year       int       `json:"year,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Status     Status    `json:"status,omitempty"`
	Artists    []string  `json:"artists,omitempty"`
	Characters []string  `json:"characters,omitempty"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	Video      string    `json:"video,omitempty"`
	Episodes   *Episodes `json:"episodes,omitempty"`
	Chapters   *Chapters `json:"chapters,omitempty"`

	// MainLink is the primary external link; Links are secondary ones.
	MainLink *Link  `json:"main_url,omitempty"`
	Links    []Link `json:"urls,omitempty"`

	// Priority orders records during a merge; lower values are applied
	// first and therefore win on scalar fields.
	Priority int `json:"priority"`

	// Enrichers names every provider that contributed to this record.
	// Merges accumulate it.
	Enrichers []string `json:"enrichers,omitempty"`
}

// Empty reports whether the record carries no data beyond Priority and
// Enrichers. Empty records contribute nothing on merge and are not emitted.
func (e *Enrichment) Empty() bool {
	return e.Title == nil &&
		e.Year == 0 &&
		len(e.Tags) == 0 &&
		e.Status == "" &&
		len(e.Artists) == 0 &&
		len(e.Characters) == 0 &&
		e.Thumbnail == "" &&
		e.Video == "" &&
		e.Episodes == nil &&
		e.Chapters == nil &&
		e.MainLink == nil &&
		len(e.Links) == 0
}
