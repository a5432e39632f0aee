package sites

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Site describes one recognized external service.
type Site struct {
	// Key is the normalized metadata key, e.g. "danbooru".
	Key string

	// Name is the human-facing service name, e.g. "Danbooru".
	Name string

	hosts     []string       // substring match against the URL host
	pathHint  string         // additionally required path substring, if any
	idPattern *regexp.Regexp // extracts the ID from the URL path
	queryID   string         // or: the query parameter carrying the ID
	template  string         // builds a canonical URL from an ID
}

// The registry is ordered: more specific entries (path-qualified hosts)
// come before less specific ones sharing a host.
var registry = []*Site{
	{Key: "danbooru", Name: "Danbooru", hosts: []string{"danbooru.donmai.us"},
		idPattern: regexp.MustCompile(`/posts?(?:/show)?/(\d+)`),
		template:  "https://danbooru.donmai.us/posts/%s"},
	{Key: "safebooru", Name: "Safebooru", hosts: []string{"safebooru.org"},
		queryID:  "id",
		template: "https://safebooru.org/index.php?page=post&s=view&id=%s"},
	{Key: "gelbooru", Name: "Gelbooru", hosts: []string{"gelbooru.com"},
		queryID:  "id",
		template: "https://gelbooru.com/index.php?page=post&s=view&id=%s"},
	{Key: "konachan", Name: "Konachan", hosts: []string{"konachan.com"},
		idPattern: regexp.MustCompile(`/posts?(?:/show)?/(\d+)`),
		template:  "https://konachan.com/post/show/%s"},
	{Key: "yandere", Name: "Yande.re", hosts: []string{"yande.re"},
		idPattern: regexp.MustCompile(`/posts?(?:/show)?/(\d+)`),
		template:  "https://yande.re/post/show/%s"},
	{Key: "zerochan", Name: "Zerochan", hosts: []string{"zerochan.net"},
		idPattern: regexp.MustCompile(`^/(\d+)`),
		template:  "https://www.zerochan.net/%s"},
	{Key: "anime-pictures", Name: "Anime-Pictures", hosts: []string{"anime-pictures.net"},
		idPattern: regexp.MustCompile(`/posts?(?:/show)?/(\d+)`),
		template:  "https://anime-pictures.net/posts/%s"},
	{Key: "idolcomplex", Name: "Idol Complex", hosts: []string{"idolcomplex.com", "idol.sankakucomplex.com"},
		idPattern: regexp.MustCompile(`/posts?/([a-zA-Z0-9-]+)`),
		template:  "https://idol.sankakucomplex.com/posts/%s"},
	{Key: "sankakucomplex", Name: "Sankaku Complex", hosts: []string{"sankakucomplex.com"},
		idPattern: regexp.MustCompile(`/posts?/([a-zA-Z0-9-]+)`),
		template:  "https://chan.sankakucomplex.com/posts/%s"},
	{Key: "eshuushuu", Name: "E-Shuushuu", hosts: []string{"e-shuushuu.net"},
		idPattern: regexp.MustCompile(`/image/(\d+)`),
		template:  "https://e-shuushuu.net/image/%s"},
	{Key: "mangadex", Name: "MangaDex", hosts: []string{"mangadex.org"}, pathHint: "title",
		idPattern: regexp.MustCompile(`/title/([a-zA-Z0-9-]+)`),
		template:  "https://mangadex.org/title/%s"},
	{Key: "mangadex-chapter", Name: "MangaDex Chapter", hosts: []string{"mangadex.org"}, pathHint: "chapter",
		idPattern: regexp.MustCompile(`/chapter/([a-zA-Z0-9-]+)`),
		template:  "https://mangadex.org/chapter/%s"},
	{Key: "mangaupdates", Name: "Manga Updates", hosts: []string{"mangaupdates.com"},
		idPattern: regexp.MustCompile(`/series/([a-zA-Z0-9-]+)`),
		template:  "https://www.mangaupdates.com/series/%s"},
	{Key: "myanimelist", Name: "MyAnimeList", hosts: []string{"myanimelist.net"},
		idPattern: regexp.MustCompile(`/anime/(\d+)`),
		template:  "https://myanimelist.net/anime/%s"},
	{Key: "fakku", Name: "Fakku", hosts: []string{"fakku.net"},
		idPattern: regexp.MustCompile(`/hentai/([a-zA-Z0-9-]+)`),
		template:  "https://www.fakku.net/hentai/%s"},
	{Key: "ehentai-gallery", Name: "E-Hentai", hosts: []string{"e-hentai.org"},
		idPattern: regexp.MustCompile(`/g/([a-zA-Z0-9-]+/[a-zA-Z0-9-]+)`),
		template:  "https://e-hentai.org/g/%s"},
	{Key: "anidb", Name: "AniDB", hosts: []string{"anidb.net"},
		idPattern: regexp.MustCompile(`/anime/(\d+)`),
		template:  "https://anidb.net/anime/%s"},
	{Key: "anilist", Name: "AniList", hosts: []string{"anilist.co"},
		idPattern: regexp.MustCompile(`/anime/(\d+)`),
		template:  "https://anilist.co/anime/%s"},
	{Key: "pixiv", Name: "Pixiv Artwork", hosts: []string{"pixiv.net"}, pathHint: "artworks",
		idPattern: regexp.MustCompile(`/artworks/(\d+)`),
		template:  "https://www.pixiv.net/artworks/%s"},
	{Key: "pixiv-member", Name: "Pixiv User", hosts: []string{"pixiv.net"}, pathHint: "users",
		idPattern: regexp.MustCompile(`/users/(\d+)`),
		template:  "https://www.pixiv.net/users/%s"},
	{Key: "x-status", Name: "X Status", hosts: []string{"twitter.com", "x.com"}, pathHint: "status",
		idPattern: regexp.MustCompile(`/status/(\d+)`),
		template:  "https://x.com/i/web/status/%s"},
}

// pximg serves Pixiv artwork files; the artwork ID is in the file name.
var pximgID = regexp.MustCompile(`(\d+)_p\d`)

// FromKey resolves a metadata key (optionally carrying an "_id"/"-id"
// suffix) to a recognized site, or nil.
func FromKey(key string) *Site {
	k := strings.ToLower(key)
	k = strings.TrimSuffix(k, "_id")
	k = strings.TrimSuffix(k, "-id")
	k = strings.ReplaceAll(k, "_", "-")
	for _, s := range registry {
		if s.Key == k {
			return s
		}
	}
	return nil
}

// FromURL resolves a URL to a recognized site, or nil.
func FromURL(raw string) *Site {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.ToLower(u.Host)
	if strings.Contains(host, "pximg.net") {
		return FromKey("pixiv")
	}
	for _, s := range registry {
		if !s.matchHost(host) {
			continue
		}
		if s.pathHint != "" && !strings.Contains(u.Path, s.pathHint) {
			continue
		}
		return s
	}
	return nil
}

// ParseURL recognizes the service behind a URL and extracts its ID.
func ParseURL(raw string) (*Site, string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, "", false
	}
	if strings.Contains(strings.ToLower(u.Host), "pximg.net") {
		if m := pximgID.FindStringSubmatch(u.Path); m != nil {
			return FromKey("pixiv"), m[1], true
		}
		return nil, "", false
	}

	s := FromURL(raw)
	if s == nil {
		return nil, "", false
	}
	id := s.extractID(u)
	if id == "" {
		return nil, "", false
	}
	return s, id, true
}

// PostURL builds the canonical URL for an ID on this site.
func (s *Site) PostURL(id string) string {
	return fmt.Sprintf(s.template, id)
}

func (s *Site) matchHost(host string) bool {
	for _, h := range s.hosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}

func (s *Site) extractID(u *url.URL) string {
	if s.queryID != "" {
		return u.Query().Get(s.queryID)
	}
	if s.idPattern != nil {
		if m := s.idPattern.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
	}
	return ""
}
