package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"github.com/yourusername/yle-dl-go/internal/stream"
	"go.uber.org/zap"
)

// drmProtectionLevel is the lowest media protection level that means DRM
const drmProtectionLevel = 3

const ngDateLayout = "2006-01-02T15:04:05"

type ngClip struct {
	ID          fetch.FlexString `json:"id"`
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Published   string           `json:"published"`
	Broadcasted *ngBroadcast     `json:"broadcasted"`
	Channel     *ngChannel       `json:"channel"`
	Media       *ngMedia         `json:"media"`
}

type ngBroadcast struct {
	Date string `json:"date"`
}

// ngChannel is set on live radio items
type ngChannel struct {
	ID   fetch.FlexString `json:"id"`
	Name string           `json:"name"`
	Lang string           `json:"lang"`
}

type ngMedia struct {
	ID          fetch.FlexString `json:"id"`
	Live        bool             `json:"live"`
	MediaURL    string           `json:"mediaUrl"`
	DownloadURL string           `json:"downloadUrl"`
	Protection  fetch.FlexInt    `json:"protection"`
	Subtitles   []ngSubtitle     `json:"subtitles"`
}

type ngSubtitle struct {
	URL  string `json:"url"`
	Lang string `json:"lang"`
}

type ngDocument struct {
	ngClip
	ContentType       json.RawMessage `json:"contentType"`
	AvailableEpisodes json.RawMessage `json:"availableEpisodes"`
	AvailableClips    json.RawMessage `json:"availableClips"`
	Search            *struct {
		Results []ngClip `json:"results"`
	} `json:"search"`
}

// AreenaNG resolves pages of the legacy Areena v3 catalogue, whose pages
// have a JSON twin at <path>.json.
type AreenaNG struct {
	deps     Deps
	protocol string
}

// NewAreenaNG creates the legacy catalogue source
func NewAreenaNG(deps Deps, protocol string) *AreenaNG {
	return &AreenaNG{deps: deps.withDefaults(), protocol: protocol}
}

// Playlist lists a single clip or channel, search results or a whole series
func (n *AreenaNG) Playlist(ctx context.Context, pageURL string, filters domain.StreamFilters) []Entry {
	doc, ok := n.loadMetadata(ctx, n.jsonURL(pageURL, ""))
	if !ok {
		return nil
	}

	if doc.Media != nil && doc.Media.Protection >= drmProtectionLevel {
		n.deps.Logger.Error("This stream is protected with DRM. yle-dl is not able to download this stream.")
		return nil
	}

	var playlist []ngClip
	switch {
	case doc.ContentType != nil || doc.Channel != nil:
		playlist = []ngClip{doc.ngClip}
	case doc.Search != nil:
		playlist = doc.Search.Results
	case doc.AvailableEpisodes != nil || doc.AvailableClips != nil:
		playlist = n.fullSeries(ctx, pageURL)
	}

	if filters.LatestOnly && len(playlist) > 0 {
		newest := lo.MaxBy(playlist, func(a, b ngClip) bool {
			return !a.mediaTime().Before(b.mediaTime())
		})
		playlist = []ngClip{newest}
	}

	return lo.Map(playlist, func(c ngClip, _ int) Entry {
		return Entry{URL: pageURL, Data: c}
	})
}

// fullSeries collects the programs and the other clips of a series
func (n *AreenaNG) fullSeries(ctx context.Context, pageURL string) []ngClip {
	var playlist []ngClip
	for _, contentType := range []string{"ohjelmat", "muut"} {
		query := "from=0&to=1000&sisalto=" + contentType
		if doc, ok := n.loadMetadata(ctx, n.jsonURL(pageURL, query)); ok && doc.Search != nil {
			playlist = append(playlist, doc.Search.Results...)
		}
	}
	return playlist
}

// jsonURL returns the metadata address of a page with extra query
// parameters appended
func (n *AreenaNG) jsonURL(pageURL, extraQuery string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL + ".json"
	}
	u.Path += ".json"
	u.RawPath = ""
	u.Fragment = ""
	if extraQuery != "" {
		if u.RawQuery != "" {
			u.RawQuery += "&"
		}
		u.RawQuery += extraQuery
	}
	return u.String()
}

func (n *AreenaNG) loadMetadata(ctx context.Context, metadataURL string) (*ngDocument, bool) {
	var doc ngDocument
	if err := fetch.LoadJSON(ctx, n.deps.Fetcher, metadataURL, &doc); err != nil {
		n.deps.Logger.Error("Invalid JSON file at "+metadataURL, zap.Error(err))
		return nil, false
	}
	return &doc, true
}

// Clip resolves one catalogue item
func (n *AreenaNG) Clip(ctx context.Context, entry Entry, filters domain.StreamFilters) *Clip {
	item, ok := entry.Data.(ngClip)
	if !ok {
		return FailedClip(entry.URL, "Invalid playlist entry")
	}

	clip := &Clip{PageURL: entry.URL, Title: n.title(item)}
	episodeURL := item.pageURL()
	if episodeURL == "" {
		episodeURL = entry.URL
	}

	if item.Channel != nil && protocolBase(n.protocol) != "hds" {
		clip.Stream = n.radioStream(ctx, item, entry.URL, filters)
		return clip
	}

	full := n.fullMetadata(ctx, item)
	if full.Media != nil {
		clip.Subtitles = lo.FilterMap(full.Media.Subtitles, func(s ngSubtitle, _ int) (domain.Subtitle, bool) {
			return domain.Subtitle{URL: s.URL, Lang: s.Lang}, s.URL != ""
		})
	}

	if protocolBase(n.protocol) == "hds" {
		clip.Stream = n.hdsStream(ctx, full, episodeURL, filters)
	} else {
		clip.Stream = n.tvStream(ctx, full, entry.URL, episodeURL, filters)
	}
	return clip
}

// fullMetadata loads the complete item for search results, which come
// without media
func (n *AreenaNG) fullMetadata(ctx context.Context, item ngClip) ngClip {
	if item.Media != nil {
		return item
	}

	page := item.pageURL()
	if page == "" {
		return item
	}
	doc, ok := n.loadMetadata(ctx, page+".json")
	if !ok {
		return item
	}
	return doc.ngClip
}

func (n *AreenaNG) radioStream(ctx context.Context, item ngClip, pageURL string, filters domain.StreamFilters) stream.Descriptor {
	radioID := item.Channel.ID.String()
	if radioID == "" {
		return stream.NewInvalidStream("id missing")
	}
	lang := item.Channel.Lang
	if lang == "" {
		lang = "fi"
	}

	papiURL := fmt.Sprintf("%s/ng/radio/rtmp/%s/%s", stream.PAPIBaseURL, radioID, lang)
	return rtmpStreamFromPAPI(ctx, n.deps, papiURL, pageURL, true, filters)
}

func (n *AreenaNG) tvStream(ctx context.Context, item ngClip, pageURL, episodeURL string, filters domain.StreamFilters) stream.Descriptor {
	media := item.Media
	switch {
	case media == nil:
		return stream.NewInvalidStream("No id, mediaUrl or downloadUrl")
	case media.ID != "":
		papiURL := stream.PAPIBaseURL + "/ng/mod/rtmp/" + media.ID.String()
		if media.Live {
			papiURL = stream.PAPIBaseURL + "/ng/live/rtmp/" + media.ID.String() + "/fin"
		}
		s := rtmpStreamFromPAPI(ctx, n.deps, papiURL, pageURL, media.Live, filters)
		s.PageURL = episodeURL
		return s
	case media.MediaURL != "":
		return stream.NewHTTPStream(media.MediaURL, episodeURL)
	case media.DownloadURL != "":
		return stream.NewHTTPStream(media.DownloadURL, episodeURL)
	default:
		return stream.NewInvalidStream("No id, mediaUrl or downloadUrl")
	}
}

func (n *AreenaNG) hdsStream(ctx context.Context, item ngClip, episodeURL string, filters domain.StreamFilters) stream.Descriptor {
	if item.Media == nil || item.Media.ID == "" {
		return stream.NewInvalidStream("Media ID missing")
	}

	id := item.Media.ID.String()
	papiURL := stream.PAPIBaseURL + "/ng/mod/hds/" + id
	if item.Media.Live {
		papiURL = stream.PAPIBaseURL + "/ng/live/hds/" + id + "/fin"
	}

	selected, err := stream.ResolvePAPI(ctx, n.deps.Fetcher, papiURL, stream.NGHDSKey, filters, n.deps.Logger)
	if err != nil || selected.Connect == "" {
		n.deps.Logger.Warn("Player API lookup failed", zap.String("url", papiURL), zap.Error(err))
		return stream.NewInvalidStream("HDS stream not found")
	}
	return stream.NewHDSStream(selected.Connect, episodeURL, n.protocol, filters.MaxBitrate)
}

func (n *AreenaNG) title(item ngClip) string {
	switch {
	case item.Channel != nil:
		name := item.Channel.Name
		if name == "" {
			name = "yle-radio"
		}
		return name + n.deps.timestamp()
	case item.Title != "":
		date := ""
		if item.Broadcasted != nil {
			date = item.Broadcasted.Date
		}
		if date == "" {
			date = item.Published
		}
		if date == "" {
			return item.Title
		}
		return item.Title + "-" + strings.NewReplacer("/", "-", " ", "-").Replace(date)
	default:
		return "areena" + n.deps.timestamp()
	}
}

// pageURL is the catalogue page of an item, empty when the item does not
// say what it is
func (c ngClip) pageURL() string {
	if c.Type == "" || c.ID == "" {
		return ""
	}
	kind := "tv"
	if c.Type == "audio" {
		kind = "radio"
	}
	return fmt.Sprintf("http://areena.yle.fi/%s/%s", kind, c.ID)
}

// mediaTime is the broadcast or publication time, the zero time when
// neither parses
func (c ngClip) mediaTime() time.Time {
	var candidates []string
	if c.Broadcasted != nil {
		candidates = append(candidates, c.Broadcasted.Date)
	}
	candidates = append(candidates, c.Published)

	for _, s := range candidates {
		if t, err := time.Parse(ngDateLayout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
