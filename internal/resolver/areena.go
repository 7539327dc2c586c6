package resolver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"github.com/yourusername/yle-dl-go/internal/stream"
	"go.uber.org/zap"
)

const (
	programInfoURL     = "http://player.yle.fi/api/v1/programs.jsonp?id=%s&callback=yleEmbed.programJsonpCallback"
	serviceInfoURL     = "http://player.yle.fi/api/v1/services.jsonp?id=%s&callback=yleEmbed.simulcastJsonpCallback&region=fi&instance=1&dataId=%s"
	mediaDescriptorURL = "http://player.yle.fi/api/v1/media.jsonp?id=%s&callback=yleEmbed.startPlayerCallback&mediaId=%s&protocol=%s&client=areena-flash-player&instance=1"
)

var dataIDRe = regexp.MustCompile(`^[0-9-]+$`)

type areenaVariant int

const (
	variantOnDemand areenaVariant = iota
	variantSimulcast
	variantArkivet
)

// Areena resolves pages of the 2014 Areena catalogue through the player
// API. The same flow serves live simulcasts and Svenska Arkivet articles.
type Areena struct {
	deps     Deps
	protocol string
	variant  areenaVariant
}

// NewAreena creates the on-demand catalogue source
func NewAreena(deps Deps, protocol string) *Areena {
	return &Areena{deps: deps.withDefaults(), protocol: protocol, variant: variantOnDemand}
}

// NewSimulcast creates the source for live channels listed in the catalogue
func NewSimulcast(deps Deps, protocol string) *Areena {
	return &Areena{deps: deps.withDefaults(), protocol: protocol, variant: variantSimulcast}
}

// NewArkivet creates the source for Svenska Arkivet articles
func NewArkivet(deps Deps, protocol string) *Areena {
	return &Areena{deps: deps.withDefaults(), protocol: protocol, variant: variantArkivet}
}

// Playlist lists the episodes of a series page, or the page itself
func (a *Areena) Playlist(ctx context.Context, pageURL string, filters domain.StreamFilters) []Entry {
	var playlist []string
	if a.variant != variantArkivet {
		playlist = a.seriesEpisodes(ctx, pageURL)
	}

	if len(playlist) == 0 {
		a.deps.Logger.Debug("Not a playlist", zap.String("url", pageURL))
		playlist = []string{pageURL}
	} else {
		a.deps.Logger.Debug("Playlist page", zap.Int("clips", len(playlist)))
	}

	if filters.LatestOnly {
		playlist = playlist[:1]
	}

	return lo.Map(playlist, func(u string, _ int) Entry {
		return Entry{URL: u}
	})
}

func (a *Areena) seriesEpisodes(ctx context.Context, pageURL string) []string {
	page, err := a.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		a.deps.Logger.Debug("Failed to load the page", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	doc, err := fetch.ParseHTML(page)
	if err != nil || !isPlaylistPage(doc) {
		return nil
	}

	var episodes []string
	doc.Find("ul.program-list").First().Find(`a[itemprop="url"]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			episodes = append(episodes, fetch.ResolveReference(pageURL, href))
		}
	})
	return episodes
}

// isPlaylistPage detects series pages. Episode pages embed a player.
func isPlaylistPage(doc *goquery.Document) bool {
	if doc.Find(`meta[property="og:type"][content="video.tv_show"]`).Length() > 0 {
		return true
	}
	return doc.Find(".yle_areena_player").Length() == 0
}

// Clip resolves one episode page
func (a *Areena) Clip(ctx context.Context, entry Entry, filters domain.StreamFilters) *Clip {
	pageURL := entry.URL

	programID := a.programID(ctx, pageURL)
	if programID == "" {
		return FailedClip(pageURL, "Failed to parse a program ID")
	}

	var info programInfo
	if err := fetch.LoadJSONP(ctx, a.deps.Fetcher, a.infoURL(programID), &info); err != nil {
		a.deps.Logger.Debug("Program data request failed", zap.Error(err))
		return FailedClip(pageURL, "Failed to download program data")
	}

	if reason := info.unavailableReason(); reason != "" {
		return FailedClip(pageURL, reason)
	}

	mediaID := a.mediaID(&info)
	if mediaID == "" {
		return FailedClip(pageURL, "Failed to parse media ID")
	}

	desc, ok := loadMediaDescriptor(ctx, a.deps, mediaID, programID, info.publishEvent().protocol())
	if !ok {
		return FailedClip(pageURL, "Failed to parse media object")
	}

	media, err := selectMedia(desc.items(), filters)
	if err != nil {
		return &Clip{PageURL: pageURL, Title: a.title(&info), Stream: stream.NewInvalidStream(err.Error())}
	}

	return &Clip{
		PageURL:   pageURL,
		Title:     a.title(&info),
		Stream:    mediaStream(ctx, a.deps, media, pageURL, a.protocol, filters),
		Subtitles: media.subtitles(),
	}
}

func (a *Areena) programID(ctx context.Context, pageURL string) string {
	if a.variant != variantArkivet {
		return fetch.LastPathSegment(pageURL)
	}

	ids := pageDataIDs(ctx, a.deps, pageURL)
	if len(ids) == 0 {
		return ""
	}
	return catalogID(ids[0])
}

func (a *Areena) infoURL(programID string) string {
	quoted := url.QueryEscape(programID)
	if a.variant == variantSimulcast {
		return fmt.Sprintf(serviceInfoURL, quoted, quoted)
	}
	return fmt.Sprintf(programInfoURL, quoted)
}

func (a *Areena) mediaID(info *programInfo) string {
	if a.variant == variantSimulcast {
		if len(info.Data.Outlets) == 0 {
			return ""
		}
		return info.Data.Outlets[0].Outlet.Media.ID.String()
	}
	return info.publishEvent().mediaID()
}

func (a *Areena) title(info *programInfo) string {
	if a.variant == variantSimulcast {
		title := info.Data.Service.Title.text("fi")
		if title == "" {
			title = "areena"
		}
		return title + a.deps.timestamp()
	}
	return info.onDemandTitle()
}

func loadMediaDescriptor(ctx context.Context, deps Deps, mediaID, programID, protocol string) (*mediaDescriptor, bool) {
	descURL := fmt.Sprintf(mediaDescriptorURL,
		url.QueryEscape(mediaID), url.QueryEscape(programID), url.QueryEscape(protocol))

	var desc mediaDescriptor
	if err := fetch.LoadJSONP(ctx, deps.Fetcher, descURL, &desc); err != nil {
		deps.Logger.Debug("Media descriptor request failed", zap.Error(err))
		return nil, false
	}
	return &desc, true
}

// selectMedia narrows the entries by subtitles and picks one by bitrate.
// Descriptors without bitrates resolve to the first entry. An empty list
// yields the zero entry, which has no URL.
func selectMedia(items []mediaItem, filters domain.StreamFilters) (mediaItem, error) {
	candidates := filterMediaBySubtitles(items, filters)
	if len(candidates) == 0 {
		return mediaItem{}, nil
	}

	selected, ok := stream.SelectQuality(candidates, mediaItem.bitrate, filters)
	if !ok {
		return mediaItem{}, stream.ErrBitrateLimit
	}
	if !filters.KeepLowestBitrate() && lo.EveryBy(candidates, func(m mediaItem) bool { return m.bitrate() == 0 }) {
		selected = candidates[0]
	}
	return selected, nil
}

func filterMediaBySubtitles(items []mediaItem, filters domain.StreamFilters) []mediaItem {
	filtered := lo.Filter(items, func(m mediaItem, _ int) bool {
		return m.hasHardSubtitle() == filters.HardSubs
	})
	if filters.SubLang != domain.SubLangAll {
		filtered = lo.Filter(filtered, func(m mediaItem, _ int) bool {
			return m.Lang == filters.SubLang
		})
	}

	if len(filtered) == 0 {
		return items
	}
	return filtered
}

// mediaStream decrypts the media URL of an entry into a stream descriptor
func mediaStream(ctx context.Context, deps Deps, media mediaItem, pageURL, protocol string, filters domain.StreamFilters) stream.Descriptor {
	if media.URL == "" {
		return stream.NewInvalidStream("No media URL")
	}

	decoded, err := stream.Decrypt(media.URL, []byte(stream.MediaURLKey))
	if err != nil || len(decoded) == 0 {
		deps.Logger.Debug("Failed to decrypt the media URL", zap.Error(err))
		return stream.NewInvalidStream("Decrypting media URL failed")
	}

	if media.Protocol == "HDS" {
		return stream.NewHDSStream(string(decoded), pageURL, protocol, filters.MaxBitrate)
	}
	return rtmpStreamFromURL(ctx, deps, string(decoded), pageURL)
}

// rtmpStreamFromURL builds the parameters of a 2014 player RTMP URL, whose
// application name is a single path component.
func rtmpStreamFromURL(ctx context.Context, deps Deps, streamURL, pageURL string) stream.Descriptor {
	_, playpath, _ := stream.SplitSingleComponentApp(streamURL)
	playpath, _, _ = strings.Cut(playpath, "?")

	params, err := stream.BuildRTMPParams(ctx, deps.Fetcher,
		stream.PAPIStream{Connect: streamURL, Stream: playpath}, pageURL, false, deps.Logger)
	if err != nil {
		return &stream.RTMPStream{PageURL: pageURL, Err: err.Error()}
	}

	params["app"], _, _ = strings.Cut(params["app"], "/")
	return &stream.RTMPStream{Params: params, PageURL: pageURL}
}

// pageDataIDs scrapes the data-id attributes of player embeds on a page
func pageDataIDs(ctx context.Context, deps Deps, pageURL string) []string {
	page, err := deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		deps.Logger.Debug("Failed to load the page", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	doc, err := fetch.ParseHTML(page)
	if err != nil {
		return nil
	}

	var ids []string
	doc.Find("[data-id]").Each(func(_ int, s *goquery.Selection) {
		if id := s.AttrOr("data-id", ""); dataIDRe.MatchString(id) {
			ids = append(ids, id)
		}
	})
	return ids
}

// catalogID adds the catalogue prefix to bare numeric ids
func catalogID(id string) string {
	if strings.Contains(id, "-") {
		return id
	}
	return "1-" + id
}
