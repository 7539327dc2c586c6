package resolver

import (
	"context"
	"fmt"
	"regexp"

	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"github.com/yourusername/yle-dl-go/internal/stream"
	"go.uber.org/zap"
)

var (
	liveChannelRe  = regexp.MustCompile(`^(?:https?://)?(?:areena\.yle\.fi/tv/suora|arenan\.yle\.fi/tv/direkt)/(.+)`)
	radioChannelRe = regexp.MustCompile(`^(?:https?://)?(?:www\.)?yle\.fi/radio/([a-zA-Z0-9]+)/suora/?`)
	radioIDRe      = regexp.MustCompile(`"id": "/([0-9]+)"`)
)

// femMediaIDs maps the FEM channel pages to their media ids
var femMediaIDs = map[string]string{
	"fem":          "yle-fem-fi",
	"fem?kieli=sv": "yle-fem-sv",
}

// LiveTV resolves the live TV channel pages
type LiveTV struct {
	deps Deps
}

// NewLiveTV creates the live TV source
func NewLiveTV(deps Deps) *LiveTV {
	return &LiveTV{deps: deps.withDefaults()}
}

// Playlist of a live channel is the channel itself
func (l *LiveTV) Playlist(_ context.Context, pageURL string, _ domain.StreamFilters) []Entry {
	return []Entry{{URL: pageURL}}
}

// Clip resolves the live stream of the channel
func (l *LiveTV) Clip(ctx context.Context, entry Entry, filters domain.StreamFilters) *Clip {
	channel := liveChannel(entry.URL)

	title := channel
	if title == "" {
		title = "yleTV"
	}
	title += l.deps.timestamp()

	if channel == "" {
		return &Clip{PageURL: entry.URL, Title: title, Stream: stream.NewInvalidStream("Unknown live channel")}
	}

	papiURL := stream.PAPIBaseURL + "/ng/live/rtmp/" + liveMediaID(channel) + "/fin"
	return &Clip{
		PageURL: entry.URL,
		Title:   title,
		Stream:  rtmpStreamFromPAPI(ctx, l.deps, papiURL, entry.URL, true, filters),
	}
}

// liveChannel extracts the channel name from a live TV page URL
func liveChannel(pageURL string) string {
	m := liveChannelRe.FindStringSubmatch(pageURL)
	if m == nil {
		return ""
	}
	return m[1]
}

func liveMediaID(channel string) string {
	if id, ok := femMediaIDs[channel]; ok {
		return id
	}
	return "yle-" + channel
}

// LiveRadio resolves the live radio channel pages
type LiveRadio struct {
	deps Deps
}

// NewLiveRadio creates the live radio source
func NewLiveRadio(deps Deps) *LiveRadio {
	return &LiveRadio{deps: deps.withDefaults()}
}

// Playlist of a radio channel is the channel itself
func (l *LiveRadio) Playlist(_ context.Context, pageURL string, _ domain.StreamFilters) []Entry {
	return []Entry{{URL: pageURL}}
}

// Clip resolves the live stream of the radio channel
func (l *LiveRadio) Clip(ctx context.Context, entry Entry, filters domain.StreamFilters) *Clip {
	title := "yleradio"
	if m := radioChannelRe.FindStringSubmatch(entry.URL); m != nil {
		title = m[1]
	}
	title += l.deps.timestamp()

	radioID := l.radioID(ctx, entry.URL)
	if radioID == "" {
		return &Clip{PageURL: entry.URL, Title: title, Stream: stream.NewInvalidStream("Radio channel id not found")}
	}

	papiURL := fmt.Sprintf("%s/ng/radio/rtmp/%s/fi", stream.PAPIBaseURL, radioID)
	return &Clip{
		PageURL: entry.URL,
		Title:   title,
		Stream:  rtmpStreamFromPAPI(ctx, l.deps, papiURL, entry.URL, true, filters),
	}
}

// radioID reads the channel id from the embedded player configuration or
// from the live channel element
func (l *LiveRadio) radioID(ctx context.Context, pageURL string) string {
	page, err := l.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		l.deps.Logger.Debug("Failed to load the radio page", zap.String("url", pageURL), zap.Error(err))
		return ""
	}

	if m := radioIDRe.FindStringSubmatch(page); m != nil {
		return m[1]
	}

	doc, err := fetch.ParseHTML(page)
	if err != nil {
		return ""
	}
	id := doc.Find("#live-channel[data-id]").First().AttrOr("data-id", "")
	if !dataIDRe.MatchString(id) {
		return ""
	}
	return id
}

// rtmpStreamFromPAPI resolves an RTMP stream through the legacy player API
func rtmpStreamFromPAPI(ctx context.Context, deps Deps, papiURL, pageURL string, live bool, filters domain.StreamFilters) *stream.RTMPStream {
	selected, err := stream.ResolvePAPI(ctx, deps.Fetcher, papiURL, stream.NGRTMPKey, filters, deps.Logger)
	if err != nil {
		deps.Logger.Warn("Player API lookup failed", zap.String("url", papiURL), zap.Error(err))
		return &stream.RTMPStream{PageURL: pageURL, Err: err.Error()}
	}

	params, err := stream.BuildRTMPParams(ctx, deps.Fetcher, selected, pageURL, live, deps.Logger)
	if err != nil {
		return &stream.RTMPStream{PageURL: pageURL, Err: err.Error()}
	}
	return &stream.RTMPStream{Params: params, PageURL: pageURL}
}
