package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"github.com/yourusername/yle-dl-go/internal/stream"
	"go.uber.org/zap"
)

const arkistoEmbedURL = "http://yle.fi/elavaarkisto/embed/%s.jsonp?callback=yleEmbed.eaJsonpCallback&instance=1&id=%s&lang=fi"

type arkistoMedia struct {
	Status        fetch.FlexInt    `json:"status"`
	Message       string           `json:"message"`
	Title         string           `json:"title"`
	OriginalTitle string           `json:"originalTitle"`
	DownloadURL   string           `json:"downloadUrl"`
	MediakantaID  fetch.FlexString `json:"mediakantaId"`
	ID            fetch.FlexString `json:"id"`
}

// ElavaArkisto resolves the Elävä arkisto archive pages. Every player
// embedded on a page is one clip.
type ElavaArkisto struct {
	deps     Deps
	protocol string
}

// NewElavaArkisto creates the Elävä arkisto source
func NewElavaArkisto(deps Deps, protocol string) *ElavaArkisto {
	return &ElavaArkisto{deps: deps.withDefaults(), protocol: protocol}
}

// Playlist resolves every embedded player of the page
func (e *ElavaArkisto) Playlist(ctx context.Context, pageURL string, filters domain.StreamFilters) []Entry {
	ids := pageDataIDs(ctx, e.deps, pageURL)
	if len(ids) == 0 {
		e.deps.Logger.Error(fmt.Sprintf("Can't find streams at %s.", pageURL))
		return nil
	}
	if filters.LatestOnly {
		ids = ids[:1]
	}

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		clip := e.clipFromDataID(ctx, id, pageURL, filters)
		entries = append(entries, Entry{URL: pageURL, Clip: clip})
		e.deps.Logger.Debug("Archive clip", zap.String("data_id", id), zap.String("stream", clip.Stream.URL()))
	}
	return entries
}

// Clip returns the clip resolved with the playlist
func (e *ElavaArkisto) Clip(ctx context.Context, entry Entry, filters domain.StreamFilters) *Clip {
	if entry.Clip != nil {
		return entry.Clip
	}
	return FailedClip(entry.URL, "Failed to download embeded media data")
}

func (e *ElavaArkisto) clipFromDataID(ctx context.Context, dataID, pageURL string, filters domain.StreamFilters) *Clip {
	var media arkistoMedia
	if err := fetch.LoadJSONP(ctx, e.deps.Fetcher, embedURL(dataID), &media); err != nil {
		e.deps.Logger.Debug("Embed request failed", zap.Error(err))
		return FailedClip(pageURL, "Failed to download embeded media data")
	}

	if media.Status == 404 {
		message := media.Message
		if message == "" {
			message = "Failed with status 404"
		}
		return FailedClip(pageURL, message)
	}

	title := media.Title
	if title == "" {
		title = media.OriginalTitle
	}
	if title == "" {
		title = "elavaarkisto"
	}

	if media.DownloadURL != "" {
		return &Clip{PageURL: pageURL, Title: title, Stream: stream.NewHTTPStream(media.DownloadURL, pageURL)}
	}

	if media.MediakantaID == "" || media.ID == "" {
		return FailedClip(pageURL, "Failed to parse media object")
	}

	mediaID := "6-" + media.MediakantaID.String()
	programID := "26-" + media.ID.String()
	protocol := "RTMPE"
	if protocolBase(e.protocol) == "hds" {
		protocol = "HDS"
	}

	desc, ok := loadMediaDescriptor(ctx, e.deps, mediaID, programID, protocol)
	if !ok {
		return FailedClip(pageURL, "Failed to parse media object")
	}

	selected, err := selectMedia(desc.items(), filters)
	if err != nil {
		return &Clip{PageURL: pageURL, Title: title, Stream: stream.NewInvalidStream(err.Error())}
	}

	return &Clip{
		PageURL:   pageURL,
		Title:     title,
		Stream:    mediaStream(ctx, e.deps, selected, pageURL, e.protocol, filters),
		Subtitles: selected.subtitles(),
	}
}

// embedURL addresses the embed document by the last component of a data id
func embedURL(dataID string) string {
	id := dataID
	if i := strings.LastIndex(dataID, "-"); i >= 0 {
		id = dataID[i+1:]
	}
	return fmt.Sprintf(arkistoEmbedURL, id, id)
}
