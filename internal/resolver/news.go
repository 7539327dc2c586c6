package resolver

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"go.uber.org/zap"
)

// News finds Areena players embedded in news and sport articles and
// resolves them with the on-demand catalogue source.
type News struct {
	deps   Deps
	areena *Areena
}

// NewNews creates the news article source
func NewNews(deps Deps, protocol string) *News {
	deps = deps.withDefaults()
	return &News{deps: deps, areena: NewAreena(deps, protocol)}
}

// Playlist concatenates the playlists of every embedded player
func (n *News) Playlist(ctx context.Context, pageURL string, filters domain.StreamFilters) []Entry {
	urls := n.embeddedAreenaURLs(ctx, pageURL)
	if len(urls) == 0 {
		n.deps.Logger.Error("No video stream found at " + pageURL)
		return nil
	}
	n.deps.Logger.Info("Found areena URLs: " + strings.Join(urls, ", "))

	var entries []Entry
	for _, u := range urls {
		entries = append(entries, n.areena.Playlist(ctx, u, filters)...)
	}
	return entries
}

// Clip resolves an embedded player as a catalogue episode
func (n *News) Clip(ctx context.Context, entry Entry, filters domain.StreamFilters) *Clip {
	return n.areena.Clip(ctx, entry, filters)
}

func (n *News) embeddedAreenaURLs(ctx context.Context, pageURL string) []string {
	page, err := n.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		n.deps.Logger.Debug("Failed to load the article", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	doc, err := fetch.ParseHTML(page)
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("div.media.yle_areena_player[data-id]").Each(func(_ int, s *goquery.Selection) {
		if id := s.AttrOr("data-id", ""); dataIDRe.MatchString(id) {
			urls = append(urls, "http://areena.yle.fi/"+catalogID(id))
		}
	})
	return urls
}
