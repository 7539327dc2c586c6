package resolver

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/stream"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSelectProtocols(t *testing.T) {
	tests := []struct {
		name         string
		acceptable   []string
		requested    []string
		wantAccepted []string
		wantRejected []string
	}{
		{
			name:         "requested order is kept",
			acceptable:   []string{"hds"},
			requested:    []string{"rtmp", "hds", "hds:youtubedl"},
			wantAccepted: []string{"hds", "hds:youtubedl"},
			wantRejected: []string{"rtmp"},
		},
		{
			name:         "defaults narrowed to hds",
			acceptable:   []string{"hds"},
			wantAccepted: []string{"hds", "hds:youtubedl"},
		},
		{
			name:         "defaults narrowed to rtmp",
			acceptable:   []string{"rtmp"},
			wantAccepted: []string{"rtmp"},
		},
		{
			name:         "all defaults",
			acceptable:   []string{"hds", "rtmp"},
			wantAccepted: []string{"hds", "hds:youtubedl", "rtmp"},
		},
		{
			name:         "nothing acceptable",
			acceptable:   []string{"rtmp"},
			requested:    []string{"hds:youtubedl"},
			wantRejected: []string{"hds:youtubedl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, rejected := SelectProtocols(tt.acceptable, tt.requested)
			assert.Len(t, accepted, len(tt.wantAccepted))
			for i := range tt.wantAccepted {
				assert.Equal(t, tt.wantAccepted[i], accepted[i])
			}
			assert.ElementsMatch(t, tt.wantRejected, rejected)
		})
	}
}

func TestNewRetrying_LogsRejectedOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRetrying(KindAreena, []string{"rtmp", "hds", "rtmpe"}, nil, zap.New(core))

	assert.Equal(t, []string{"hds"}, r.Protocols())
	entries := logs.FilterMessage("The following protocols are not supported on this source: rtmp, rtmpe").All()
	assert.Len(t, entries, 1)
}

// scriptedSource returns a valid clip only for the protocols listed in ok
type scriptedSource struct {
	protocol string
	ok       map[string]bool
}

func (s *scriptedSource) Playlist(_ context.Context, url string, _ domain.StreamFilters) []Entry {
	if !s.ok[s.protocol] {
		return nil
	}
	return []Entry{{URL: url}}
}

func (s *scriptedSource) Clip(_ context.Context, entry Entry, _ domain.StreamFilters) *Clip {
	return &Clip{PageURL: entry.URL, Title: "clip-" + s.protocol, Stream: stream.NewHTTPStream("http://media/clip.mp4", entry.URL)}
}

func scriptedFactory(tried *[]string, ok map[string]bool, stdout *bytes.Buffer) Factory {
	return func(protocol string) (*Resolver, error) {
		*tried = append(*tried, protocol)
		src := &scriptedSource{protocol: protocol, ok: ok}
		return New(src, KindAreena, protocol, Options{Stdout: stdout}), nil
	}
}

func TestRetrying_FallsBackToNextProtocol(t *testing.T) {
	var tried []string
	var stdout bytes.Buffer
	r := NewRetrying(KindAreena, nil, scriptedFactory(&tried, map[string]bool{"hds:youtubedl": true}, &stdout), nil)

	result := r.PrintTitles(context.Background(), "http://areena.yle.fi/1-1", domain.DefaultStreamFilters())

	assert.Equal(t, domain.ResultSuccess, result)
	assert.Equal(t, []string{"hds", "hds:youtubedl"}, tried)
	assert.Equal(t, "clip-hds:youtubedl\n", stdout.String())
}

func TestRetrying_Exhausted(t *testing.T) {
	var tried []string
	var stdout bytes.Buffer
	r := NewRetrying(KindElavaArkisto, nil, scriptedFactory(&tried, nil, &stdout), nil)

	result := r.PrintURLs(context.Background(), "http://yle.fi/aihe/a", false, domain.DefaultStreamFilters())

	assert.Equal(t, domain.ResultFailed, result)
	assert.Equal(t, []string{"hds", "hds:youtubedl", "rtmp"}, tried)
	assert.Empty(t, stdout.String())

	// Every operation starts from the full queue
	tried = nil
	r.PrintTitles(context.Background(), "http://yle.fi/aihe/a", domain.DefaultStreamFilters())
	assert.Len(t, tried, 3)
}

func TestRetrying_UnsupportedRequestNeverTried(t *testing.T) {
	var tried []string
	var stdout bytes.Buffer
	r := NewRetrying(KindElavaArkisto, []string{"broken", "hds"}, scriptedFactory(&tried, map[string]bool{"hds": true}, &stdout), nil)

	assert.Equal(t, []string{"hds"}, r.Protocols())
	assert.Equal(t, domain.ResultSuccess, r.PrintURLs(context.Background(), "http://yle.fi/aihe/a", false, domain.DefaultStreamFilters()))
	assert.Equal(t, []string{"hds"}, tried)
	assert.Equal(t, "http://media/clip.mp4\n", stdout.String())
}

func TestRetrying_FactoryErrorMovesOn(t *testing.T) {
	var stdout bytes.Buffer
	factory := func(protocol string) (*Resolver, error) {
		if protocol == "hds" {
			return nil, errors.New("backend unavailable")
		}
		src := &scriptedSource{protocol: protocol, ok: map[string]bool{"rtmp": true}}
		return New(src, KindElavaArkisto, protocol, Options{Stdout: &stdout}), nil
	}
	r := NewRetrying(KindElavaArkisto, []string{"hds", "rtmp"}, factory, nil)

	assert.Equal(t, domain.ResultSuccess, r.PrintTitles(context.Background(), "http://yle.fi/aihe/a", domain.DefaultStreamFilters()))
	assert.Equal(t, "clip-rtmp\n", stdout.String())
}

func TestRetrying_NoProtocols(t *testing.T) {
	r := NewRetrying(KindLiveTV, []string{"hds"}, func(string) (*Resolver, error) {
		t.Fatal("factory must not be called")
		return nil, nil
	}, nil)

	assert.Equal(t, domain.ResultFailed, r.Download(context.Background(), "http://areena.yle.fi/tv/suora/tv1", domain.DefaultStreamFilters()))
}

// partialSource serves two clips. The second one has no title.
type partialSource struct{}

func (partialSource) Playlist(_ context.Context, url string, _ domain.StreamFilters) []Entry {
	return []Entry{{URL: url + "/a"}, {URL: url + "/b"}}
}

func (partialSource) Clip(_ context.Context, entry Entry, _ domain.StreamFilters) *Clip {
	if strings.HasSuffix(entry.URL, "/b") {
		return FailedClip(entry.URL, "Failed to download program data")
	}
	return &Clip{PageURL: entry.URL, Title: "ok", Stream: stream.NewHTTPStream("http://media/a.mp4", entry.URL)}
}

func TestRetrying_PartialPlaylistNotRetried(t *testing.T) {
	var tried []string
	var stdout bytes.Buffer
	factory := func(protocol string) (*Resolver, error) {
		tried = append(tried, protocol)
		return New(partialSource{}, KindAreena, protocol, Options{Stdout: &stdout}), nil
	}
	r := NewRetrying(KindAreena, nil, factory, nil)

	result := r.PrintTitles(context.Background(), "http://areena.yle.fi/1-1", domain.DefaultStreamFilters())

	assert.Equal(t, domain.ResultFailed, result)
	assert.Equal(t, []string{"hds"}, tried)
	assert.Equal(t, "ok\n", stdout.String())
}
