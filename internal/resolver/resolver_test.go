package resolver

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/yle-dl-go/internal/backend"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/stream"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// staticSource serves a fixed playlist of pre-built clips
type staticSource []*Clip

func (s staticSource) Playlist(_ context.Context, _ string, _ domain.StreamFilters) []Entry {
	entries := make([]Entry, 0, len(s))
	for _, c := range s {
		entries = append(entries, Entry{URL: c.PageURL, Clip: c})
	}
	return entries
}

func (s staticSource) Clip(_ context.Context, entry Entry, _ domain.StreamFilters) *Clip {
	return entry.Clip
}

// noBackendStream is valid but cannot be downloaded
type noBackendStream struct{}

func (noBackendStream) IsValid() bool                                      { return true }
func (noBackendStream) ErrorMessage() string                               { return "" }
func (noBackendStream) URL() string                                        { return "mms://media/clip" }
func (noBackendStream) EpisodeURL() string                                 { return "" }
func (noBackendStream) NewBackend(string, backend.Options) backend.Backend { return nil }

type memoryRecorder struct {
	reports []ClipReport
}

func (m *memoryRecorder) RecordClip(_ context.Context, report ClipReport) {
	m.reports = append(m.reports, report)
}

func httpClip(title, address string) *Clip {
	return &Clip{
		PageURL: "http://areena.yle.fi/1-" + title,
		Title:   title,
		Stream:  stream.NewHTTPStream(address, "http://areena.yle.fi/1-"+title),
	}
}

func TestResolver_PrintURLs(t *testing.T) {
	src := staticSource{
		httpClip("a", "http://media/a.mp4"),
		{PageURL: "http://areena.yle.fi/1-b", Title: "b", Stream: noBackendStream{}},
	}

	var out bytes.Buffer
	r := New(src, KindAreena, "hds", Options{Stdout: &out})
	assert.Equal(t, domain.ResultSuccess, r.PrintURLs(context.Background(), "http://areena.yle.fi/1-x", false, domain.DefaultStreamFilters()))
	assert.Equal(t, "http://media/a.mp4\nmms://media/clip\n", out.String())

	out.Reset()
	assert.Equal(t, domain.ResultSuccess, r.PrintURLs(context.Background(), "http://areena.yle.fi/1-x", true, domain.DefaultStreamFilters()))
	assert.Equal(t, "http://areena.yle.fi/1-a\nhttp://areena.yle.fi/1-b\n", out.String())
}

func TestResolver_PrintTitles(t *testing.T) {
	src := staticSource{
		{PageURL: "http://areena.yle.fi/1-1", Title: "Vanhentunut", Stream: stream.NewInvalidStream("The clip has expired on 2013-01-01")},
		FailedClip("http://areena.yle.fi/1-2", "Failed to download program data"),
	}

	core, logs := observer.New(zap.ErrorLevel)
	var out bytes.Buffer
	r := New(src, KindAreena, "hds", Options{Stdout: &out, Logger: zap.New(core)})

	assert.Equal(t, domain.ResultFailed, r.PrintTitles(context.Background(), "http://areena.yle.fi/1-x", domain.DefaultStreamFilters()))
	assert.Equal(t, "Vanhentunut\n", out.String())
	assert.Equal(t, 1, logs.FilterMessage("Failed to resolve the title: Failed to download program data").Len())
}

func TestResolver_EmptyPlaylist(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := New(staticSource{}, KindAreena, "hds", Options{Logger: zap.New(core)})

	assert.Equal(t, domain.ResultFailed, r.Download(context.Background(), "http://areena.yle.fi/1-x", domain.DefaultStreamFilters()))
	assert.Equal(t, 1, logs.FilterMessage("No streams found").Len())
}

func TestResolver_Download(t *testing.T) {
	fs := afero.NewMemMapFs()
	client := fakeFetcher{
		"http://media/a.mp4": "first",
		"http://media/c.mp4": "third",
		"http://media/a.srt": "1\n00:00:01,000 --> 00:00:02,000\nHei\n",
	}
	clipA := httpClip("a", "http://media/a.mp4")
	clipA.Subtitles = []domain.Subtitle{{URL: "http://media/a.srt", Lang: "fin"}}

	src := staticSource{
		clipA,
		{PageURL: "http://areena.yle.fi/1-b", Stream: stream.NewInvalidStream("Unknown live channel")},
		httpClip("c", "http://media/c.mp4"),
	}

	core, logs := observer.New(zap.ErrorLevel)
	rec := &memoryRecorder{}
	r := New(src, KindAreena, "hds", Options{
		Backend:  backend.Options{DestDir: "/videos", Fs: fs, HTTP: client},
		Recorder: rec,
		Logger:   zap.New(core),
	})

	assert.Equal(t, domain.ResultFailed, r.Download(context.Background(), "http://areena.yle.fi/1-x", domain.DefaultStreamFilters()))

	data, err := afero.ReadFile(fs, "/videos/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = afero.ReadFile(fs, "/videos/c.mp4")
	require.NoError(t, err)
	assert.Equal(t, "third", string(data))

	exists, err := afero.Exists(fs, "/videos/a.fin.srt")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, 1, logs.FilterMessage("Unsupported stream: Unknown live channel").Len())

	require.Len(t, rec.reports, 3)
	assert.Equal(t, domain.ResultSuccess, rec.reports[0].Result)
	assert.Equal(t, "/videos/a.mp4", rec.reports[0].OutputFile)
	assert.Equal(t, domain.OperationDownload, rec.reports[0].Operation)
	assert.Equal(t, KindAreena, rec.reports[0].Source)
	assert.Equal(t, "hds", rec.reports[0].Protocol)
	assert.Equal(t, domain.ResultFailed, rec.reports[1].Result)
	assert.Equal(t, "Unknown live channel", rec.reports[1].Message)
	assert.Equal(t, domain.ResultSuccess, rec.reports[2].Result)
}

func TestResolver_DownloadWithoutBackend(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	src := staticSource{{PageURL: "http://areena.yle.fi/1-m", Title: "mms", Stream: noBackendStream{}}}
	r := New(src, KindAreena, "hds", Options{Logger: zap.New(core)})

	assert.Equal(t, domain.ResultFailed, r.Download(context.Background(), "http://areena.yle.fi/1-m", domain.DefaultStreamFilters()))
	assert.Equal(t, 1, logs.FilterMessage("Try --showurl").Len())
}

func TestResolver_Pipe(t *testing.T) {
	var out bytes.Buffer
	fs := afero.NewMemMapFs()
	r := New(staticSource{httpClip("a", "http://media/a.mp4")}, KindAreena, "hds", Options{
		Stdout:  &out,
		Backend: backend.Options{DestDir: "/videos", Fs: fs, HTTP: fakeFetcher{"http://media/a.mp4": "stream-bytes"}},
	})

	assert.Equal(t, domain.ResultSuccess, r.Pipe(context.Background(), "http://areena.yle.fi/1-a", domain.DefaultStreamFilters()))
	assert.Equal(t, "stream-bytes", out.String())

	exists, err := afero.DirExists(fs, "/videos")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestResolver_CancelledPlaylist(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &memoryRecorder{}
	r := New(staticSource{httpClip("a", "http://media/a.mp4")}, KindAreena, "hds", Options{Recorder: rec})
	assert.Equal(t, domain.ResultIncomplete, r.Download(ctx, "http://areena.yle.fi/1-a", domain.DefaultStreamFilters()))
	assert.Empty(t, rec.reports)
}

func TestResolver_Each(t *testing.T) {
	src := staticSource{
		httpClip("a", "http://media/a.mp4"),
		FailedClip("http://areena.yle.fi/1-b", "Failed to parse a program ID"),
	}

	var titles []string
	r := New(src, KindAreena, "hds", Options{})
	result := r.Each(context.Background(), "http://areena.yle.fi/1-x", domain.DefaultStreamFilters(), func(c *Clip) {
		titles = append(titles, c.Title)
	})

	assert.Equal(t, domain.ResultFailed, result)
	assert.Equal(t, []string{"a"}, titles)
}
