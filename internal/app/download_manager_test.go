package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/resolver"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testArticleURL = "http://yle.fi/aihe/artikkeli/kuuma-kesa"
	testEmbedURL   = "http://yle.fi/elavaarkisto/embed/121.jsonp?callback=yleEmbed.eaJsonpCallback&instance=1&id=121&lang=fi"
)

// fakeClient serves canned bodies by exact URL
type fakeClient map[string]string

func (f fakeClient) Fetch(_ context.Context, rawURL string) (string, error) {
	if body, ok := f[rawURL]; ok {
		return body, nil
	}
	return "", errors.New("HTTP 404")
}

func (f fakeClient) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func archiveClient() fakeClient {
	return fakeClient{
		testArticleURL:                    `<html><div class="player" data-id="121"></div></html>`,
		testEmbedURL:                      `yleEmbed.eaJsonpCallback({"title":"Kuuma kesä","downloadUrl":"http://download.example/121.mp4"});`,
		"http://download.example/121.mp4": "video-bytes",
	}
}

// mockDownloadManagerRepo implements domain.DownloadRepository for testing
type mockDownloadManagerRepo struct {
	downloads []*domain.Download
}

func (m *mockDownloadManagerRepo) Create(download *domain.Download) error {
	m.downloads = append(m.downloads, download)
	return nil
}

func (m *mockDownloadManagerRepo) Update(download *domain.Download) error { return nil }

func (m *mockDownloadManagerRepo) FindByID(id string) (*domain.Download, error) {
	for _, d := range m.downloads {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, errors.New("record not found")
}

func (m *mockDownloadManagerRepo) FindRecent(limit int) ([]*domain.Download, error) {
	return m.downloads, nil
}

func (m *mockDownloadManagerRepo) FindByURL(url string) ([]*domain.Download, error) {
	var found []*domain.Download
	for _, d := range m.downloads {
		if d.URL == url {
			found = append(found, d)
		}
	}
	return found, nil
}

func (m *mockDownloadManagerRepo) GetStats() (*domain.DownloadStats, error) {
	return &domain.DownloadStats{Total: int64(len(m.downloads))}, nil
}

type recordingNotifier struct {
	completed []string
	failed    []string
}

func (n *recordingNotifier) NotifyDownloadCompleted(title, file string) {
	n.completed = append(n.completed, title+" -> "+file)
}

func (n *recordingNotifier) NotifyDownloadFailed(title, url, reason string) {
	n.failed = append(n.failed, url+": "+reason)
}

func newTestDownloadManager(client fakeClient, repo domain.DownloadRepository, notifier Notifier, logger *zap.Logger) (*DownloadManager, afero.Fs, *bytes.Buffer) {
	config := domain.DefaultConfig()
	config.Download.DestDir = "/videos"

	var stdout bytes.Buffer
	fs := afero.NewMemMapFs()
	dm := NewDownloadManager(config, client, repo, notifier, logger)
	dm.SetOutput(&stdout, fs)
	return dm, fs, &stdout
}

func TestRun_DownloadRecordsHistory(t *testing.T) {
	repo := &mockDownloadManagerRepo{}
	notifier := &recordingNotifier{}
	dm, fs, _ := newTestDownloadManager(archiveClient(), repo, notifier, nil)

	result := dm.Run(context.Background(), Request{
		URL:       testArticleURL,
		Operation: domain.OperationDownload,
		Filters:   domain.DefaultStreamFilters(),
	})
	require.Equal(t, domain.ResultSuccess, result)

	data, err := afero.ReadFile(fs, "/videos/Kuuma kesä.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	require.Len(t, repo.downloads, 1)
	record := repo.downloads[0]
	assert.Equal(t, "Kuuma kesä", record.Title)
	assert.Equal(t, testArticleURL, record.URL)
	assert.Equal(t, "elavaarkisto", record.Source)
	assert.Equal(t, "hds", record.Protocol)
	assert.Equal(t, domain.StatusCompleted, record.Status)
	assert.Equal(t, "/videos/Kuuma kesä.mp4", record.FilePath)

	assert.Equal(t, []string{"Kuuma kesä -> /videos/Kuuma kesä.mp4"}, notifier.completed)
	assert.Empty(t, notifier.failed)
}

func TestRun_DestDirOverride(t *testing.T) {
	dm, fs, _ := newTestDownloadManager(archiveClient(), nil, nil, nil)

	result := dm.Run(context.Background(), Request{
		URL:     testArticleURL,
		Filters: domain.DefaultStreamFilters(),
		DestDir: "/elsewhere",
	})
	require.Equal(t, domain.ResultSuccess, result)

	exists, err := afero.Exists(fs, "/elsewhere/Kuuma kesä.mp4")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_FailedDownloadRetriesEveryProtocol(t *testing.T) {
	repo := &mockDownloadManagerRepo{}
	notifier := &recordingNotifier{}
	client := archiveClient()
	delete(client, "http://download.example/121.mp4")
	dm, _, _ := newTestDownloadManager(client, repo, notifier, nil)

	result := dm.Run(context.Background(), Request{URL: testArticleURL, Filters: domain.DefaultStreamFilters()})
	assert.Equal(t, domain.ResultFailed, result)

	// hds, hds:youtubedl and rtmp were each tried once
	require.Len(t, repo.downloads, 3)
	assert.Equal(t, "rtmp", repo.downloads[2].Protocol)
	assert.Equal(t, domain.StatusFailed, repo.downloads[2].Status)
	assert.Len(t, notifier.failed, 3)
}

func TestRun_PrintTitles(t *testing.T) {
	repo := &mockDownloadManagerRepo{}
	notifier := &recordingNotifier{}
	dm, _, stdout := newTestDownloadManager(archiveClient(), repo, notifier, nil)

	result := dm.Run(context.Background(), Request{
		URL:       testArticleURL,
		Operation: domain.OperationPrintTitle,
		Filters:   domain.DefaultStreamFilters(),
	})
	require.Equal(t, domain.ResultSuccess, result)
	assert.Equal(t, "Kuuma kesä\n", stdout.String())

	require.Len(t, repo.downloads, 1)
	assert.Equal(t, domain.OperationPrintTitle, repo.downloads[0].Operation)
	assert.Empty(t, notifier.completed)
}

func TestRun_PrintURLs(t *testing.T) {
	dm, _, stdout := newTestDownloadManager(archiveClient(), nil, nil, nil)

	result := dm.Run(context.Background(), Request{
		URL:       testArticleURL,
		Operation: domain.OperationPrintURL,
		Filters:   domain.DefaultStreamFilters(),
	})
	require.Equal(t, domain.ResultSuccess, result)
	assert.Equal(t, "http://download.example/121.mp4\n", stdout.String())
}

func TestRun_UnsupportedURL(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	dm, _, _ := newTestDownloadManager(fakeClient{}, nil, nil, zap.New(core))

	assert.Equal(t, domain.ResultFailed, dm.Run(context.Background(), Request{URL: "http://example.com/video"}))
	assert.Equal(t, 1, logs.FilterMessage("Unsupported URL http://example.com/video.").Len())
}

func TestRun_UnknownOperation(t *testing.T) {
	dm, _, _ := newTestDownloadManager(archiveClient(), nil, nil, nil)

	assert.Equal(t, domain.ResultFailed, dm.Run(context.Background(), Request{URL: testArticleURL, Operation: "rewind"}))
}

func TestResolve(t *testing.T) {
	dm, fs, _ := newTestDownloadManager(archiveClient(), nil, nil, nil)

	clips, result, err := dm.Resolve(context.Background(), Request{URL: testArticleURL, Filters: domain.DefaultStreamFilters()})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, result)
	require.Len(t, clips, 1)
	assert.Equal(t, "Kuuma kesä", clips[0].Title)
	assert.Equal(t, "http://download.example/121.mp4", clips[0].StreamURL)
	assert.Equal(t, testArticleURL, clips[0].PageURL)

	// Nothing is written when resolving
	exists, err := afero.DirExists(fs, "/videos")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestResolve_UnsupportedURL(t *testing.T) {
	dm, _, _ := newTestDownloadManager(fakeClient{}, nil, nil, nil)

	_, result, err := dm.Resolve(context.Background(), Request{URL: "http://example.com/video"})
	assert.ErrorIs(t, err, resolver.ErrUnsupportedURL)
	assert.Equal(t, domain.ResultFailed, result)
}

func TestHistory_Disabled(t *testing.T) {
	dm, _, _ := newTestDownloadManager(fakeClient{}, nil, nil, nil)

	_, err := dm.History(10)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = dm.HistoryStats()
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = dm.HistoryEntry("x")
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = dm.HistoryForURL(testArticleURL)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestDefaultFilters(t *testing.T) {
	dm, _, _ := newTestDownloadManager(fakeClient{}, nil, nil, nil)
	dm.config.Download.SubLang = "fin"
	dm.config.Download.MaxBitrate = "1500"

	filters := dm.DefaultFilters()
	assert.Equal(t, "fin", filters.SubLang)
	assert.Equal(t, 1500, filters.MaxBitrate)
	assert.False(t, filters.LatestOnly)
}

func TestBackends(t *testing.T) {
	dm, _, _ := newTestDownloadManager(fakeClient{}, nil, nil, nil)
	dm.config.Backends.YTDLPPath = ""
	dm.lookPath = func(file string) (string, error) {
		if file == "php" {
			return "/usr/bin/php", nil
		}
		return "", errors.New("executable file not found in $PATH")
	}

	assert.Equal(t, []BackendStatus{
		{Name: "rtmpdump", Command: "rtmpdump", Available: false},
		{Name: "adobehds", Command: "php", Available: true},
		{Name: "yt-dlp", Command: "", Available: false},
	}, dm.Backends())
	assert.False(t, dm.HistoryEnabled())

	dm, _, _ = newTestDownloadManager(fakeClient{}, &mockDownloadManagerRepo{}, nil, nil)
	assert.True(t, dm.HistoryEnabled())
}
