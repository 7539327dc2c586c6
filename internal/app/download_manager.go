package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/afero"
	"github.com/yourusername/yle-dl-go/internal/backend"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"github.com/yourusername/yle-dl-go/internal/resolver"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrHistoryDisabled is returned by the history queries when no
// repository is configured
var ErrHistoryDisabled = errors.New("download history is disabled")

// Notifier is told about finished downloads
type Notifier interface {
	NotifyDownloadCompleted(title, file string)
	NotifyDownloadFailed(title, url, reason string)
}

// Request is one operation on one page URL
type Request struct {
	URL       string
	Operation domain.Operation
	Filters   domain.StreamFilters
	Protocols []string // empty means the configured default
	ExtraArgs []string // passed through to the external downloader
	DestDir   string   // overrides the configured destination
}

// ResolvedClip is the metadata of a clip without downloading it
type ResolvedClip struct {
	Title      string            `json:"title"`
	PageURL    string            `json:"page_url"`
	StreamURL  string            `json:"stream_url"`
	EpisodeURL string            `json:"episode_url,omitempty"`
	Subtitles  []domain.Subtitle `json:"subtitles,omitempty"`
}

// DownloadManager runs operations on Yle page URLs. It picks the source
// for the URL, falls back through the streaming protocols and records
// every processed clip in the history.
type DownloadManager struct {
	config   *domain.Config
	client   backend.Client
	repo     domain.DownloadRepository
	notifier Notifier
	stdout   io.Writer
	fs       afero.Fs
	logger   *zap.Logger

	lookPath func(file string) (string, error)
}

// BackendStatus tells whether the program of one external downloader is
// installed
type BackendStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
}

// NewDownloadManager creates a new download manager. repo and notifier
// may be nil.
func NewDownloadManager(
	config *domain.Config,
	client backend.Client,
	repo domain.DownloadRepository,
	notifier Notifier,
	logger *zap.Logger,
) *DownloadManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadManager{
		config:   config,
		client:   client,
		repo:     repo,
		notifier: notifier,
		stdout:   os.Stdout,
		fs:       afero.NewOsFs(),
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

// SetOutput replaces the standard output and the filesystem the
// downloads are written to
func (dm *DownloadManager) SetOutput(stdout io.Writer, fs afero.Fs) {
	dm.stdout = stdout
	dm.fs = fs
}

// Backends reports which of the configured external downloaders can be
// started
func (dm *DownloadManager) Backends() []BackendStatus {
	programs := []struct{ name, command string }{
		{"rtmpdump", dm.config.Backends.RTMPDumpPath},
		{"adobehds", ""},
		{"yt-dlp", dm.config.Backends.YTDLPPath},
	}
	if len(dm.config.Backends.AdobeHDSCommand) > 0 {
		programs[1].command = dm.config.Backends.AdobeHDSCommand[0]
	}

	statuses := make([]BackendStatus, 0, len(programs))
	for _, p := range programs {
		status := BackendStatus{Name: p.name, Command: p.command}
		if p.command != "" {
			_, err := dm.lookPath(p.command)
			status.Available = err == nil
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// HistoryEnabled reports whether processed clips are recorded
func (dm *DownloadManager) HistoryEnabled() bool {
	return dm.repo != nil
}

// DefaultFilters returns the stream filters of the configuration
func (dm *DownloadManager) DefaultFilters() domain.StreamFilters {
	filters := domain.DefaultStreamFilters()
	if dm.config.Download.SubLang != "" {
		filters.SubLang = dm.config.Download.SubLang
	}
	if bitrate, err := domain.ParseBitrate(dm.config.Download.MaxBitrate); err == nil {
		filters.MaxBitrate = bitrate
	}
	return filters
}

// Run performs the requested operation and returns its result
func (dm *DownloadManager) Run(ctx context.Context, req Request) domain.Result {
	req.URL = fetch.EncodeURLUTF8(req.URL)
	kind := resolver.Classify(req.URL)
	if kind == resolver.KindUnsupported {
		dm.logger.Error(fmt.Sprintf("Unsupported URL %s.", req.URL))
		dm.logger.Error("Is this really a Yle video page?")
		return domain.ResultFailed
	}

	dm.logger.Debug("Processing URL",
		zap.String("url", req.URL),
		zap.String("source", string(kind)),
		zap.String("operation", string(req.Operation)))

	engine := resolver.NewRetrying(kind, dm.protocols(req), dm.factory(kind, req, nil), dm.logger)

	switch req.Operation {
	case domain.OperationDownload, "":
		return engine.Download(ctx, req.URL, req.Filters)
	case domain.OperationPipe:
		return engine.Pipe(ctx, req.URL, req.Filters)
	case domain.OperationPrintURL:
		return engine.PrintURLs(ctx, req.URL, false, req.Filters)
	case domain.OperationPrintPage:
		return engine.PrintURLs(ctx, req.URL, true, req.Filters)
	case domain.OperationPrintTitle:
		return engine.PrintTitles(ctx, req.URL, req.Filters)
	default:
		dm.logger.Error("Unknown operation", zap.String("operation", string(req.Operation)))
		return domain.ResultFailed
	}
}

// Resolve returns the clips of a page URL without downloading them. Only
// the clips of the protocol attempt that produced the result are returned.
func (dm *DownloadManager) Resolve(ctx context.Context, req Request) ([]ResolvedClip, domain.Result, error) {
	req.URL = fetch.EncodeURLUTF8(req.URL)
	kind := resolver.Classify(req.URL)
	if kind == resolver.KindUnsupported {
		return nil, domain.ResultFailed, fmt.Errorf("%w: %s", resolver.ErrUnsupportedURL, req.URL)
	}

	var clips []ResolvedClip
	factory := dm.factory(kind, req, func() { clips = nil })
	engine := resolver.NewRetrying(kind, dm.protocols(req), factory, dm.logger)

	result := engine.Each(ctx, req.URL, req.Filters, func(c *resolver.Clip) {
		clips = append(clips, ResolvedClip{
			Title:      c.Title,
			PageURL:    c.PageURL,
			StreamURL:  c.Stream.URL(),
			EpisodeURL: c.Stream.EpisodeURL(),
			Subtitles:  c.Subtitles,
		})
	})
	return clips, result, nil
}

func (dm *DownloadManager) protocols(req Request) []string {
	if len(req.Protocols) > 0 {
		return req.Protocols
	}
	return dm.config.Download.Protocols
}

// factory builds a resolver per protocol attempt. onAttempt runs before
// every attempt that gets a resolver.
func (dm *DownloadManager) factory(kind resolver.Kind, req Request, onAttempt func()) resolver.Factory {
	return func(protocol string) (*resolver.Resolver, error) {
		source, err := resolver.NewSource(kind, protocol, resolver.Deps{
			Fetcher: dm.client,
			Logger:  dm.logger,
		})
		if err != nil {
			return nil, err
		}
		if onAttempt != nil {
			onAttempt()
		}

		dm.logger.Debug("Trying protocol", zap.String("protocol", protocol))
		return resolver.New(source, kind, protocol, resolver.Options{
			Backend:  dm.backendOptions(req),
			Stdout:   dm.stdout,
			Recorder: dm,
			Logger:   dm.logger,
		}), nil
	}
}

func (dm *DownloadManager) backendOptions(req Request) backend.Options {
	destDir := req.DestDir
	if destDir == "" {
		destDir = dm.config.Download.DestDir
	}

	return backend.Options{
		DestDir:         destDir,
		ExtraArgs:       req.ExtraArgs,
		VFAT:            dm.config.Download.VFAT,
		Debug:           dm.logger.Core().Enabled(zapcore.DebugLevel),
		RTMPDumpPath:    dm.config.Backends.RTMPDumpPath,
		AdobeHDSCommand: dm.config.Backends.AdobeHDSCommand,
		YTDLPPath:       dm.config.Backends.YTDLPPath,
		HTTP:            dm.client,
		Fs:              dm.fs,
		Stdout:          dm.stdout,
		Logger:          dm.logger,
	}
}

// RecordClip stores a history record of a processed clip and notifies
// about finished downloads
func (dm *DownloadManager) RecordClip(_ context.Context, report resolver.ClipReport) {
	if dm.repo != nil {
		download := domain.NewDownload(report.Clip.PageURL, string(report.Source), report.Protocol, report.Operation)
		download.Title = report.Clip.Title
		download.Finish(report.Result, report.OutputFile, report.Message)

		if err := dm.repo.Create(download); err != nil {
			dm.logger.Warn("Failed to record download history",
				zap.String("url", download.URL),
				zap.Error(err))
		}
	}

	if dm.notifier == nil || report.Operation != domain.OperationDownload {
		return
	}
	switch report.Result {
	case domain.ResultSuccess:
		dm.notifier.NotifyDownloadCompleted(report.Clip.Title, report.OutputFile)
	case domain.ResultFailed:
		dm.notifier.NotifyDownloadFailed(report.Clip.Title, report.Clip.PageURL, report.Message)
	}
}

// History returns the most recent history records
func (dm *DownloadManager) History(limit int) ([]*domain.Download, error) {
	if dm.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return dm.repo.FindRecent(limit)
}

// HistoryForURL returns the history records of one page URL
func (dm *DownloadManager) HistoryForURL(url string) ([]*domain.Download, error) {
	if dm.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return dm.repo.FindByURL(url)
}

// HistoryEntry returns one history record
func (dm *DownloadManager) HistoryEntry(id string) (*domain.Download, error) {
	if dm.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return dm.repo.FindByID(id)
}

// HistoryStats returns the history statistics
func (dm *DownloadManager) HistoryStats() (*domain.DownloadStats, error) {
	if dm.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return dm.repo.GetStats()
}
