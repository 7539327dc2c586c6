// Package resolver turns Yle web page URLs into clips and runs the
// download, pipe and print operations on them.
package resolver

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yourusername/yle-dl-go/internal/backend"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"github.com/yourusername/yle-dl-go/internal/stream"
	"go.uber.org/zap"
)

// Clip is one resolved episode or broadcast
type Clip struct {
	PageURL   string
	Title     string
	Stream    stream.Descriptor
	Subtitles []domain.Subtitle
}

// FailedClip creates a clip without a title whose stream explains the failure
func FailedClip(pageURL, message string) *Clip {
	return &Clip{PageURL: pageURL, Stream: stream.NewInvalidStream(message)}
}

// Failed reports whether the clip could not be resolved at all
func (c *Clip) Failed() bool {
	return c.Title == "" && !c.Stream.IsValid()
}

// Entry is one playlist item. Sources that resolve the whole playlist in
// one go set Clip directly, the others leave it to Source.Clip.
type Entry struct {
	URL  string
	Clip *Clip
	Data any
}

// Source knows how one Yle service area publishes its streams
type Source interface {
	// Playlist lists the clips referred to by a page URL. An empty
	// playlist means nothing could be found.
	Playlist(ctx context.Context, url string, filters domain.StreamFilters) []Entry
	// Clip resolves one playlist entry. It never returns nil.
	Clip(ctx context.Context, entry Entry, filters domain.StreamFilters) *Clip
}

// Deps are the collaborators shared by all sources
type Deps struct {
	Fetcher fetch.PageFetcher
	Logger  *zap.Logger
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// timestamp is appended to the titles of live broadcasts
func (d Deps) timestamp() string {
	return d.Now().Format("-2006-01-02-15:04:05")
}

// ClipReport describes what happened to one clip
type ClipReport struct {
	Clip       *Clip
	Source     Kind
	Protocol   string
	Operation  domain.Operation
	Result     domain.Result
	OutputFile string
	Message    string
}

// Recorder is notified about every processed clip
type Recorder interface {
	RecordClip(ctx context.Context, report ClipReport)
}

// Options configure the operations of a resolver
type Options struct {
	Backend  backend.Options
	Stdout   io.Writer
	Recorder Recorder
	Logger   *zap.Logger
}

// Resolver runs the operations of one source with one streaming protocol
type Resolver struct {
	source   Source
	kind     Kind
	protocol string
	opts     Options
	logger   *zap.Logger

	succeeded int // clips that succeeded in the last operation
}

// New creates a resolver for source
func New(source Source, kind Kind, protocol string, opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Backend.Logger == nil {
		opts.Backend.Logger = opts.Logger
	}
	if opts.Backend.Stdout == nil {
		opts.Backend.Stdout = opts.Stdout
	}

	return &Resolver{
		source:   source,
		kind:     kind,
		protocol: protocol,
		opts:     opts,
		logger:   opts.Logger,
	}
}

type clipOutcome struct {
	result     domain.Result
	outputFile string
	message    string
}

type clipFunc func(ctx context.Context, clip *Clip, filters domain.StreamFilters) clipOutcome

// Download saves every clip of the playlist together with its subtitles
func (r *Resolver) Download(ctx context.Context, url string, filters domain.StreamFilters) domain.Result {
	return r.process(ctx, url, filters, domain.OperationDownload, true, r.downloadClip)
}

// Pipe writes the stream of every clip to stdout
func (r *Resolver) Pipe(ctx context.Context, url string, filters domain.StreamFilters) domain.Result {
	return r.process(ctx, url, filters, domain.OperationPipe, true, r.pipeClip)
}

// PrintURLs prints the stream URL of every clip, or its episode page
// when episodePage is set
func (r *Resolver) PrintURLs(ctx context.Context, url string, episodePage bool, filters domain.StreamFilters) domain.Result {
	op := domain.OperationPrintURL
	if episodePage {
		op = domain.OperationPrintPage
	}

	return r.process(ctx, url, filters, op, true, func(_ context.Context, clip *Clip, _ domain.StreamFilters) clipOutcome {
		address := clip.Stream.URL()
		if episodePage {
			address = clip.Stream.EpisodeURL()
			if address == "" {
				address = clip.PageURL
			}
		}
		fmt.Fprintln(r.opts.Stdout, address)
		return clipOutcome{result: domain.ResultSuccess}
	})
}

// PrintTitles prints the title of every clip. The stream does not need
// to be downloadable.
func (r *Resolver) PrintTitles(ctx context.Context, url string, filters domain.StreamFilters) domain.Result {
	return r.process(ctx, url, filters, domain.OperationPrintTitle, false, func(_ context.Context, clip *Clip, _ domain.StreamFilters) clipOutcome {
		if clip.Title == "" {
			message := clip.Stream.ErrorMessage()
			r.logger.Error("Failed to resolve the title: "+message, zap.String("url", clip.PageURL))
			return clipOutcome{result: domain.ResultFailed, message: message}
		}
		fmt.Fprintln(r.opts.Stdout, clip.Title)
		return clipOutcome{result: domain.ResultSuccess}
	})
}

// Each resolves the playlist and hands every valid clip to fn. It is used
// by callers that only need the resolved metadata.
func (r *Resolver) Each(ctx context.Context, url string, filters domain.StreamFilters, fn func(*Clip)) domain.Result {
	return r.process(ctx, url, filters, domain.OperationResolveOnly, true, func(_ context.Context, clip *Clip, _ domain.StreamFilters) clipOutcome {
		fn(clip)
		return clipOutcome{result: domain.ResultSuccess}
	})
}

// Succeeded returns the number of clips that succeeded in the last
// operation
func (r *Resolver) Succeeded() int {
	return r.succeeded
}

// process applies fn to every clip of the playlist. One failed clip does
// not stop the others; the last unsuccessful result is returned.
func (r *Resolver) process(ctx context.Context, url string, filters domain.StreamFilters, op domain.Operation, needStream bool, fn clipFunc) domain.Result {
	r.succeeded = 0
	entries := r.source.Playlist(ctx, url, filters)
	if len(entries) == 0 {
		r.logger.Error("No streams found", zap.String("url", url))
		return domain.ResultFailed
	}
	r.logger.Debug("Playlist", zap.Int("clips", len(entries)), zap.String("protocol", r.protocol))

	overall := domain.ResultSuccess
	for _, entry := range entries {
		if ctx.Err() != nil {
			return domain.ResultIncomplete
		}

		clip := entry.Clip
		if clip == nil {
			clip = r.source.Clip(ctx, entry, filters)
		}

		var outcome clipOutcome
		if needStream && !clip.Stream.IsValid() {
			outcome.result = domain.ResultFailed
			outcome.message = clip.Stream.ErrorMessage()
			r.logger.Error("Unsupported stream: " + outcome.message)
		} else {
			outcome = fn(ctx, clip, filters)
		}

		r.record(ctx, clip, op, outcome)
		if outcome.result == domain.ResultSuccess {
			r.succeeded++
		} else {
			overall = outcome.result
		}
	}

	return overall
}

func (r *Resolver) downloadClip(ctx context.Context, clip *Clip, filters domain.StreamFilters) clipOutcome {
	dl := clip.Stream.NewBackend(clip.Title, r.opts.Backend)
	if dl == nil {
		r.logger.Error(fmt.Sprintf("Downloading the stream at %s is not yet supported.", clip.PageURL))
		r.logger.Error("Try --showurl")
		return clipOutcome{result: domain.ResultFailed, message: "unsupported stream type"}
	}

	outputFile := dl.OutputFilename()
	backend.SaveSubtitles(ctx, clip.Subtitles, filters, outputFile, r.opts.Backend)

	result := dl.Save(ctx)
	outcome := clipOutcome{result: result, outputFile: outputFile}
	if result == domain.ResultFailed {
		outcome.message = "download failed"
	}
	return outcome
}

func (r *Resolver) pipeClip(ctx context.Context, clip *Clip, _ domain.StreamFilters) clipOutcome {
	opts := r.opts.Backend
	opts.DestDir = ""
	opts.ExtraArgs = nil

	dl := clip.Stream.NewBackend(clip.Title, opts)
	if dl == nil {
		r.logger.Error(fmt.Sprintf("Piping the stream at %s is not supported.", clip.PageURL))
		return clipOutcome{result: domain.ResultFailed, message: "unsupported stream type"}
	}

	result := dl.Pipe(ctx)
	outcome := clipOutcome{result: result, outputFile: "-"}
	if result == domain.ResultFailed {
		outcome.message = "pipe failed"
	}
	return outcome
}

func (r *Resolver) record(ctx context.Context, clip *Clip, op domain.Operation, outcome clipOutcome) {
	if r.opts.Recorder == nil {
		return
	}
	r.opts.Recorder.RecordClip(ctx, ClipReport{
		Clip:       clip,
		Source:     r.kind,
		Protocol:   r.protocol,
		Operation:  op,
		Result:     outcome.result,
		OutputFile: outcome.outputFile,
		Message:    outcome.message,
	})
}
