// Package backend saves resolved streams to disk or stdout, either with
// external downloaders or with a built-in HTTP copy.
package backend

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"go.uber.org/zap"
)

// Backend moves the bytes of one stream
type Backend interface {
	// Save writes the stream into OutputFilename
	Save(ctx context.Context) domain.Result
	// Pipe writes the stream to stdout
	Pipe(ctx context.Context) domain.Result
	// OutputFilename is the file Save writes to
	OutputFilename() string
}

// Client is the HTTP access the built-in backends need
type Client interface {
	fetch.PageFetcher
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Options configure every backend of one invocation
type Options struct {
	DestDir   string
	ExtraArgs []string // passed through to the external downloader
	VFAT      bool
	Debug     bool

	RTMPDumpPath    string
	AdobeHDSCommand []string
	YTDLPPath       string

	HTTP   Client
	Fs     afero.Fs
	Stdout io.Writer
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.HTTP == nil {
		o.HTTP = fetch.NewFetcher(fetch.Options{UserAgent: "yle-dl/" + domain.Version}, o.Logger)
	}
	if o.RTMPDumpPath == "" {
		o.RTMPDumpPath = "rtmpdump"
	}
	if len(o.AdobeHDSCommand) == 0 {
		o.AdobeHDSCommand = []string{"php", "/usr/local/share/yle-dl/AdobeHDS.php"}
	}
	if o.YTDLPPath == "" {
		o.YTDLPPath = "yt-dlp"
	}
	return o
}

// base carries the output file logic shared by all backends
type base struct {
	title      string
	opts       Options
	logger     *zap.Logger
	outputFile string
}

func newBase(title string, opts Options, resumeSupported bool) base {
	opts = opts.withDefaults()
	if title == "" {
		title = "ylestream"
	}

	b := base{title: title, opts: opts, logger: opts.Logger}
	if IsResumeJob(opts.ExtraArgs) && !resumeSupported {
		b.logger.Warn("Resume not supported on this stream")
	}
	return b
}

// outputFileFromTitle derives the file name from the clip title. Unless
// resuming, an existing file is never overwritten. The name is computed
// once per backend.
func (b *base) outputFileFromTitle(ext string, resume bool) string {
	if b.outputFile != "" {
		return b.outputFile
	}

	filename := SaneFilename(b.title, b.opts.VFAT) + ext
	if b.opts.DestDir != "" {
		filename = joinPath(b.opts.DestDir, filename)
	}
	if !resume {
		filename = NextAvailableFilename(b.opts.Fs, filename, b.logger)
	}

	b.outputFile = filename
	return filename
}

// defaultOutputFilename honours -o/--flv in the extra arguments
func (b *base) defaultOutputFilename(ext string, resume bool) string {
	if f := OutputFileFromArgs(b.opts.ExtraArgs); f != "" {
		return f
	}
	return b.outputFileFromTitle(ext, resume)
}

func (b *base) logOutputFile(outputFile string, done bool) {
	if outputFile == "" || outputFile == "-" {
		return
	}
	if done {
		b.logger.Info("Stream saved to " + outputFile)
	} else {
		b.logger.Info("Output file: " + outputFile)
	}
}

func (b *base) runner() *Runner {
	return NewRunner(b.opts.Stdout, b.logger)
}

// saveExternal runs an external downloader that writes outputFile
func (b *base) saveExternal(ctx context.Context, args []string, outputFile string) domain.Result {
	b.logOutputFile(outputFile, false)
	result := b.runner().Run(ctx, args)
	if result == domain.ResultSuccess {
		b.logOutputFile(outputFile, true)
	}
	return result
}
