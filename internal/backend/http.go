package backend

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/yourusername/yle-dl-go/internal/domain"
	"go.uber.org/zap"
)

// HTTPDump copies a plain HTTP file without an external program
type HTTPDump struct {
	base
	url string
	ext string
}

// NewHTTPDump creates a built-in HTTP backend. ext defaults to .flv.
func NewHTTPDump(url, ext, title string, opts Options) *HTTPDump {
	if ext == "" {
		ext = ".flv"
	}
	return &HTTPDump{
		base: newBase(title, opts, false),
		url:  url,
		ext:  ext,
	}
}

// OutputFilename returns the destination file
func (d *HTTPDump) OutputFilename() string {
	return d.defaultOutputFilename(d.ext, false)
}

// Save downloads the file. The file is created only once the server
// answers, and a failed transfer removes it.
func (d *HTTPDump) Save(ctx context.Context) domain.Result {
	d.logger.Info("Downloading from HTTP server...")
	d.logger.Debug("HTTP download", zap.String("url", d.url))

	filename := d.OutputFilename()
	d.logOutputFile(filename, false)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	body, err := d.opts.HTTP.Open(ctx, d.url)
	if err != nil {
		d.logger.Error("Download failed: " + err.Error())
		return domain.ResultFailed
	}
	defer body.Close()

	out, err := d.opts.Fs.Create(filename)
	if err != nil {
		d.logger.Error("Download failed: " + err.Error())
		return domain.ResultFailed
	}

	result := d.copy(ctx, out, body)
	if err := out.Close(); err != nil && result == domain.ResultSuccess {
		d.logger.Error("Download failed: " + err.Error())
		result = domain.ResultFailed
	}

	switch result {
	case domain.ResultSuccess:
		d.logOutputFile(filename, true)
	case domain.ResultFailed:
		if err := d.opts.Fs.Remove(filename); err != nil {
			d.logger.Debug("Failed to remove partial download", zap.String("file", filename), zap.Error(err))
		}
	}
	return result
}

// Pipe writes the file to stdout
func (d *HTTPDump) Pipe(ctx context.Context) domain.Result {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	body, err := d.opts.HTTP.Open(ctx, d.url)
	if err != nil {
		d.logger.Error("Download failed: " + err.Error())
		return domain.ResultFailed
	}
	defer body.Close()

	return d.copy(ctx, d.opts.Stdout, body)
}

func (d *HTTPDump) copy(ctx context.Context, w io.Writer, body io.Reader) domain.Result {
	if _, err := io.Copy(w, body); err != nil {
		if ctx.Err() != nil {
			return domain.ResultIncomplete
		}
		d.logger.Error("Download failed: " + err.Error())
		return domain.ResultFailed
	}
	return domain.ResultSuccess
}
