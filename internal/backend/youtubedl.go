package backend

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/lrstanley/go-ytdlp"
	"github.com/samber/lo"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"go.uber.org/zap"
)

// YoutubeDL saves HDS streams with yt-dlp's f4m downloader
type YoutubeDL struct {
	base
	manifest   string
	maxBitrate int
}

// NewYoutubeDL creates a yt-dlp backend
func NewYoutubeDL(manifest, title string, maxBitrate int, opts Options) *YoutubeDL {
	return &YoutubeDL{
		base:       newBase(title, opts, true),
		manifest:   manifest,
		maxBitrate: maxBitrate,
	}
}

// OutputFilename returns the file yt-dlp writes
func (d *YoutubeDL) OutputFilename() string {
	return d.defaultOutputFilename(".flv", IsResumeJob(d.opts.ExtraArgs))
}

// Save downloads the stream through go-ytdlp
func (d *YoutubeDL) Save(ctx context.Context) domain.Result {
	output := d.OutputFilename()
	d.logOutputFile(output, false)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cmd := d.command(output, d.formatSelector(ctx))
	if _, err := cmd.Run(ctx, d.manifest); err != nil {
		if ctx.Err() != nil {
			return domain.ResultIncomplete
		}
		d.logger.Error("yt-dlp download failed", zap.Error(err))
		return domain.ResultFailed
	}

	d.logOutputFile(output, true)
	return domain.ResultSuccess
}

// command configures yt-dlp for writing the manifest to output
func (d *YoutubeDL) command(output, format string) *ytdlp.Command {
	cmd := ytdlp.New().
		SetExecutable(d.opts.YTDLPPath).
		NoPart().
		Output(output)
	if format != "" {
		cmd = cmd.Format(format)
	}
	if IsResumeJob(d.opts.ExtraArgs) {
		cmd = cmd.Continue()
	}
	if d.opts.Debug {
		cmd = cmd.Verbose()
	}
	return cmd
}

// Pipe runs the yt-dlp binary writing to stdout. go-ytdlp captures the
// child's stdout, so the external runner is used instead.
func (d *YoutubeDL) Pipe(ctx context.Context) domain.Result {
	args := []string{d.opts.YTDLPPath, "--no-part", "--quiet"}
	if format := d.formatSelector(ctx); format != "" {
		args = append(args, "--format", format)
	}
	args = append(args, "--output", "-", d.manifest)
	return d.runner().Run(ctx, args)
}

// formatSelector chooses the best manifest bitrate within the limit, or
// the lowest one when none qualifies.
func (d *YoutubeDL) formatSelector(ctx context.Context) string {
	bitrates := d.streamBitrates(ctx)
	d.logger.Debug("Available bitrates", zap.Ints("bitrates", bitrates), zap.Int("max_bitrate", d.maxBitrate))
	if len(bitrates) == 0 {
		return ""
	}

	selected := lo.Min(bitrates)
	acceptable := lo.Filter(bitrates, func(br int, _ int) bool { return br <= d.maxBitrate })
	if len(acceptable) > 0 {
		selected = lo.Max(acceptable)
	}

	d.logger.Debug("Selected bitrate", zap.Int("bitrate", selected))
	return fmt.Sprintf("best[tbr<=%d]/worst", selected)
}

func (d *YoutubeDL) streamBitrates(ctx context.Context) []int {
	manifest, err := d.opts.HTTP.Fetch(ctx, d.manifest)
	if err != nil {
		d.logger.Debug("Failed to download the HDS manifest", zap.Error(err))
		return nil
	}

	bitrates, err := ManifestBitrates([]byte(manifest))
	if err != nil {
		d.logger.Debug("Failed to parse the HDS manifest", zap.Error(err))
	}
	return bitrates
}

// ManifestBitrates lists the positive bitrate attributes of the media
// elements of an f4m manifest.
func ManifestBitrates(manifest []byte) ([]int, error) {
	decoder := xml.NewDecoder(bytes.NewReader(manifest))
	decoder.Strict = false

	var bitrates []int
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return bitrates, nil
		}
		if err != nil {
			return bitrates, fmt.Errorf("invalid manifest: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "media" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local != "bitrate" {
				continue
			}
			if br, err := strconv.Atoi(attr.Value); err == nil && br > 0 {
				bitrates = append(bitrates, br)
			}
		}
	}
}
