package backend

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"go.uber.org/zap"
)

const utf8BOM = "\uFEFF"

// SaveSubtitles stores the subtitle tracks matching the filters next to
// videoFile as <base>.<lang>.srt. Nothing is saved when burned-in
// subtitles were requested. Unless every language is wanted, only the first
// match is considered.
func SaveSubtitles(ctx context.Context, subtitles []domain.Subtitle, filters domain.StreamFilters, videoFile string, opts Options) []string {
	if filters.HardSubs {
		return nil
	}
	opts = opts.withDefaults()

	preferred := filters.SubLang
	basename := strings.TrimSuffix(videoFile, filepath.Ext(videoFile))

	var saved []string
	for _, sub := range subtitles {
		if sub.Lang != preferred && preferred != domain.SubLangAll {
			continue
		}

		if sub.URL == "" {
			continue
		}
		filename, ok := saveSubtitle(ctx, sub, basename, opts)
		if !ok {
			continue
		}
		saved = append(saved, filename)

		// One file of the preferred language is enough
		if preferred != domain.SubLangAll {
			break
		}
	}
	return saved
}

func saveSubtitle(ctx context.Context, sub domain.Subtitle, basename string, opts Options) (string, bool) {
	text, err := opts.HTTP.Fetch(ctx, sub.URL)
	if err != nil {
		opts.Logger.Warn("Failed to download subtitles", zap.String("url", sub.URL), zap.Error(err))
		return "", false
	}

	if !strings.HasPrefix(text, utf8BOM) {
		text = utf8BOM + text
	}

	filename := basename + "." + sub.Lang + ".srt"
	if err := afero.WriteFile(opts.Fs, filename, []byte(text), 0644); err != nil {
		opts.Logger.Warn("Failed to save subtitles", zap.String("file", filename), zap.Error(err))
		return "", false
	}

	opts.Logger.Info("Subtitles saved to " + filename)
	return filename, true
}
