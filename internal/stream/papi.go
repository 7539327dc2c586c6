package stream

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"go.uber.org/zap"
)

// PAPIBaseURL is the root of the legacy player API
const PAPIBaseURL = "http://papi.yle.fi"

var (
	ErrPAPIUnavailable = errors.New("failed to download papi")
	ErrNoPAPIStreams   = errors.New("no streams found in papi")
	ErrBitrateLimit    = errors.New("no streams matching the bitrate limit")
)

// PAPIStream is one stream variant listed by the player API
type PAPIStream struct {
	Connect       string
	Stream        string
	VideoBitrate  int
	AudioBitrate  int
	HardSubtitles string
}

// Bitrate returns the combined bitrate in kbit/s
func (s PAPIStream) Bitrate() int {
	return s.VideoBitrate + s.AudioBitrate
}

// HasHardSubtitles reports whether subtitles are burned into the video
func (s PAPIStream) HasHardSubtitles() bool {
	return s.HardSubtitles != ""
}

type papiAsset struct {
	URLs []struct {
		Connect string `xml:"connect"`
		Stream  string `xml:"stream"`
	} `xml:"url"`
	VideoBitrate  string `xml:"videoBitrate"`
	AudioBitrate  string `xml:"audioBitrate"`
	HardSubtitles string `xml:"hardSubtitles"`
}

// ParsePAPI lists every onlineAsset of a decoded player API document.
// Assets without a connect URL are skipped.
func ParsePAPI(data []byte) ([]PAPIStream, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false

	var streams []PAPIStream
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Decrypted documents may carry trailing garbage.
			if len(streams) > 0 {
				break
			}
			return nil, fmt.Errorf("invalid papi document: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "onlineAsset" {
			continue
		}

		var asset papiAsset
		if err := decoder.DecodeElement(&asset, &start); err != nil {
			return nil, fmt.Errorf("invalid papi asset: %w", err)
		}
		if len(asset.URLs) == 0 {
			continue
		}

		connect := strings.TrimSpace(asset.URLs[0].Connect)
		if connect == "" {
			continue
		}

		streams = append(streams, PAPIStream{
			Connect:       connect,
			Stream:        strings.TrimSpace(asset.URLs[0].Stream),
			VideoBitrate:  atoiOrZero(asset.VideoBitrate),
			AudioBitrate:  atoiOrZero(asset.AudioBitrate),
			HardSubtitles: strings.TrimSpace(asset.HardSubtitles),
		})
	}

	return streams, nil
}

// DecodePAPI returns the XML of a player API response, decrypting it
// unless it is already plaintext.
func DecodePAPI(body, key string) ([]byte, error) {
	if strings.HasPrefix(body, "<media>") {
		return []byte(body), nil
	}
	return Decrypt(body, []byte(key))
}

// ResolvePAPI downloads a player API document and selects the stream that
// matches the filters.
func ResolvePAPI(ctx context.Context, f fetch.PageFetcher, papiURL, key string, filters domain.StreamFilters, logger *zap.Logger) (PAPIStream, error) {
	body, err := f.Fetch(ctx, papiURL)
	if err != nil || body == "" {
		logger.Debug("Player API request failed", zap.String("url", papiURL), zap.Error(err))
		return PAPIStream{}, ErrPAPIUnavailable
	}

	decoded, err := DecodePAPI(body, key)
	if err != nil {
		return PAPIStream{}, fmt.Errorf("failed to decrypt papi: %w", err)
	}
	logger.Debug("Player API document", zap.ByteString("papi", decoded))

	streams, err := ParsePAPI(decoded)
	if err != nil {
		return PAPIStream{}, err
	}
	if len(streams) == 0 {
		return PAPIStream{}, ErrNoPAPIStreams
	}

	best, ok := SelectQuality(FilterByHardSubtitles(streams, filters), PAPIStream.Bitrate, filters)
	if !ok {
		return PAPIStream{}, ErrBitrateLimit
	}

	logger.Debug("Selected stream",
		zap.String("connect", best.Connect),
		zap.String("stream", best.Stream),
		zap.Int("bitrate", best.Bitrate()))

	return best, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
