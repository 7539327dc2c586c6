package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// BitrateBest selects the highest available quality
	BitrateBest = math.MaxInt
	// BitrateWorst selects the lowest available quality
	BitrateWorst = 0

	// SubLangAll accepts every subtitle language
	SubLangAll = "all"
	// SubLangNone disables subtitles
	SubLangNone = "none"
)

// StreamFilters holds the operator's stream selection preferences
type StreamFilters struct {
	LatestOnly bool
	SubLang    string
	HardSubs   bool
	MaxBitrate int // kbit/s
}

// DefaultStreamFilters returns filters selecting the best quality and all subtitles
func DefaultStreamFilters() StreamFilters {
	return StreamFilters{
		SubLang:    SubLangAll,
		MaxBitrate: BitrateBest,
	}
}

// KeepLowestBitrate reports whether the lowest bitrate stream should be chosen
func (f StreamFilters) KeepLowestBitrate() bool {
	return f.MaxBitrate <= 0
}

// ParseBitrate converts a --maxbitrate argument into kbit/s. An invalid value
// returns BitrateBest together with an error the caller is expected to log.
func ParseBitrate(arg string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "best":
		return BitrateBest, nil
	case "worst":
		return BitrateWorst, nil
	}

	bitrate, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return BitrateBest, fmt.Errorf("invalid bitrate %q, defaulting to best", arg)
	}
	return bitrate, nil
}
