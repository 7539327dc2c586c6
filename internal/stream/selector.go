package stream

import (
	"github.com/samber/lo"
	"github.com/yourusername/yle-dl-go/internal/domain"
)

// SelectQuality picks one candidate according to the bitrate limit of the
// filters. With KeepLowestBitrate the cheapest candidate wins, otherwise
// the best one strictly below MaxBitrate. The second return value is false
// when nothing qualifies.
func SelectQuality[T any](candidates []T, bitrate func(T) int, filters domain.StreamFilters) (T, bool) {
	var zero T
	if len(candidates) == 0 {
		return zero, false
	}

	// Ties resolve to the first candidate.
	if filters.KeepLowestBitrate() {
		return lo.MinBy(candidates, func(a, b T) bool {
			return bitrate(a) < bitrate(b)
		}), true
	}

	below := lo.Filter(candidates, func(c T, _ int) bool {
		return bitrate(c) < filters.MaxBitrate
	})
	if len(below) == 0 {
		return zero, false
	}

	// Ties resolve to the last candidate.
	return lo.MaxBy(below, func(a, b T) bool {
		return bitrate(a) >= bitrate(b)
	}), true
}

// FilterByHardSubtitles narrows PAPI streams by burned-in subtitles. The
// result is never empty when the input is not.
func FilterByHardSubtitles(streams []PAPIStream, filters domain.StreamFilters) []PAPIStream {
	var filtered []PAPIStream
	switch {
	case filters.HardSubs && filters.SubLang == domain.SubLangAll:
		filtered = streams
	case filters.HardSubs && filters.SubLang != domain.SubLangNone:
		filtered = lo.Filter(streams, func(s PAPIStream, _ int) bool {
			return s.HardSubtitles == filters.SubLang
		})
	default:
		filtered = lo.Filter(streams, func(s PAPIStream, _ int) bool {
			return !s.HasHardSubtitles()
		})
	}

	if len(filtered) == 0 {
		return streams
	}
	return filtered
}
