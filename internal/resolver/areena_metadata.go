package resolver

import (
	"encoding/json"
	"strings"

	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
)

// localized is a text with translations keyed by language code. Values
// that are not objects of strings decode to an empty text.
type localized map[string]string

func (l *localized) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}

	texts := make(localized, len(raw))
	for lang, v := range raw {
		if s, ok := v.(string); ok {
			texts[lang] = s
		}
	}
	*l = texts
	return nil
}

// text returns the translation to lang, falling back to Finnish
func (l localized) text(lang string) string {
	if s := l[lang]; s != "" {
		return s
	}
	return l["fi"]
}

// either returns the Finnish text or, failing that, the Swedish one
func (l localized) either() string {
	if s := l.text("fi"); s != "" {
		return s
	}
	return l.text("sv")
}

type programInfo struct {
	Data struct {
		Program struct {
			Title            localized          `json:"title"`
			ItemTitle        localized          `json:"itemTitle"`
			PromotionTitle   localized          `json:"promotionTitle"`
			PublicationEvent []publicationEvent `json:"publicationEvent"`
		} `json:"program"`
		Service struct {
			Title localized `json:"title"`
		} `json:"service"`
		Outlets []struct {
			Outlet struct {
				Media struct {
					ID fetch.FlexString `json:"id"`
				} `json:"media"`
			} `json:"outlet"`
		} `json:"outlets"`
	} `json:"data"`
}

type publicationEvent struct {
	TemporalStatus string `json:"temporalStatus"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Media          *struct {
		ID   fetch.FlexString `json:"id"`
		Type string           `json:"type"`
	} `json:"media"`
}

func (e publicationEvent) hasMedia() bool {
	return e.Media != nil && (e.Media.ID != "" || e.Media.Type != "")
}

func (e publicationEvent) current() bool {
	return e.TemporalStatus == "currently"
}

func (e publicationEvent) mediaID() string {
	if e.Media == nil {
		return ""
	}
	return e.Media.ID.String()
}

// protocol is the media descriptor protocol matching the event's media type
func (e publicationEvent) protocol() string {
	if e.Media != nil && e.Media.Type == "AudioObject" {
		return "RTMPE"
	}
	return "HDS"
}

// publishEvent prefers events that are currently published, then picks
// the first one carrying media. The zero event is returned when none does.
func (p *programInfo) publishEvent() publicationEvent {
	events := p.Data.Program.PublicationEvent

	var current []publicationEvent
	for _, e := range events {
		if e.current() {
			current = append(current, e)
		}
	}
	if len(current) > 0 {
		events = current
	}

	for _, e := range events {
		if e.hasMedia() {
			return e
		}
	}
	return publicationEvent{}
}

// unavailableReason explains why the selected event cannot be watched
func (p *programInfo) unavailableReason() string {
	event := p.publishEvent()
	switch event.TemporalStatus {
	case "in-past":
		if event.EndTime != "" {
			return "The clip has expired on " + event.EndTime
		}
	case "in-future":
		if event.StartTime != "" {
			return "The clip will be published at " + event.StartTime
		}
	}
	return ""
}

// onDemandTitle combines the program title, a promotion title and the
// publication date
func (p *programInfo) onDemandTitle() string {
	program := p.Data.Program
	title := program.Title.either()
	if title == "" {
		title = program.ItemTitle.either()
	}
	if title == "" {
		title = "areena"
	}

	if promo := program.PromotionTitle.either(); promo != "" && !strings.HasPrefix(promo, title) {
		title += ": " + promo
	}

	if date := p.publishEvent().StartTime; date != "" {
		title += "-" + strings.NewReplacer("/", "-", " ", "-").Replace(date)
	}
	return title
}

type mediaDescriptor struct {
	Meta struct {
		Protocol string `json:"protocol"`
	} `json:"meta"`
	Data struct {
		Media map[string][]mediaItem `json:"media"`
	} `json:"data"`
}

type mediaItem struct {
	URL          string          `json:"url"`
	Protocol     string          `json:"protocol"`
	Lang         string          `json:"lang"`
	HardSubtitle json.RawMessage `json:"hardsubtitle"`
	Bitrate      fetch.FlexInt   `json:"bitrate"`
	Subtitles    []struct {
		URI  string `json:"uri"`
		Lang string `json:"lang"`
		Type string `json:"type"`
	} `json:"subtitles"`
}

func (m mediaItem) hasHardSubtitle() bool {
	return m.HardSubtitle != nil
}

func (m mediaItem) bitrate() int {
	return int(m.Bitrate)
}

// items returns the entries of the protocol the descriptor was requested
// with
func (d *mediaDescriptor) items() []mediaItem {
	protocol := d.Meta.Protocol
	if protocol == "" {
		protocol = "HDS"
	}
	return d.Data.Media[protocol]
}

// subtitles lists the subtitle tracks of a media entry
func (m mediaItem) subtitles() []domain.Subtitle {
	var subs []domain.Subtitle
	for _, s := range m.Subtitles {
		if s.URI == "" {
			continue
		}
		lang := languageCodeFromSubtitleURI(s.URI)
		if lang == "" {
			lang = threeLetterLanguageCode(s.Lang, s.Type)
		}
		subs = append(subs, domain.Subtitle{URL: s.URI, Lang: lang})
	}
	return subs
}

// languageCodeFromSubtitleURI reads the language from names such as
// "episode.fin.srt"
func languageCodeFromSubtitleURI(uri string) string {
	if !strings.HasSuffix(uri, ".srt") {
		return ""
	}
	stem := strings.TrimSuffix(uri, ".srt")
	ext := stem[strings.LastIndex(stem, ".")+1:]
	if len(ext) > 3 {
		return ""
	}
	return ext
}

func threeLetterLanguageCode(lang, subtitleType string) string {
	if subtitleType == "hearingimpaired" {
		return lang + "h"
	}
	switch lang {
	case "fi":
		return "fin"
	case "sv":
		return "swe"
	default:
		return lang
	}
}
