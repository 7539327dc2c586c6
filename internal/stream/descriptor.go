package stream

import (
	"net/url"
	"path"
	"strings"

	"github.com/yourusername/yle-dl-go/internal/backend"
)

// HDSBackendYoutubeDL selects yt-dlp instead of AdobeHDS.php for HDS streams
const HDSBackendYoutubeDL = "hds:youtubedl"

// hdsPlayerQuery identifies the Flash player to the HDS origin
const hdsPlayerQuery = "g=ABCDEFGHIJKL&hdcore=3.3.0&plugin=flowplayer-3.3.0.0"

const defaultInvalidMessage = "Stream not valid"

// Descriptor describes a playable stream and knows which backend can save it.
// A descriptor is either valid or carries an error message.
type Descriptor interface {
	IsValid() bool
	ErrorMessage() string
	// URL is the stream location shown by --showurl
	URL() string
	// EpisodeURL is the web page of the episode
	EpisodeURL() string
	// NewBackend returns nil when no backend supports the stream
	NewBackend(title string, opts backend.Options) backend.Backend
}

// RTMPStream is saved with rtmpdump
type RTMPStream struct {
	Params  RTMPParams
	PageURL string
	Err     string
}

func (s *RTMPStream) IsValid() bool { return len(s.Params) > 0 }

func (s *RTMPStream) ErrorMessage() string {
	return errorMessage(s.IsValid(), s.Err)
}

func (s *RTMPStream) URL() string {
	if !s.IsValid() {
		return ""
	}
	return s.Params.URL()
}

func (s *RTMPStream) EpisodeURL() string { return s.PageURL }

func (s *RTMPStream) NewBackend(title string, opts backend.Options) backend.Backend {
	args := s.Params.RTMPDumpArgs()
	if len(args) == 0 {
		return nil
	}
	return backend.NewRTMPDump(args, title, opts)
}

// HTTPStream is a plain file served over HTTP
type HTTPStream struct {
	Address string
	Ext     string
	PageURL string
}

// NewHTTPStream takes the file extension from the URL path
func NewHTTPStream(address, pageURL string) *HTTPStream {
	ext := ""
	if u, err := url.Parse(address); err == nil {
		ext = path.Ext(u.Path)
	}
	return &HTTPStream{Address: address, Ext: ext, PageURL: pageURL}
}

func (s *HTTPStream) IsValid() bool { return s.Address != "" }

func (s *HTTPStream) ErrorMessage() string {
	return errorMessage(s.IsValid(), "")
}

func (s *HTTPStream) URL() string { return s.Address }

func (s *HTTPStream) EpisodeURL() string { return s.PageURL }

func (s *HTTPStream) NewBackend(title string, opts backend.Options) backend.Backend {
	return backend.NewHTTPDump(s.Address, s.Ext, title, opts)
}

// HDSStream is an Adobe HDS manifest
type HDSStream struct {
	Manifest   string
	PageURL    string
	Backend    string
	MaxBitrate int
	Err        string
}

// NewHDSStream appends the player identification to a manifest URL
func NewHDSStream(manifest, pageURL, backendToken string, maxBitrate int) *HDSStream {
	sep := "?"
	if strings.Contains(manifest, "?") {
		sep = "&"
	}
	return &HDSStream{
		Manifest:   manifest + sep + hdsPlayerQuery,
		PageURL:    pageURL,
		Backend:    backendToken,
		MaxBitrate: maxBitrate,
	}
}

func (s *HDSStream) IsValid() bool { return s.Manifest != "" && s.Err == "" }

func (s *HDSStream) ErrorMessage() string {
	return errorMessage(s.IsValid(), s.Err)
}

func (s *HDSStream) URL() string { return s.Manifest }

func (s *HDSStream) EpisodeURL() string { return s.PageURL }

func (s *HDSStream) NewBackend(title string, opts backend.Options) backend.Backend {
	if s.Backend == HDSBackendYoutubeDL {
		return backend.NewYoutubeDL(s.Manifest, title, s.MaxBitrate, opts)
	}
	return backend.NewAdobeHDS(s.Manifest, title, s.MaxBitrate, opts)
}

// InvalidStream carries the reason why no stream could be resolved
type InvalidStream struct {
	Reason string
}

// NewInvalidStream creates a descriptor that fails with reason
func NewInvalidStream(reason string) *InvalidStream {
	return &InvalidStream{Reason: reason}
}

func (s *InvalidStream) IsValid() bool { return false }

func (s *InvalidStream) ErrorMessage() string { return errorMessage(false, s.Reason) }

func (s *InvalidStream) URL() string { return "" }

func (s *InvalidStream) EpisodeURL() string { return "" }

func (s *InvalidStream) NewBackend(string, backend.Options) backend.Backend { return nil }

func errorMessage(valid bool, message string) string {
	if valid {
		return ""
	}
	if message == "" {
		return defaultInvalidMessage
	}
	return message
}
