package stream

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/yourusername/yle-dl-go/internal/fetch"
	"go.uber.org/zap"
)

// PlayerSWF is sent as the swfUrl of every RTMP connection
const PlayerSWF = "http://areena.yle.fi/static/player/1.2.8/flowplayer/flowplayer.commercial-3.2.7-encrypted.swf"

var rtmpSchemes = map[string]bool{
	"rtmp":   true,
	"rtmpe":  true,
	"rtmps":  true,
	"rtmpt":  true,
	"rtmpte": true,
	"rtmpts": true,
}

// ErrInvalidRTMPURL is returned for URLs that are not rtmp URLs with a path
var ErrInvalidRTMPURL = errors.New("invalid RTMP URL")

// RTMPURL is an rtmp URL split into scheme, server and the rest
type RTMPURL struct {
	Scheme string
	Server string
	Path   string // app and playpath, without the leading slash
}

// ParseRTMPURL splits an rtmp, rtmpe, rtmps, rtmpt, rtmpte or rtmpts URL
func ParseRTMPURL(rawURL string) (RTMPURL, error) {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok || !rtmpSchemes[scheme] {
		return RTMPURL{}, ErrInvalidRTMPURL
	}

	server, appAndPlaypath, ok := strings.Cut(rest, "/")
	if !ok {
		return RTMPURL{}, ErrInvalidRTMPURL
	}

	return RTMPURL{Scheme: scheme, Server: server, Path: appAndPlaypath}, nil
}

// SplitSingleComponentApp splits an rtmp URL after its first path
// component, which is the only part Yle servers accept as the app. It
// returns the app-only URL, the playpath and the file extension. mp4 and
// mp3 playpaths get the type prefix rtmpdump expects.
func SplitSingleComponentApp(rtmpURL string) (appURL, playpath, ext string) {
	if strings.Contains(rtmpURL, "://") {
		slashes, i := 0, -1
		for i = 0; i < len(rtmpURL); i++ {
			if rtmpURL[i] == '/' {
				slashes++
				if slashes == 4 {
					break
				}
			}
		}
		if i >= len(rtmpURL) {
			i = len(rtmpURL) - 1
		}
		playpath = rtmpURL[i+1:]
		appURL = rtmpURL[:i]
	} else {
		playpath = rtmpURL
	}

	ext = path.Ext(playpath)
	switch ext {
	case ".mp4":
		playpath = "mp4:" + playpath
		ext = ".flv"
	case ".mp3":
		playpath = "mp3:" + strings.TrimSuffix(playpath, ".mp3")
	}

	return appURL, playpath, ext
}

// RTMPParams are rtmpdump connection parameters keyed by option name
type RTMPParams map[string]string

// Fixed serialization order; unknown keys follow sorted by name.
var rtmpKeyOrder = []string{"rtmp", "app", "playpath", "tcUrl", "pageUrl", "swfUrl", "live"}

func (p RTMPParams) orderedKeys() []string {
	keys := make([]string, 0, len(p))
	known := make(map[string]bool, len(rtmpKeyOrder))
	for _, k := range rtmpKeyOrder {
		known[k] = true
		if _, ok := p[k]; ok {
			keys = append(keys, k)
		}
	}

	var extra []string
	for k := range p {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)

	return append(keys, extra...)
}

// URL serializes the parameters in librtmp's "url key=value ..." syntax
func (p RTMPParams) URL() string {
	components := []string{p["rtmp"]}
	for _, k := range p.orderedKeys() {
		if k != "rtmp" {
			components = append(components, k+"="+p[k])
		}
	}
	return strings.Join(components, " ")
}

// RTMPDumpArgs serializes the parameters as rtmpdump command line options
func (p RTMPParams) RTMPDumpArgs() []string {
	var args []string
	for _, k := range p.orderedKeys() {
		if k == "live" {
			args = append(args, "--live")
		} else {
			args = append(args, fmt.Sprintf("--%s=%s", k, p[k]))
		}
	}
	return args
}

// EdgeIP asks an Akamai edge server for the IP address that must appear
// in the tcUrl.
func EdgeIP(ctx context.Context, f fetch.PageFetcher, edge string) (string, error) {
	ident, err := f.Fetch(ctx, "http://"+edge+"/fcs/ident")
	if err != nil {
		return "", fmt.Errorf("failed to read ident: %w", err)
	}

	ip, err := firstElementText([]byte(ident), "ip")
	if err != nil {
		return "", err
	}
	if ip == "" {
		return "", errors.New("no <ip> node in ident")
	}
	return ip, nil
}

// BuildRTMPParams turns a player API stream into rtmpdump parameters
func BuildRTMPParams(ctx context.Context, f fetch.PageFetcher, s PAPIStream, pageURL string, live bool, logger *zap.Logger) (RTMPParams, error) {
	if s.Stream == "" {
		return nil, errors.New("no rtmp stream")
	}

	u, err := ParseRTMPURL(s.Connect)
	if err != nil {
		return nil, err
	}

	ip, err := EdgeIP(ctx, f, u.Server)
	if err != nil {
		return nil, err
	}
	logger.Debug("Edge server", zap.String("edge", u.Server), zap.String("ip", ip))

	baseApp, auth, _ := strings.Cut(strings.TrimLeft(u.Path, "/"), "?")
	app := fmt.Sprintf("%s?_fcs_vhost=%s&%s", baseApp, u.Server, auth)

	params := RTMPParams{
		"rtmp":     fmt.Sprintf("%s://%s/%s", u.Scheme, u.Server, baseApp),
		"app":      app,
		"playpath": s.Stream,
		"tcUrl":    fmt.Sprintf("%s://%s/%s", u.Scheme, ip, app),
		"pageUrl":  pageURL,
		"swfUrl":   PlayerSWF,
	}
	if live {
		params["live"] = "1"
	}

	return params, nil
}

// firstElementText returns the character data of the first element called
// name anywhere in the document.
func firstElementText(data []byte, name string) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("invalid XML: %w", err)
		}

		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == name {
			var text string
			if err := decoder.DecodeElement(&text, &start); err != nil {
				return "", fmt.Errorf("invalid XML: %w", err)
			}
			return strings.TrimSpace(text), nil
		}
	}
}
