package backend

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type fakeClient map[string]string

func (f fakeClient) Fetch(_ context.Context, rawURL string) (string, error) {
	if body, ok := f[rawURL]; ok {
		return body, nil
	}
	return "", errors.New("HTTP 404")
}

func (f fakeClient) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func testOptions(fs afero.Fs, client Client) Options {
	return Options{
		Fs:              fs,
		HTTP:            client,
		Logger:          zap.NewNop(),
		RTMPDumpPath:    "rtmpdump",
		AdobeHDSCommand: []string{"php", "AdobeHDS.php"},
		YTDLPPath:       "yt-dlp",
	}
}
