package resolver

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFetcher serves canned bodies by exact URL
type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	if body, ok := f[rawURL]; ok {
		return body, nil
	}
	return "", errors.New("HTTP 404")
}

func (f fakeFetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

var testNow = time.Date(2014, 3, 1, 20, 30, 0, 0, time.UTC)

func testDeps(f fakeFetcher) Deps {
	return Deps{
		Fetcher: f,
		Logger:  zap.NewNop(),
		Now:     func() time.Time { return testNow },
	}
}

// encryptForTest produces a payload in the player API format: base64 of
// the IV followed by the AES-CFB ciphertext.
func encryptForTest(t *testing.T, plaintext, key string) string {
	t.Helper()

	block, err := aes.NewCipher([]byte(key))
	require.NoError(t, err)

	iv := []byte("0123456789abcdef")
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(ciphertext, []byte(plaintext))

	return base64.StdEncoding.EncodeToString(append(iv, ciphertext...))
}
