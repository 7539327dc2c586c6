package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonpPrefixRe = regexp.MustCompile(`^[\w.]+\(`)
	jsonpSuffixRe = regexp.MustCompile(`\);$`)
)

// RemoveJSONPPadding strips a callback wrapper such as
// "yleEmbed.programJsonpCallback(...);" and reports whether what remains
// looks like a JSON object.
func RemoveJSONPPadding(jsonp string) (string, bool) {
	s := strings.TrimSpace(jsonp)
	s = jsonpPrefixRe.ReplaceAllString(s, "")
	s = jsonpSuffixRe.ReplaceAllString(s, "")
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s, true
	}
	return "", false
}

// LoadJSON fetches url and unmarshals the body into v
func LoadJSON(ctx context.Context, f PageFetcher, url string, v any) error {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("failed to parse JSON from %s: %w", url, err)
	}
	return nil
}

// LoadJSONP fetches a JSONP document, removes the padding and unmarshals
// the object into v
func LoadJSONP(ctx context.Context, f PageFetcher, url string, v any) error {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return err
	}
	object, ok := RemoveJSONPPadding(body)
	if !ok {
		return fmt.Errorf("unexpected JSONP payload from %s", url)
	}
	if err := json.Unmarshal([]byte(object), v); err != nil {
		return fmt.Errorf("failed to parse JSONP from %s: %w", url, err)
	}
	return nil
}
