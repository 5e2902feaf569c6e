package http

import (
	"mime"
	"net/http"
	"net/url"
	"strings"

	ioutils "github.com/handiism/khinsider-downloader/internal/io"
)

// ResolveFileName picks the name a downloaded file is written under.
//
// The filename parameter of the Content-Disposition header wins when
// present; otherwise the last segment of rawURL's path is used. Both are
// percent-decoded, then sanitized so the name stays inside the album
// directory.
//
// Example:
//
//	// Content-Disposition: attachment; filename=foo%20bar.mp3
//	ResolveFileName(header, "https://example.com/x") // "foo bar.mp3"
//
//	// no header
//	ResolveFileName(nil, "https://example.com/a/baz%2Etest.mp3") // "baz.test.mp3"
func ResolveFileName(header http.Header, rawURL string) string {
	if name := dispositionFileName(header.Get("Content-Disposition")); name != "" {
		return ioutils.SanitizeFileName(unescape(name))
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := u.EscapedPath()
	segment := p[strings.LastIndex(p, "/")+1:]
	return ioutils.SanitizeFileName(unescape(segment))
}

func dispositionFileName(disposition string) string {
	if disposition == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		return strings.TrimSpace(params["filename"])
	}

	// Malformed headers are common; take whatever follows filename=.
	_, after, ok := strings.Cut(disposition, "filename=")
	if !ok {
		return ""
	}
	after, _, _ = strings.Cut(after, ";")
	return strings.Trim(strings.TrimSpace(after), `"'`)
}

func unescape(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}
