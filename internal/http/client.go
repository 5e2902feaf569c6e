package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/handiism/khinsider-downloader/internal/model"
)

// ChunkSize is the largest read issued against a response body while
// streaming a download.
const ChunkSize = 10 << 20

var chunkPool = sync.Pool{
	New: func() any {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// Options configures a Client.
type Options struct {
	// Attempts is the total number of tries per request, first one included.
	Attempts int

	// RetryWaitMin is the base wait before the first retry.
	RetryWaitMin time.Duration

	// RetryWaitMax caps the wait between two retries.
	RetryWaitMax time.Duration

	// Exponent is the growth factor of the wait between retries.
	Exponent float64

	// Timeout bounds a single attempt. Zero disables it.
	Timeout time.Duration

	// UserAgent is sent with every request when not empty.
	UserAgent string

	// Logger receives retry diagnostics. Nil disables them.
	Logger *zap.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Attempts:     5,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 30 * time.Second,
		Exponent:     2,
		UserAgent:    "khinsider-downloader",
	}
}

// Client fetches KHInsider pages and audio files over a retrying transport.
//
// Client provides:
//   - Bounded retries with jittered exponential backoff on connection
//     errors, 429 and 5xx responses
//   - HTML fetching into goquery documents
//   - Chunked file downloads into an album sink with progress tracking
//
// A Client is safe for concurrent use. The download manager creates one per
// album and shares it between that album's tracks.
//
// Example usage:
//
//	client := NewClient(DefaultOptions())
//
//	doc, err := client.FetchDocument(ctx, albumURL)
//
//	name, err := client.Download(ctx, mp3URL, sink, func(written, total int64) {
//	    fmt.Printf("%d / %d bytes\n", written, total)
//	})
type Client struct {
	client    *retryablehttp.Client
	userAgent string
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = max(opts.Attempts-1, 0)
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.Backoff = jitterBackoff(opts.Exponent)
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = &leveledLogger{log: opts.Logger.Sugar()}
	}

	return &Client{
		client:    rc,
		userAgent: opts.UserAgent,
	}
}

// jitterBackoff grows the wait by exponent per attempt and picks a random
// duration in the upper half of it. Retry-After on 429 and 503 responses
// takes precedence.
func jitterBackoff(exponent float64) retryablehttp.Backoff {
	if exponent < 1 {
		exponent = 1
	}
	return func(lo, hi time.Duration, attempt int, resp *http.Response) time.Duration {
		if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
			if resp.Header.Get("Retry-After") != "" {
				return retryablehttp.DefaultBackoff(lo, hi, attempt, resp)
			}
		}

		wait := float64(lo) * math.Pow(exponent, float64(attempt))
		if wait > float64(hi) || math.IsInf(wait, 0) {
			wait = float64(hi)
		}
		half := time.Duration(wait / 2)
		if half <= 0 {
			return time.Duration(wait)
		}
		return half + rand.N(half+1)
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	// It is -1 when the server did not announce a length.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// get issues a GET through the retrying transport and requires a 2xx
// response. The caller closes the body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.NewTransportError(url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, model.NewTransportError(url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, model.NewTransportError(url, fmt.Errorf("HTTP %s", resp.Status))
	}
	return resp, nil
}

// FetchDocument downloads url and parses it as HTML.
//
// Exhausted retries, a non-2xx status and an unreadable body all return a
// DownloadError of kind KindTransport.
func (c *Client) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, model.NewTransportError(url, fmt.Errorf("parse html: %w", err))
	}
	doc := goquery.NewDocumentFromNode(root)
	doc.Url = resp.Request.URL
	return doc, nil
}

// Get downloads url and returns the body. Use it for small resources like
// cover art; audio files go through Download.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewTransportError(url, err)
	}
	return data, nil
}

// FileSink is where Download writes files.
type FileSink interface {
	Create(name string) (io.WriteCloser, error)
	Remove(name string) error
}

// Download streams url into sink and returns the file name it was written
// under.
//
// The name comes from ResolveFileName. The body is copied in chunks of at
// most ChunkSize bytes and ctx is checked between chunks. The file is
// always closed, and removed again when anything fails after it was
// created. Local failures return KindWrite, network failures and
// cancellation return KindTransport.
//
// onProgress may be nil.
func (c *Client) Download(ctx context.Context, url string, sink FileSink, onProgress func(written, total int64)) (string, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	name := ResolveFileName(resp.Header, url)
	if name == "" {
		return "", model.NewWriteError(url, fmt.Errorf("no file name for %s", url))
	}

	f, err := sink.Create(name)
	if err != nil {
		return "", model.NewWriteError(name, err)
	}

	if err := copyChunks(ctx, f, resp, onProgress); err != nil {
		f.Close()
		_ = sink.Remove(name)
		var de *model.DownloadError
		if !errors.As(err, &de) {
			err = model.NewTransportError(url, err)
		} else if de.Kind == model.KindWrite {
			de.URL = name
		} else {
			de.URL = url
		}
		return "", err
	}

	if err := f.Close(); err != nil {
		_ = sink.Remove(name)
		return "", model.NewWriteError(name, err)
	}
	return name, nil
}

// copyChunks copies the response body into w. Write failures come back as
// KindWrite errors, read failures and cancellation as KindTransport.
func copyChunks(ctx context.Context, w io.Writer, resp *http.Response, onProgress func(written, total int64)) error {
	if onProgress != nil {
		w = &ProgressWriter{Writer: w, Total: resp.ContentLength, OnUpdate: onProgress}
	}

	bufp := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(bufp)
	buf := *bufp

	for {
		if err := ctx.Err(); err != nil {
			return model.NewTransportError("", err)
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return model.NewWriteError("", err)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return model.NewTransportError("", rerr)
		}
	}
}

// leveledLogger routes retryablehttp diagnostics to zap. Failed attempts
// are retried, so errors are demoted to warnings.
type leveledLogger struct {
	log *zap.SugaredLogger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...any) {
	l.log.Warnw(msg, keysAndValues...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...any) {
	l.log.Infow(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Warnw(msg, keysAndValues...)
}
