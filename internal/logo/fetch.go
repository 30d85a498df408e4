package logo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/voyagen/tvlineup/internal/logging"
)

const (
	maxLogoBytes   = 4 << 20
	recentCapacity = 4096
	// An unchanged URL is re-downloaded once its memo is older than this.
	recentTTL = time.Hour
)

// ErrTooLarge is returned when a logo body exceeds the size limit.
var ErrTooLarge = errors.New("logo exceeds size limit")

// Fetcher downloads logos over HTTP and writes them to a Sink. It remembers
// the last URL stored per channel for up to an hour so repeated passes do
// not re-download an unchanged logo.
type Fetcher struct {
	sink       Sink
	httpClient *http.Client
	userAgent  string
	recent     *expirable.LRU[int64, string]
}

// NewFetcher creates a Fetcher. A zero timeout leaves the HTTP client without one.
func NewFetcher(sink Sink, userAgent string, timeout time.Duration) *Fetcher {
	return newFetcher(sink, userAgent, timeout, recentTTL)
}

func newFetcher(sink Sink, userAgent string, timeout, ttl time.Duration) *Fetcher {
	recent := expirable.NewLRU[int64, string](recentCapacity, nil, ttl)
	return &Fetcher{
		sink:       sink,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		recent:     recent,
	}
}

// Fetch copies the body at job.URL into the channel's logo slot.
func (f *Fetcher) Fetch(ctx context.Context, job Job) error {
	if last, ok := f.recent.Get(job.ChannelID); ok && last == job.URL {
		return nil
	}
	u, err := url.Parse(job.URL)
	if err != nil {
		return fmt.Errorf("parse logo url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("parse logo url: unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("NewRequest: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes+1))
	if err != nil {
		return fmt.Errorf("ReadAll: %w", err)
	}
	if len(body) > maxLogoBytes {
		return ErrTooLarge
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	if err := f.sink.PutChannelLogo(ctx, job.ChannelID, body, contentType); err != nil {
		return fmt.Errorf("store logo: %w", err)
	}
	f.recent.Add(job.ChannelID, job.URL)
	return nil
}

// Run fetches job and logs any failure instead of returning it.
func (f *Fetcher) Run(ctx context.Context, job Job) {
	log := logging.FromContext(ctx)
	if err := f.Fetch(ctx, job); err != nil {
		log.Warn().Err(err).Int64("channel_id", job.ChannelID).Str("url", job.URL).Msg("logo fetch failed")
		return
	}
	log.Debug().Int64("channel_id", job.ChannelID).Str("url", job.URL).Msg("logo stored")
}
