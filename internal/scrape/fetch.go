package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"jobscout-engine/internal/domain"
)

const maxBodyBytes = 8 << 20

type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: status %d: %q", e.URL, e.Code, e.Body)
}

// fetch GETs the portal page, retrying transport errors and non-2xx answers.
// Every failed attempt is followed by a 2^attempt backoff (1s, 2s, 4s with
// the default base).
func (s *Scraper) fetch(ctx context.Context, p domain.Portal) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt < s.opts.MaxAttempts; attempt++ {
		body, err := s.fetchOnce(ctx, p.BaseURL)
		s.metrics.FetchAttempt(p.Name, err == nil)
		if err == nil {
			return body, attempt + 1, nil
		}
		lastErr = err

		wait := s.opts.BackoffBase << attempt
		s.log.Warn("fetch attempt failed",
			zap.String("portal", p.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if err := s.clock.Sleep(ctx, wait); err != nil {
			return nil, attempt + 1, err
		}
	}
	return nil, s.opts.MaxAttempts, fmt.Errorf("%d attempts: %w", s.opts.MaxAttempts, lastErr)
}

func (s *Scraper) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if s.pacer != nil {
		if err := s.pacer.WaitURL(ctx, url); err != nil {
			return nil, err
		}
	}

	actx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Body: string(b)}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return b, nil
}
