package faceit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortuna/statcard/internal/cache"
)

// maxPageSize is the largest page the history endpoint serves per request.
const maxPageSize = 100

// ClientConfig carries the tunables the client consumes; the zero value is
// not usable, construct it from the service configuration.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	MaxRetries     int
	RetryBaseDelay time.Duration
	ResponseTTL    time.Duration
}

// Client talks to the FACEIT Data API v4. Every request passes through the
// shared RateGate before dispatch and short-lived responses are memoized in
// the response cache.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
	gate       *RateGate
	responses  cache.ResponseCache
	logger     zerolog.Logger
}

// NewClient builds a FACEIT client. The gate is required; responses may be
// nil to disable upstream memoization.
func NewClient(cfg ClientConfig, gate *RateGate, responses cache.ResponseCache, logger zerolog.Logger) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
		gate:       gate,
		responses:  responses,
		logger:     logger,
	}
}

// CheckCredentials performs one cheap lookup so a rejected API key aborts
// startup instead of failing the first user request.
func (c *Client) CheckCredentials(ctx context.Context) error {
	params := url.Values{"nickname": {"s1mple"}, "limit": {"1"}}
	if _, err := c.get(ctx, "/search/players", params, false); err != nil {
		// An unknown nickname is fine here; only a rejected key matters.
		if errors.Is(err, ErrAuth) {
			return err
		}
	}
	return nil
}

// Player resolves a nickname to a full profile snapshot.
func (c *Client) Player(ctx context.Context, nickname string) (*PlayerProfile, error) {
	params := url.Values{"nickname": {nickname}, "limit": {"1"}}
	body, err := c.get(ctx, "/search/players", params, true)
	if err != nil {
		return nil, err
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if len(search.Items) == 0 {
		return nil, fmt.Errorf("searching %q: %w", nickname, ErrNotFound)
	}

	playerID := search.Items[0].PlayerID
	body, err = c.get(ctx, "/players/"+playerID, nil, true)
	if err != nil {
		return nil, err
	}

	var player playerResponse
	if err := json.Unmarshal(body, &player); err != nil {
		return nil, fmt.Errorf("decoding player response: %w", err)
	}

	game := player.Games["cs2"]
	return &PlayerProfile{
		ID:         player.PlayerID,
		Nickname:   player.Nickname,
		Country:    player.Country,
		Region:     game.Region,
		SkillLevel: game.SkillLevel,
		Elo:        game.FaceitElo,
	}, nil
}

// MatchHistory collects up to window records, paginating until the window is
// full or the platform runs out of data. A shorter history is a partial
// result, not an error.
func (c *Client) MatchHistory(ctx context.Context, playerID string, window int) (MatchHistory, error) {
	history := make(MatchHistory, 0, window)

	for offset := 0; len(history) < window; {
		pageSize := window - len(history)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		params := url.Values{
			"game":   {"cs2"},
			"offset": {fmt.Sprintf("%d", offset)},
			"limit":  {fmt.Sprintf("%d", pageSize)},
		}
		body, err := c.get(ctx, "/players/"+playerID+"/history", params, true)
		if err != nil {
			return nil, err
		}

		var page historyResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding history response: %w", err)
		}

		for _, item := range page.Items {
			if record, ok := item.record(playerID); ok {
				history = append(history, record)
			}
		}

		offset += len(page.Items)
		if len(page.Items) < pageSize {
			// Platform exhausted its data before filling the window.
			break
		}
	}

	return history, nil
}

// get performs one rate-limited, retried GET. Transient failures (429, 5xx,
// connection errors) are retried with exponential backoff up to the
// configured budget; auth and not-found failures surface immediately.
func (c *Client) get(ctx context.Context, path string, params url.Values, cacheable bool) ([]byte, error) {
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	if cacheable && c.responses != nil {
		if body, ok := c.responses.Get(ctx, u); ok {
			c.logger.Debug().Str("url", path).Msg("response cache hit")
			return body, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryBaseDelay << (attempt - 1)
			c.logger.Debug().
				Str("url", path).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("retrying request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.gate.Acquire(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.dispatch(ctx, u)
		if err == nil {
			if cacheable && c.responses != nil {
				c.responses.Set(ctx, u, body, c.cfg.ResponseTTL)
			}
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("request %s failed after %d attempts: %w", path, c.cfg.MaxRetries, lastErr)
}

// dispatch performs a single HTTP exchange and classifies the outcome.
func (c *Client) dispatch(ctx context.Context, u string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading body: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: status 404", ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("%w: status 429", ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
