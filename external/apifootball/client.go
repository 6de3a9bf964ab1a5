package apifootball

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/platform/resilience"
	"github.com/riskibarqy/prediction-league/internal/usecase"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://v3.football.api-sports.io"
	maxBodyBytes   = 6 << 20
)

var errTransient = crerr.New("api-football transient failure")

type ClientConfig struct {
	HTTPClient *fasthttp.Client
	BaseURL    string
	APIKey     string
	LeagueID   int64
	Season     int
	Timeout    time.Duration
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number.
	RetryBackoff time.Duration
	// RequestsPerSecond paces outgoing calls. Zero disables pacing.
	RequestsPerSecond float64
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
}

// Client talks to API-Football v3. It serves both result lookups for
// settlement and the season schedule for fixture sync.
type Client struct {
	httpClient   *fasthttp.Client
	baseURL      string
	apiKey       string
	leagueID     int64
	season       int
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	flight       singleflight.Group
}

var (
	_ usecase.ResultProvider = (*Client)(nil)
	_ usecase.FixtureSource  = (*Client)(nil)
)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "prediction-league",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxBodyBytes,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	breaker := resilience.NewCircuitBreaker(cfg.CircuitBreaker).OnTransition(func(from, to resilience.CircuitState) {
		logger.Warn("api-football circuit breaker state changed", "from", from, "to", to)
	})

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		leagueID:     cfg.LeagueID,
		season:       cfg.Season,
		timeout:      timeout,
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		limiter:      limiter,
		logger:       logger,
		breaker:      breaker,
	}
}

func (c *Client) LookupResult(ctx context.Context, externalID int64) (usecase.ResultLookup, error) {
	if externalID <= 0 {
		return usecase.ResultLookup{}, fmt.Errorf("%w: external fixture id must be greater than zero", usecase.ErrInvalidInput)
	}

	var envelope fixturesEnvelope
	if err := c.doJSON(ctx, "/fixtures", url.Values{"id": {strconv.FormatInt(externalID, 10)}}, &envelope); err != nil {
		return usecase.ResultLookup{}, fmt.Errorf("lookup fixture external_id=%d: %w", externalID, err)
	}

	for _, item := range envelope.Response {
		if item.Fixture.ID != externalID {
			continue
		}
		out := usecase.ResultLookup{
			Status: normalizeStatus(item.Fixture.Status.Short),
		}
		if finished(item.Fixture.Status.Short) && item.Goals.Home != nil && item.Goals.Away != nil {
			out.Finished = true
			out.Home = item.Goals.Home
			out.Away = item.Goals.Away
		}
		return out, nil
	}

	return usecase.ResultLookup{}, fmt.Errorf("%w: provider has no fixture external_id=%d", usecase.ErrNotFound, externalID)
}

func (c *Client) ListSeasonFixtures(ctx context.Context) ([]usecase.ExternalFixture, error) {
	if c.leagueID <= 0 || c.season <= 0 {
		return nil, fmt.Errorf("%w: league and season must be configured", usecase.ErrInvalidInput)
	}

	query := url.Values{
		"league": {strconv.FormatInt(c.leagueID, 10)},
		"season": {strconv.Itoa(c.season)},
	}
	var envelope fixturesEnvelope
	if err := c.doJSON(ctx, "/fixtures", query, &envelope); err != nil {
		return nil, fmt.Errorf("list season fixtures league=%d season=%d: %w", c.leagueID, c.season, err)
	}

	out := make([]usecase.ExternalFixture, 0, len(envelope.Response))
	for _, item := range envelope.Response {
		kickoff, _ := parseKickoff(item.Fixture.Date)
		out = append(out, usecase.ExternalFixture{
			ExternalID: item.Fixture.ID,
			Round:      item.League.Round,
			Gameweek:   parseGameweek(item.League.Round),
			HomeTeam:   strings.TrimSpace(item.Teams.Home.Name),
			AwayTeam:   strings.TrimSpace(item.Teams.Away.Name),
			KickoffAt:  kickoff,
			Status:     normalizeStatus(item.Fixture.Status.Short),
		})
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, target any) error {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "state", c.breaker.State())
		return fmt.Errorf("%w: result provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		c.breaker.Record(reqErr != nil && crerr.Is(reqErr, errTransient))
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrap(err, "decode provider payload")
	}
	if envelope, ok := target.(*fixturesEnvelope); ok {
		if problems := providerErrors(envelope.Errors); len(problems) > 0 {
			return crerr.Newf("provider rejected request: %s", strings.Join(problems, "; "))
		}
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		raw, status, err := c.send(ctx, fullURL)
		switch {
		case err != nil:
			lastErr = crerr.Mark(crerr.Wrap(err, "send request"), errTransient)
		case status >= 200 && status < 300:
			return raw, nil
		case isRetryableStatus(status):
			lastErr = crerr.Mark(crerr.Newf("provider status=%d body=%s", status, abbreviateBody(raw)), errTransient)
		default:
			return nil, crerr.Newf("provider status=%d body=%s", status, abbreviateBody(raw))
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "api-football request failed", "url", fullURL, "attempts", c.maxRetries+1, "error", lastErr)
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-apisports-key", c.apiKey)

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, err
	}

	// The response buffer is recycled on release.
	body := append([]byte(nil), resp.Body()...)
	return body, resp.StatusCode(), nil
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(raw))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
