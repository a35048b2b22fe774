package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUnsplashEndpoint is the Unsplash photo search endpoint.
const DefaultUnsplashEndpoint = "https://api.unsplash.com/search/photos"

// ErrImageBudgetExhausted is returned when the local request budget refuses a lookup.
var ErrImageBudgetExhausted = errors.New("image lookup budget exhausted")

// UnsplashProvider implements ImageSearchProvider using Unsplash photo search.
type UnsplashProvider struct {
	accessKey  string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewUnsplashProvider creates a provider allowed requestsPerHour lookups,
// each bounded by timeout.
func NewUnsplashProvider(accessKey string, requestsPerHour int, timeout time.Duration) *UnsplashProvider {
	if requestsPerHour <= 0 {
		requestsPerHour = 50
	}
	burst := requestsPerHour
	if burst > 10 {
		burst = 10
	}
	return &UnsplashProvider{
		accessKey:  accessKey,
		endpoint:   DefaultUnsplashEndpoint,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Hour/time.Duration(requestsPerHour)), burst),
	}
}

// WithEndpoint points the provider at another search endpoint.
func (p *UnsplashProvider) WithEndpoint(endpoint string) *UnsplashProvider {
	p.endpoint = endpoint
	return p
}

type unsplashSearchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// SearchImage returns the regular-size URL of the first photo matching query.
func (p *UnsplashProvider) SearchImage(ctx context.Context, query string) (string, error) {
	if !p.limiter.Allow() {
		return "", ErrImageBudgetExhausted
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("client_id", p.accessKey)

	reqURL := fmt.Sprintf("%s?%s", p.endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create unsplash request: %w", err)
	}
	req.Header.Set("Accept-Version", "v1")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("unsplash request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read unsplash response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unsplash API returned status %d", resp.StatusCode)
	}

	var sResp unsplashSearchResponse
	if err := json.Unmarshal(body, &sResp); err != nil {
		return "", fmt.Errorf("failed to parse unsplash response: %w", err)
	}

	if len(sResp.Results) == 0 || sResp.Results[0].URLs.Regular == "" {
		return "", errors.New("unsplash returned no results")
	}
	return sResp.Results[0].URLs.Regular, nil
}
