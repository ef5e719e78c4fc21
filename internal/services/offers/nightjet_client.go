package offers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/rs/zerolog"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NightJetClient reads the public NightJet booking offers feed.
type NightJetClient struct {
	baseURL string
	referer string
	client  HTTPClient
	logger  zerolog.Logger
}

func NewNightJetClient(baseURL, referer string, httpClient HTTPClient, logger zerolog.Logger) *NightJetClient {
	return &NightJetClient{
		baseURL: baseURL,
		referer: referer,
		client:  httpClient,
		logger:  logger.With().Str("component", "NightJetClient").Logger(),
	}
}

// Fetch returns the first offer the feed lists for the connection, or nil when it lists none.
func (c *NightJetClient) Fetch(ctx context.Context, q models.OfferQuery) (*models.Offer, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/destinations/offers/%s/%s/%s/%s",
		c.baseURL,
		url.PathEscape(q.TrainNumber),
		url.PathEscape(q.From),
		url.PathEscape(q.To),
		strconv.FormatInt(q.DepartureMillis, 10),
	)

	c.logger.Debug().Ctx(ctx).
		Str("train", q.TrainNumber).
		Str("url", endpoint).
		Msg("requesting offers")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", c.referer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Ctx(ctx).
			Str("url", endpoint).
			Msg("offers request failed")
		return nil, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to close response body")
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("offers feed error: status %s", resp.Status)
	}

	var offers []models.Offer
	if err := json.NewDecoder(resp.Body).Decode(&offers); err != nil {
		return nil, fmt.Errorf("decode offers: %w", err)
	}

	c.logger.Debug().Ctx(ctx).
		Str("train", q.TrainNumber).
		Int("offers", len(offers)).
		Dur("duration", time.Since(start)).
		Msg("offers received")

	if len(offers) == 0 {
		return nil, nil
	}
	return &offers[0], nil
}
