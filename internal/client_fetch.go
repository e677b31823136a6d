package internal

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	PrixCarburantAPIURL   = "https://data.economie.gouv.fr/api/explore/v2.1/catalog/datasets/prix-des-carburants-en-france-flux-instantane-v2/records"
	DefaultTimeZone       = "Europe/Paris"
	DefaultRequestTimeout = 30 * time.Second
)

var ATTRIBUTION = []string{
	"Prix des carburants en France, flux instantané v2 - data.economie.gouv.fr",
	"Licence Ouverte / Open Licence version 2.0",
}

// ErrCannotConnect marks timeouts and transport failures. Test with errors.Is.
var ErrCannotConnect = errors.New("cannot connect to the Prix Carburant API")

// RequestError is returned when the API was reachable but answered with an unexpected
// status or body.
type RequestError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("API request error %d: %s", e.StatusCode, e.Body)
}

type CatalogClient interface {
	// Request performs a single GET against the records endpoint. lang and timezone
	// are always added to params.
	Request(ctx context.Context, params url.Values) (*models.CatalogResponse, error)
	Close()
}

type ClientOptions struct {
	BaseURL  string
	TimeZone string
	Timeout  time.Duration
	SSLCheck bool
	// HTTPClient is optional. When set it is used as-is (its TLS settings win over
	// SSLCheck) and is never closed by the catalog client.
	HTTPClient *http.Client
}

type catalogClient struct {
	baseURL    string
	timeZone   string
	timeout    time.Duration
	client     *http.Client
	ownsClient bool
	logger     zerolog.Logger
}

func NewCatalogClient(opts ClientOptions, logger zerolog.Logger) CatalogClient {
	c := &catalogClient{
		baseURL:  opts.BaseURL,
		timeZone: opts.TimeZone,
		timeout:  opts.Timeout,
		client:   opts.HTTPClient,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = PrixCarburantAPIURL
	}
	if c.timeZone == "" {
		c.timeZone = DefaultTimeZone
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRequestTimeout
	}
	if c.client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !opts.SSLCheck {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user opt-out
		}
		c.client = &http.Client{Transport: transport}
		c.ownsClient = true
	}
	return c
}

func (c *catalogClient) Request(ctx context.Context, params url.Values) (*models.CatalogResponse, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	query.Set("lang", "fr")
	query.Set("timezone", c.timeZone)

	reqURL := c.baseURL + "?" + query.Encode()
	c.logger.Debug().Str("url", reqURL).Msg("GET")

	start := time.Now()
	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		observeRequest(outcomeCannotConnect, start)
		return nil, err
	}

	if status != http.StatusOK || json.Get(body, "results").ValueType() == jsoniter.InvalidValue {
		observeRequest(outcomeRequestError, start)
		return nil, &RequestError{URL: reqURL, StatusCode: status, Body: string(body)}
	}

	resp, err := models.DecodeCatalogResponse(body)
	if err != nil {
		observeRequest(outcomeRequestError, start)
		return nil, errors.WithSecondaryError(&RequestError{URL: reqURL, StatusCode: status, Body: string(body)}, err)
	}

	observeRequest(outcomeOK, start)
	return resp, nil
}

func (c *catalogClient) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, c.classify(ctx, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to close body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, c.classify(ctx, err)
	}
	return body, resp.StatusCode, nil
}

// classify maps a transport error onto ErrCannotConnect, unless the caller's own
// context was cancelled, in which case the cancellation is returned unmarked.
func (c *catalogClient) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, "catalog request aborted")
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return errors.Mark(errors.Wrapf(err, "timeout after %s while connecting to Prix Carburant API", c.timeout), ErrCannotConnect)
	}
	return errors.Mark(errors.Wrap(err, "error occurred while communicating with the Prix Carburant API"), ErrCannotConnect)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func (c *catalogClient) Close() {
	if c.ownsClient {
		c.client.CloseIdleConnections()
	}
}
