// Package gibs is a client of the NASA Global Imagery Browse Services (WMTS tiles and WMS quicklooks)
package gibs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/observability"
	"github.com/airbusgeo/modis/internal/utils"
)

const maxBodyInError = 256

// Client fetches capabilities, tiles and quicklooks from the imagery service
type Client struct {
	httpClient *http.Client
	wmtsURL    string
	wmsURL     string
	maxTries   int
	retryDelay time.Duration
	cacheSize  int
	cache      *lru.Cache[string, []byte]
	metrics    *observability.Metrics
}

type Option func(c *Client)

// WithHTTPClient sets the http client used for all the requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithWMTSURL overrides DefaultWMTSURL
func WithWMTSURL(u string) Option {
	return func(c *Client) {
		c.wmtsURL = u
	}
}

// WithWMSURL overrides DefaultWMSURL
func WithWMSURL(u string) Option {
	return func(c *Client) {
		c.wmsURL = u
	}
}

// MaxTries sets the number of tries of a request failing with a temporary error (default: 1, no retry)
func MaxTries(n int) Option {
	if n <= 0 {
		n = 1
	}
	return func(c *Client) {
		c.maxTries = n
	}
}

// RetryDelay sets the delay before the first retry. It doubles at each retry.
func RetryDelay(d time.Duration) Option {
	if d < 0 {
		d = 0
	}
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithTileCache keeps the last size tiles in memory. 0 disables the cache.
func WithTileCache(size int) Option {
	return func(c *Client) {
		c.cacheSize = size
	}
}

// WithMetrics records the requests in m
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewHTTPClient creates the default http client
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// New creates a new client
func New(opts ...Option) (*Client, error) {
	c := &Client{
		wmtsURL:    DefaultWMTSURL,
		wmsURL:     DefaultWMSURL,
		maxTries:   1,
		retryDelay: time.Second,
		cacheSize:  64,
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(time.Minute)
	}
	if c.cacheSize > 0 {
		var err error
		if c.cache, err = lru.New[string, []byte](c.cacheSize); err != nil {
			return nil, fmt.Errorf("gibs.New: %w", err)
		}
	}
	return c, nil
}

// WMTSURL returns the base url of the tile service
func (c *Client) WMTSURL() string {
	return c.wmtsURL
}

// FetchTile returns the encoded image of a tile.
// It returns a *ConnectionError or a *StatusError on failure.
func (c *Client) FetchTile(ctx context.Context, layer, date string, tile modis.Tile, enc modis.Encoding) ([]byte, error) {
	u := TileURL(c.wmtsURL, layer, date, tile, enc)
	if c.cache != nil {
		if data, ok := c.cache.Get(u); ok {
			c.metrics.IncCacheHit()
			return data, nil
		}
		c.metrics.IncCacheMiss()
	}

	buf := &bytes.Buffer{}
	if err := c.get(ctx, observability.EndpointTile, u, buf); err != nil {
		return nil, err
	}
	log.Logger(ctx).Debug("tile fetched", zap.String("url", u), zap.Int("size", buf.Len()))

	data := buf.Bytes()
	if c.cache != nil {
		c.cache.Add(u, data)
	}
	return data, nil
}

// FetchQuicklook streams the jpeg quicklook of layer over bbox to w.
// The size of the quicklook is given by QuicklookSize.
// A failure of w is returned as a *WriteError.
func (c *Client) FetchQuicklook(ctx context.Context, layer string, bbox [4]float64, date string, w io.Writer) error {
	width, height, err := QuicklookSize(bbox, QuicklookMaxSize)
	if err != nil {
		return err
	}
	u := QuicklookURL(c.wmsURL, layer, bbox, date, width, height)
	log.Logger(ctx).Debug("fetching quicklook", zap.String("url", u))
	return c.get(ctx, observability.EndpointQuicklook, u, w)
}

// get copies the body of u to w, retrying temporary failures as long as nothing was written
func (c *Client) get(ctx context.Context, endpoint, u string, w io.Writer) error {
	d := c.retryDelay
	var err error
	for try := 0; try < c.maxTries; try++ {
		if try > 0 {
			log.Logger(ctx).Sugar().Debugf("retry %d/%d %s: %v", try, c.maxTries-1, u, err)
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return &ConnectionError{URL: u, Err: ctx.Err()}
			}
			d *= 2
		}
		var written bool
		written, err = c.getOnce(ctx, endpoint, u, w)
		if err == nil || written || IsWriteError(err) || !utils.Retriable(err) {
			return err
		}
	}
	return err
}

func (c *Client) getOnce(ctx context.Context, endpoint, u string, w io.Writer) (bool, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, &ConnectionError{URL: u, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, 0, time.Since(start))
		return false, &ConnectionError{URL: u, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyInError))
		return false, &StatusError{URL: u, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	dst := &destination{w: w}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		if dst.err != nil {
			return n > 0, &WriteError{URL: u, Err: dst.err}
		}
		return n > 0, &ConnectionError{URL: u, Err: err}
	}
	return n > 0, nil
}

// destination keeps the error of the writer, to tell it apart from the errors of the body
type destination struct {
	w   io.Writer
	err error
}

func (d *destination) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err != nil {
		d.err = err
	}
	return n, err
}
