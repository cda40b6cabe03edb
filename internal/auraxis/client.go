// Package auraxis reads live game state from the census, alert and
// population APIs through a fetch.Fetcher.
package auraxis

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alfredjeanlab/auraxis/internal/fetch"
)

// ErrNotFound is returned when the census has no record of the requested
// entity, such as a disbanded outfit.
var ErrNotFound = errors.New("not found")

// Default endpoints.
const (
	DefaultCensusURL = "https://census.daybreakgames.com"
	DefaultAlertsURL = "https://api.ps2alerts.com"
)

// Client wraps the remote telemetry APIs.
type Client struct {
	fetcher        fetch.Fetcher
	serviceID      string
	censusURL      string
	alertsURL      string
	populationURLs map[string]string
	ignoredRegions map[string]bool
}

// Option configures a Client.
type Option func(*Client)

// WithCensusURL overrides the census base URL.
func WithCensusURL(u string) Option {
	return func(c *Client) { c.censusURL = u }
}

// WithAlertsURL overrides the alert tracker base URL.
func WithAlertsURL(u string) Option {
	return func(c *Client) { c.alertsURL = u }
}

// WithPopulationURL points every platform's population lookups at u.
func WithPopulationURL(u string) Option {
	return func(c *Client) {
		for p := range c.populationURLs {
			c.populationURLs[p] = u
		}
	}
}

// WithIgnoredRegions marks regions that never have an owner so they do not
// count towards a continent's unstable state.
func WithIgnoredRegions(ids ...string) Option {
	return func(c *Client) {
		for _, id := range ids {
			c.ignoredRegions[id] = true
		}
	}
}

// NewClient returns a client that authenticates census reads with serviceID.
func NewClient(f fetch.Fetcher, serviceID string, opts ...Option) *Client {
	c := &Client{
		fetcher:   f,
		serviceID: serviceID,
		censusURL: DefaultCensusURL,
		alertsURL: DefaultAlertsURL,
		populationURLs: map[string]string{
			PlatformPC:    "http://ps2.fisu.pw",
			PlatformPS4US: "http://ps4us.ps2.fisu.pw",
			PlatformPS4EU: "http://ps4eu.ps2.fisu.pw",
		},
		ignoredRegions: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// censusRequest builds a census read. extension starts with the collection
// name and may carry a query string.
func (c *Client) censusRequest(platform, key, extension string) fetch.Request {
	return fetch.Request{
		URL: fmt.Sprintf("%s/s:%s/get/%s/%s", c.censusURL, url.PathEscape(c.serviceID), platform, extension),
		Key: key,
	}
}

// atoi parses census numeric strings, treating junk as zero.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
