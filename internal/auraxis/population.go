package auraxis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/alfredjeanlab/auraxis/internal/fetch"
)

// Population is the per-faction player count on a server.
type Population struct {
	World int `json:"-"`
	VS    int `json:"vs"`
	NC    int `json:"nc"`
	TR    int `json:"tr"`
	NS    int `json:"ns"`
}

// Total sums all factions.
func (p Population) Total() int {
	return p.VS + p.NC + p.TR + p.NS
}

// Population reads the current population of a server.
func (c *Client) Population(ctx context.Context, s Server) (*Population, error) {
	base, ok := c.populationURLs[s.Platform]
	if !ok {
		return nil, fmt.Errorf("no population source for platform %q", s.Platform)
	}
	req := fetch.Request{
		URL: base + "/api/population/?world=" + strconv.Itoa(s.ID),
		Key: "result",
	}
	raw, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	var rows []Population
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode population %s: %w", s.Key, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("population %s: empty result", s.Key)
	}
	pop := rows[0]
	pop.World = s.ID
	return &pop, nil
}
