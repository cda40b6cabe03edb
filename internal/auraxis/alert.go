package auraxis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/fetch"
)

// Alert is one alert instance as reported by the alert tracker.
type Alert struct {
	InstanceID  string     `json:"instanceId"`
	World       int        `json:"world"`
	Zone        int        `json:"zone"`
	EventType   int        `json:"censusMetagameEventType"`
	TimeStarted time.Time  `json:"timeStarted"`
	TimeEnded   *time.Time `json:"timeEnded"`
	DurationMS  int64      `json:"duration"`
	Bracket     int        `json:"bracket"`
	Result      struct {
		VS     float64  `json:"vs"`
		NC     float64  `json:"nc"`
		TR     float64  `json:"tr"`
		Victor *Faction `json:"victor"`
		Draw   bool     `json:"draw"`
	} `json:"result"`
}

// Ended reports whether the alert has an end timestamp.
func (a *Alert) Ended() bool {
	return a.TimeEnded != nil && !a.TimeEnded.IsZero()
}

// Winner returns the victor, or FactionNone while it is unset.
func (a *Alert) Winner() Faction {
	if a.Result.Victor == nil {
		return FactionNone
	}
	switch *a.Result.Victor {
	case FactionVS, FactionNC, FactionTR:
		return *a.Result.Victor
	}
	return FactionNone
}

// EndsAt returns the scheduled end of a running alert.
func (a *Alert) EndsAt() time.Time {
	return a.TimeStarted.Add(time.Duration(a.DurationMS) * time.Millisecond)
}

// Alert reads one alert instance.
func (c *Client) Alert(ctx context.Context, instanceID string) (*Alert, error) {
	raw, err := c.fetcher.Fetch(ctx, alertRequest(c.alertsURL, instanceID))
	if err != nil {
		return nil, err
	}
	var a Alert
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode alert %s: %w", instanceID, err)
	}
	return &a, nil
}

func alertRequest(base, instanceID string) fetch.Request {
	return fetch.Request{URL: base + "/instances/" + url.PathEscape(instanceID)}
}
