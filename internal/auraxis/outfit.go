package auraxis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// OnlineUnknown is reported when the census online status service is down.
const OnlineUnknown = -1

// Outfit is the online summary of one outfit.
type Outfit struct {
	ID          string
	Platform    string
	Name        string
	Alias       string
	Faction     Faction
	MemberCount int
	// OnlineCount is OnlineUnknown when member status is unavailable.
	OnlineCount int
}

type outfitRecord struct {
	OutfitID    string `json:"outfit_id"`
	Name        string `json:"name"`
	Alias       string `json:"alias"`
	MemberCount string `json:"member_count"`
	Leader      struct {
		FactionID string `json:"faction_id"`
	} `json:"leader"`
	Members []struct {
		CharacterID  string `json:"character_id"`
		OnlineStatus string `json:"online_status"`
	} `json:"members"`
}

// Outfit reads an outfit and counts its online members. It returns
// ErrNotFound when the census has no outfit with that ID.
func (c *Client) Outfit(ctx context.Context, platform, outfitID string) (*Outfit, error) {
	if !ValidPlatform(platform) {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	ext := "outfit/?outfit_id=" + url.QueryEscape(outfitID) + "&c:resolve=member_online_status,leader"
	raw, err := c.fetcher.Fetch(ctx, c.censusRequest(platform, "outfit_list", ext))
	if err != nil {
		return nil, err
	}
	var list []outfitRecord
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode outfit %s: %w", outfitID, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("outfit %s: %w", outfitID, ErrNotFound)
	}
	rec := list[0]

	o := &Outfit{
		ID:          rec.OutfitID,
		Platform:    platform,
		Name:        rec.Name,
		Alias:       rec.Alias,
		Faction:     Faction(atoi(rec.Leader.FactionID)),
		MemberCount: atoi(rec.MemberCount),
	}
	for _, m := range rec.Members {
		if m.OnlineStatus == "service_unavailable" {
			o.OnlineCount = OnlineUnknown
			break
		}
		// Online members report their world ID, offline ones "0".
		if m.OnlineStatus != "" && m.OnlineStatus != "0" {
			o.OnlineCount++
		}
	}
	return o, nil
}
