package auraxis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ContinentState is the ownership summary of one continent.
type ContinentState struct {
	Continent Continent
	VS        int
	NC        int
	TR        int
	// Locked is the owning faction, or FactionNone while the continent is open.
	Locked Faction
	// Unstable is set when a region has no owner.
	Unstable bool
	// Unowned is set when regions are reported but none has an owner. The
	// continent is closed without any faction holding it.
	Unowned bool
	// Regions is the number of regions reported, zero for a disabled continent.
	Regions int
}

// Open reports whether the continent is playable and contested.
func (s ContinentState) Open() bool {
	return s.Locked == FactionNone && !s.Unowned
}

// Total is the number of owned territories after warpgate adjustment.
func (s ContinentState) Total() int {
	return s.VS + s.NC + s.TR
}

// Territory is the continent ownership of one server, in Continents order.
type Territory struct {
	World      int
	Continents []ContinentState
}

// OpenContinents returns the names of unlocked continents. Continents with no
// regions are disabled on the server and skipped.
func (t *Territory) OpenContinents() []string {
	var open []string
	for _, s := range t.Continents {
		if s.Open() && s.Regions > 0 {
			open = append(open, s.Continent.Name)
		}
	}
	return open
}

type mapZone struct {
	ZoneID  string `json:"ZoneId"`
	Regions struct {
		Row []struct {
			RowData struct {
				RegionID  string `json:"RegionId"`
				FactionID string `json:"FactionId"`
			} `json:"RowData"`
		} `json:"Row"`
	} `json:"Regions"`
}

// Territory reads the territory control of a server.
func (c *Client) Territory(ctx context.Context, s Server) (*Territory, error) {
	ids := make([]int, 0, len(Continents))
	for _, cont := range Continents {
		ids = append(ids, cont.ZoneID)
	}
	sort.Ints(ids)
	zones := make([]string, len(ids))
	for i, id := range ids {
		zones[i] = strconv.Itoa(id)
	}
	ext := fmt.Sprintf("map/?world_id=%d&zone_ids=%s", s.ID, strings.Join(zones, ","))
	raw, err := c.fetcher.Fetch(ctx, c.censusRequest(s.Platform, "map_list", ext))
	if err != nil {
		return nil, err
	}
	var list []mapZone
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode territory %s: %w", s.Key, err)
	}
	return c.summarize(s.ID, list)
}

func (c *Client) summarize(world int, list []mapZone) (*Territory, error) {
	if len(list) < 3 {
		return nil, fmt.Errorf("territory response missing continents: got %d", len(list))
	}
	byZone := make(map[int]ContinentState, len(list))
	for _, z := range list {
		st := ContinentState{Regions: len(z.Regions.Row)}
		for _, row := range z.Regions.Row {
			switch Faction(atoi(row.RowData.FactionID)) {
			case FactionVS:
				st.VS++
			case FactionNC:
				st.NC++
			case FactionTR:
				st.TR++
			default:
				if !c.ignoredRegions[row.RowData.RegionID] {
					st.Unstable = true
				}
			}
		}
		byZone[atoi(z.ZoneID)] = st
	}

	t := &Territory{World: world}
	for _, cont := range Continents {
		st := byZone[cont.ZoneID]
		st.Continent = cont
		total := st.VS + st.NC + st.TR
		switch {
		case total == 0:
			st.Unowned = st.Regions > 0
		case st.VS == total:
			st.Locked = FactionVS
		case st.NC == total:
			st.Locked = FactionNC
		case st.TR == total:
			st.Locked = FactionTR
		}
		// Each faction's warpgate is not capturable territory.
		st.VS = max(0, st.VS-1)
		st.NC = max(0, st.NC-1)
		st.TR = max(0, st.TR-1)
		t.Continents = append(t.Continents, st)
	}
	return t, nil
}
