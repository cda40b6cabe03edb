// Package render turns API snapshots into channel names and message embeds.
package render

import (
	"fmt"
	"strings"

	"github.com/alfredjeanlab/auraxis/internal/auraxis"
)

// PopulationName is the channel name of a population tracker.
func PopulationName(s auraxis.Server, pop *auraxis.Population) string {
	return fmt.Sprintf("%s: %d online", s.Name, pop.Total())
}

// TerritoryName is the channel name of a territory tracker.
func TerritoryName(s auraxis.Server, t *auraxis.Territory) string {
	return fmt.Sprintf("%s: %s", s.Name, strings.Join(t.OpenContinents(), ", "))
}

// OutfitName is the channel name of an outfit tracker. showFaction prefixes
// the faction indicator.
func OutfitName(o *auraxis.Outfit, showFaction bool) string {
	count := "?"
	if o.OnlineCount != auraxis.OnlineUnknown {
		count = fmt.Sprint(o.OnlineCount)
	}
	name := fmt.Sprintf("%s: %s online", o.Alias, count)
	if showFaction {
		return o.Faction.Indicator() + " " + name
	}
	return name
}
