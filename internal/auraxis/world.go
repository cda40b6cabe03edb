package auraxis

import "strings"

// Census platform namespaces.
const (
	PlatformPC    = "ps2:v2"
	PlatformPS4US = "ps2ps4us:v2"
	PlatformPS4EU = "ps2ps4eu:v2"
)

// Server is a game world.
type Server struct {
	Key      string // lowercase identifier used as entity ID
	Name     string
	ID       int
	Platform string
}

// Servers lists every tracked world in display order.
var Servers = []Server{
	{Key: "connery", Name: "Connery", ID: 1, Platform: PlatformPC},
	{Key: "miller", Name: "Miller", ID: 10, Platform: PlatformPC},
	{Key: "cobalt", Name: "Cobalt", ID: 13, Platform: PlatformPC},
	{Key: "emerald", Name: "Emerald", ID: 17, Platform: PlatformPC},
	{Key: "jaeger", Name: "Jaeger", ID: 19, Platform: PlatformPC},
	{Key: "soltech", Name: "SolTech", ID: 40, Platform: PlatformPC},
	{Key: "genudine", Name: "Genudine", ID: 1000, Platform: PlatformPS4US},
	{Key: "ceres", Name: "Ceres", ID: 2000, Platform: PlatformPS4EU},
}

// ServerByKey looks up a server by its lowercase key.
func ServerByKey(key string) (Server, bool) {
	key = strings.ToLower(key)
	for _, s := range Servers {
		if s.Key == key {
			return s, true
		}
	}
	return Server{}, false
}

// ServerByID looks up a server by world ID.
func ServerByID(id int) (Server, bool) {
	for _, s := range Servers {
		if s.ID == id {
			return s, true
		}
	}
	return Server{}, false
}

// ValidPlatform reports whether p is a census platform namespace.
func ValidPlatform(p string) bool {
	switch p {
	case PlatformPC, PlatformPS4US, PlatformPS4EU:
		return true
	}
	return false
}

// Continent is a playable zone.
type Continent struct {
	Name   string
	ZoneID int
}

// Continents in display order.
var Continents = []Continent{
	{Name: "Indar", ZoneID: 2},
	{Name: "Hossin", ZoneID: 4},
	{Name: "Amerish", ZoneID: 6},
	{Name: "Esamir", ZoneID: 8},
	{Name: "Oshur", ZoneID: 344},
	{Name: "Koltyr", ZoneID: 14},
}

// ContinentByZone looks up a continent by zone ID.
func ContinentByZone(zoneID int) (Continent, bool) {
	for _, c := range Continents {
		if c.ZoneID == zoneID {
			return c, true
		}
	}
	return Continent{}, false
}

// Faction is a census faction ID.
type Faction int

const (
	FactionNone Faction = 0
	FactionVS   Faction = 1
	FactionNC   Faction = 2
	FactionTR   Faction = 3
	FactionNS   Faction = 4
)

// Initial returns the short faction name.
func (f Faction) Initial() string {
	switch f {
	case FactionVS:
		return "VS"
	case FactionNC:
		return "NC"
	case FactionTR:
		return "TR"
	case FactionNS:
		return "NSO"
	}
	return ""
}

// Indicator returns the coloured circle used in channel names.
func (f Faction) Indicator() string {
	switch f {
	case FactionVS:
		return "🟣"
	case FactionNC:
		return "🔵"
	case FactionTR:
		return "🔴"
	}
	return "⚪"
}

// Color returns the embed colour for the faction.
func (f Faction) Color() int {
	switch f {
	case FactionVS:
		return 0x9b59b6
	case FactionNC:
		return 0x3498db
	case FactionTR:
		return 0xe74c3c
	}
	return 0x95a5a6
}
