package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/alfredjeanlab/auraxis/internal/auraxis"
)

// Footer credits per data source.
const (
	alertsFooter     = "Data from ps2alerts.com"
	dashboardFooter  = "Data from ps2.fisu.pw and the Census API"
	outfitFooter     = "Data from the Census API"
	alertLinkPattern = "https://ps2alerts.com/alert/%s?utm_source=auraxis-bot&utm_medium=discord&utm_campaign=partners"
)

var brackets = map[int]string{
	1: "Dead",
	2: "Low",
	3: "Medium",
	4: "High",
	5: "Prime",
}

// relative formats t as a Discord relative timestamp.
func relative(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

// clock formats t as a Discord short time.
func clock(t time.Time) string {
	return fmt.Sprintf("<t:%d:t>", t.Unix())
}

// AlertEmbed renders an alert. complete selects the ended layout.
func AlertEmbed(a *auraxis.Alert, complete bool, now time.Time) *discordgo.MessageEmbed {
	title := "Alert"
	if cont, ok := auraxis.ContinentByZone(a.Zone); ok {
		title = cont.Name + " alert"
	}
	server := fmt.Sprint(a.World)
	if s, ok := auraxis.ServerByID(a.World); ok {
		server = s.Name
	}

	status := fmt.Sprintf("Started %s\nEnds %s", clock(a.TimeStarted), relative(a.EndsAt()))
	if a.Ended() {
		status = "Ended " + relative(*a.TimeEnded)
	}
	pop := brackets[a.Bracket]
	if pop == "" {
		pop = "Unknown"
	}

	e := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("[View on ps2alerts.com]("+alertLinkPattern+")", a.InstanceID),
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: alertsFooter},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Server", Value: server, Inline: true},
			{Name: "Status", Value: status, Inline: true},
			{Name: "Population", Value: pop, Inline: true},
			{Name: "Territory Control", Value: fmt.Sprintf(
				"**VS**: %.0f%%\n**NC**: %.0f%%\n**TR**: %.0f%%",
				a.Result.VS, a.Result.NC, a.Result.TR), Inline: true},
		},
	}
	if complete {
		result := "Draw"
		if !a.Result.Draw {
			if w := a.Winner(); w != auraxis.FactionNone {
				result = w.Initial() + " win"
				e.Color = w.Color()
			} else {
				result = "Unknown"
			}
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Result", Value: result, Inline: true})
	}
	return e
}

// ServerDashboardEmbed renders the population and continent status of a server.
func ServerDashboardEmbed(s auraxis.Server, pop *auraxis.Population, ter *auraxis.Territory, now time.Time) *discordgo.MessageEmbed {
	total := pop.Total()
	e := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("%s status", s.Name),
		Timestamp: now.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: dashboardFooter},
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
		Name: fmt.Sprintf("Population - %d", total),
		Value: strings.Join([]string{
			factionLine(auraxis.FactionVS, pop.VS, total),
			factionLine(auraxis.FactionNC, pop.NC, total),
			factionLine(auraxis.FactionTR, pop.TR, total),
			factionLine(auraxis.FactionNS, pop.NS, total),
		}, "\n"),
	})
	for _, st := range ter.Continents {
		if st.Regions == 0 {
			continue
		}
		e.Fields = append(e.Fields, continentField(st))
	}
	return e
}

func continentField(st auraxis.ContinentState) *discordgo.MessageEmbedField {
	if !st.Open() {
		value := "Locked"
		if st.Locked != auraxis.FactionNone {
			value += " by " + st.Locked.Initial()
		}
		return &discordgo.MessageEmbedField{Name: st.Continent.Name, Value: value, Inline: true}
	}
	total := st.Total()
	value := strings.Join([]string{
		factionLine(auraxis.FactionVS, st.VS, total),
		factionLine(auraxis.FactionNC, st.NC, total),
		factionLine(auraxis.FactionTR, st.TR, total),
	}, "\n")
	if st.Unstable {
		value = "*Currently unstable*\n" + value
	}
	return &discordgo.MessageEmbedField{Name: st.Continent.Name, Value: value, Inline: true}
}

// factionLine renders "**VS**: 10  |  33%".
func factionLine(f auraxis.Faction, n, total int) string {
	return fmt.Sprintf("**%s**: %d  |  %s%%", f.Initial(), n, percent(n, total))
}

func percent(n, total int) string {
	if total <= 0 {
		total = 1
	}
	return fmt.Sprintf("%.0f", float64(n)/float64(total)*100)
}

// OutfitDashboardEmbed renders the online status of an outfit.
func OutfitDashboardEmbed(o *auraxis.Outfit, now time.Time) *discordgo.MessageEmbed {
	title := o.Name
	if o.Alias != "" {
		title = fmt.Sprintf("[%s] %s", o.Alias, o.Name)
	}
	online := "Online member count unavailable"
	if o.OnlineCount != auraxis.OnlineUnknown {
		online = fmt.Sprintf("%d / %d", o.OnlineCount, o.MemberCount)
	}
	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     o.Faction.Color(),
		Timestamp: now.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: outfitFooter},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Online", Value: online, Inline: true},
			{Name: "Faction", Value: o.Faction.Initial(), Inline: true},
		},
	}
}
