// Package sink applies renderings to Discord outputs and classifies the
// outcome of each write.
package sink

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/alfredjeanlab/auraxis/internal/model"
)

// AuditReason is attached to every channel rename.
const AuditReason = "Scheduled tracker update"

// Rendering is the desired state of an output.
type Rendering struct {
	// Name is the channel name for channel sinks.
	Name string
	// Embed is the message body for message sinks.
	Embed *discordgo.MessageEmbed
}

// Outcome classifies one apply.
type Outcome int

const (
	OK Outcome = iota
	// Skipped means the output already matched and no write was issued.
	Skipped
	// NotFound means the channel or message no longer exists.
	NotFound
	// Forbidden means the bot lost access; the row is kept in case access returns.
	Forbidden
	Other
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Skipped:
		return "skipped"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	}
	return "other"
}

// Result is the outcome of applying a rendering to one row.
type Result struct {
	Outcome Outcome
	Err     error
}

// Applier writes renderings to outputs.
type Applier interface {
	Apply(ctx context.Context, r Rendering, row *model.Row) Result
}

// ChatClient is the subset of *discordgo.Session used by the adapter.
type ChatClient interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Compile-time check that the discordgo session satisfies ChatClient.
var _ ChatClient = (*discordgo.Session)(nil)

// Classify maps a Discord error to an outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OK
	}
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return Other
	}
	if rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage:
			return NotFound
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return Forbidden
		}
	}
	if rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusNotFound:
			return NotFound
		case http.StatusForbidden:
			return Forbidden
		}
	}
	return Other
}
