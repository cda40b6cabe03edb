package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/alfredjeanlab/auraxis/internal/model"
)

// DiscordAdapter applies renderings through the Discord REST API.
type DiscordAdapter struct {
	client ChatClient
}

// Compile-time check that DiscordAdapter implements Applier.
var _ Applier = (*DiscordAdapter)(nil)

// NewDiscordAdapter wraps a Discord client.
func NewDiscordAdapter(c ChatClient) *DiscordAdapter {
	return &DiscordAdapter{client: c}
}

// NewDiscordSession opens a REST-only bot session.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return s, nil
}

// Apply writes r to the output row points at.
func (a *DiscordAdapter) Apply(ctx context.Context, r Rendering, row *model.Row) Result {
	switch row.Kind {
	case model.SinkChannel:
		return a.rename(ctx, r.Name, row.ChannelID)
	case model.SinkMessage:
		return a.edit(ctx, r.Embed, row.ChannelID, row.MessageID)
	}
	return Result{Outcome: Other, Err: fmt.Errorf("unknown sink kind %q", row.Kind)}
}

func (a *DiscordAdapter) rename(ctx context.Context, name, channelID string) Result {
	if name == "" {
		return Result{Outcome: Other, Err: errors.New("empty channel name")}
	}
	ch, err := a.client.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return failure("fetch channel", err)
	}
	if ch.Name == name {
		return Result{Outcome: Skipped}
	}
	_, err = a.client.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name},
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(AuditReason))
	if err != nil {
		return failure("rename channel", err)
	}
	return Result{Outcome: OK}
}

func (a *DiscordAdapter) edit(ctx context.Context, embed *discordgo.MessageEmbed, channelID, messageID string) Result {
	if embed == nil {
		return Result{Outcome: Other, Err: errors.New("nil embed")}
	}
	_, err := a.client.ChannelMessageEditEmbed(channelID, messageID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return failure("edit message", err)
	}
	return Result{Outcome: OK}
}

func failure(op string, err error) Result {
	return Result{Outcome: Classify(err), Err: fmt.Errorf("%s: %w", op, err)}
}
