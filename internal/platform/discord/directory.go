// Package discord reads the chat-platform guild roster.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const pageSize = 1000

// ChatMember is one guild member as seen by the directory sync.
type ChatMember struct {
	ID         string
	Username   string
	GlobalName string
	Nick       string
}

// Handle returns the name the member is shown under.
func (m ChatMember) Handle() string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.GlobalName != "":
		return m.GlobalName
	default:
		return m.Username
	}
}

type memberLister interface {
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// GuildDirectory pages through the members of one guild.
type GuildDirectory struct {
	api     memberLister
	guildID string
	log     waLog.Logger
}

// NewGuildDirectory opens a bot session for guildID.
func NewGuildDirectory(botToken, guildID string, log waLog.Logger) (*GuildDirectory, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMembers
	return newGuildDirectory(session, guildID, log), nil
}

func newGuildDirectory(api memberLister, guildID string, log waLog.Logger) *GuildDirectory {
	if log == nil {
		log = waLog.Noop
	}
	return &GuildDirectory{api: api, guildID: guildID, log: log}
}

// Members returns every non-bot member of the guild.
func (d *GuildDirectory) Members(ctx context.Context) ([]ChatMember, error) {
	var (
		out   []ChatMember
		after string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := d.api.GuildMembers(d.guildID, after, pageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list guild members after %q: %w", after, err)
		}
		for _, m := range page {
			if m == nil || m.User == nil {
				continue
			}
			after = m.User.ID
			if m.User.Bot {
				continue
			}
			out = append(out, ChatMember{
				ID:         m.User.ID,
				Username:   m.User.Username,
				GlobalName: m.User.GlobalName,
				Nick:       m.Nick,
			})
		}
		if len(page) < pageSize {
			break
		}
	}
	d.log.Debugf("guild %s listed %d member(s)", d.guildID, len(out))
	return out, nil
}
