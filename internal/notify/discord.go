package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Discord delivers notifications to a caregiver channel. Messages go out over
// the REST API; no gateway connection is opened since the sink never listens.
type Discord struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
}

func NewDiscord(token, channelID string, logger *zap.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	logger.Info("Discord sink ready", zap.String("channel_id", channelID))

	return &Discord{session: session, channelID: channelID, logger: logger}, nil
}

func (d *Discord) Send(ctx context.Context, event Event) error {
	content := "**" + event.Title + "**\n" + event.Body
	if _, err := d.session.ChannelMessageSend(d.channelID, content); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}
