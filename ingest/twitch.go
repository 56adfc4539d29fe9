package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/vote-tender/vote"
)

// SourceTwitch is the submission source tag for Twitch chat.
const SourceTwitch = "twitch"

// ircClient is the subset of *twitch.Client the listener uses.
type ircClient interface {
	OnPrivateMessage(func(twitch.PrivateMessage))
	Join(channels ...string)
	Connect() error
	Disconnect() error
}

// CommandFunc handles a privileged chat command such as "!reset".
type CommandFunc func(ctx context.Context, command, user string)

// TwitchSource reads votes from a Twitch channel over IRC.
type TwitchSource struct {
	Channel string
	// BotUsername and OAuthToken log in as a bot; both empty joins anonymously.
	BotUsername string
	OAuthToken  string
	// OnCommand receives "!reset" from the broadcaster or the bot account. Nil ignores commands.
	OnCommand CommandFunc

	newClient func() ircClient
}

func (s *TwitchSource) Name() string { return SourceTwitch }

func (s *TwitchSource) client() ircClient {
	if s.newClient != nil {
		return s.newClient()
	}
	if s.BotUsername != "" && s.OAuthToken != "" {
		token := s.OAuthToken
		if !strings.HasPrefix(token, "oauth:") {
			token = "oauth:" + token
		}
		return twitch.NewClient(s.BotUsername, token)
	}
	return twitch.NewAnonymousClient()
}

// Run connects, joins the channel and emits every message that names an answer.
func (s *TwitchSource) Run(ctx context.Context, emit Emit) error {
	client := s.client()
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		s.handle(ctx, msg, emit)
	})
	client.Join(s.Channel)

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = client.Disconnect()
		case <-done:
		}
	}()

	err := client.Connect()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, twitch.ErrClientDisconnected) {
		return nil
	}
	return err
}

func (s *TwitchSource) handle(ctx context.Context, msg twitch.PrivateMessage, emit Emit) {
	text := strings.TrimSpace(msg.Message)
	if strings.EqualFold(text, "!reset") {
		if s.OnCommand != nil && s.privileged(msg.User) {
			slog.Info("chat command", slog.String("source", SourceTwitch), slog.String("command", "reset"), slog.String("user", msg.User.Name))
			s.OnCommand(ctx, "reset", msg.User.Name)
		}
		return
	}
	// Chat is mostly conversation; only answers enter the pipeline.
	if _, ok := vote.Normalize(text); !ok {
		return
	}
	sub := vote.Submission{
		Source:    SourceTwitch,
		Username:  msg.User.Name,
		Message:   text,
		MessageID: msg.ID,
	}
	if !msg.Time.IsZero() {
		sub.Timestamp = vote.Seconds(msg.Time)
	}
	emit(sub)
}

func (s *TwitchSource) privileged(u twitch.User) bool {
	if u.Badges["broadcaster"] > 0 {
		return true
	}
	if strings.EqualFold(u.Name, s.Channel) {
		return true
	}
	return s.BotUsername != "" && strings.EqualFold(u.Name, s.BotUsername)
}
