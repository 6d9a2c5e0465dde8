// Package avalon parses bot command flags and starts the Slack
// runtime.
package avalon

import (
	"context"
	"errors"
	"flag"
	"time"

	game "github.com/camlann/avalon/internal/avalon"
	"github.com/camlann/avalon/internal/bot"
	"github.com/camlann/avalon/internal/chat/slackbot"
	entrypoint "github.com/camlann/avalon/internal/platform/cmd"
)

// Config holds bot command configuration.
type Config struct {
	BotToken    string `env:"AVALON_SLACK_BOT_TOKEN"`
	AppToken    string `env:"AVALON_SLACK_APP_TOKEN"`
	RoundPaceMS int    `env:"AVALON_ROUND_PACE_MS" envDefault:"3000"`
	PollSeconds int    `env:"AVALON_POLL_SECONDS" envDefault:"30"`
}

// ErrTokensRequired indicates missing Slack credentials.
var ErrTokensRequired = errors.New("slack bot and app tokens are required")

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.BotToken, "bot-token", cfg.BotToken, "Slack bot token (xoxb)")
	fs.StringVar(&cfg.AppToken, "app-token", cfg.AppToken, "Slack app-level token (xapp)")
	fs.IntVar(&cfg.RoundPaceMS, "round-pace-ms", cfg.RoundPaceMS, "Pause between game announcements, in milliseconds")
	fs.IntVar(&cfg.PollSeconds, "poll-seconds", cfg.PollSeconds, "How long the lobby accepts join replies, in seconds")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run connects to Slack and serves games until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	if cfg.BotToken == "" || cfg.AppToken == "" {
		return ErrTokensRequired
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAvalon, func(ctx context.Context) error {
		client, err := slackbot.New(cfg.BotToken, cfg.AppToken)
		if err != nil {
			return err
		}

		gameCfg := game.DefaultConfig()
		gameCfg.RoundPace = time.Duration(cfg.RoundPaceMS) * time.Millisecond

		commander, err := bot.New(bot.Deps{
			Sender:    client,
			Router:    client.Router(),
			Directory: client,
			Opener:    client,
			BotID:     client.BotUserID,
		}, bot.Config{
			PollWindow: time.Duration(cfg.PollSeconds) * time.Second,
			Game:       gameCfg,
		})
		if err != nil {
			return err
		}

		errc := make(chan error, 1)
		go func() { errc <- client.Run(ctx) }()
		go func() { errc <- commander.Run(ctx) }()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			return err
		}
	})
}
