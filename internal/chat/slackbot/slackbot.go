// Package slackbot adapts the Slack Socket Mode API to the chat
// contracts the game consumes: an inbound message stream routed
// through a chat.Router, attachment-backed formatted sends, handle
// lookup, and per-player IM opening.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/camlann/avalon/internal/chat"
)

const (
	botUsername = "avalon-bot"
	botIcon     = ":crystal_ball:"
)

// ErrTokenRequired indicates a missing Slack credential.
var ErrTokenRequired = errors.New("slack bot and app tokens are required")

// Client connects the bot to a Slack workspace.
type Client struct {
	api    *slack.Client
	sock   *socketmode.Client
	router *chat.Router

	mu     sync.Mutex
	selfID string
	byName map[string]chat.User
	byID   map[string]chat.User
	ims    map[string]string
}

// New builds a Socket Mode client. botToken is the xoxb bot token,
// appToken the xapp app-level token with connections:write.
func New(botToken, appToken string) (*Client, error) {
	if botToken == "" || appToken == "" {
		return nil, ErrTokenRequired
	}
	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	return &Client{
		api:    api,
		sock:   socketmode.New(api),
		router: chat.NewRouter(),
		byName: make(map[string]chat.User),
		byID:   make(map[string]chat.User),
		ims:    make(map[string]string),
	}, nil
}

// Router returns the router carrying the inbound message stream.
func (c *Client) Router() *chat.Router {
	return c.router
}

// BotUserID returns the bot's own user ID, available after Run has
// authenticated.
func (c *Client) BotUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}

// Run authenticates, loads the user directory, and pumps Socket
// Mode events into the router until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	c.mu.Lock()
	c.selfID = auth.UserID
	c.mu.Unlock()

	if err := c.refreshUsers(ctx); err != nil {
		return err
	}
	log.Printf("connected to Slack as %s (%s)", auth.User, auth.Team)

	go c.consumeEvents(ctx)
	return c.sock.RunContext(ctx)
}

func (c *Client) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.sock.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				payload, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				if evt.Request != nil {
					c.sock.Ack(*evt.Request)
				}
				c.dispatch(payload)
			case socketmode.EventTypeConnectionError:
				log.Printf("slack connection error: %v", evt.Data)
			}
		}
	}
}

func (c *Client) dispatch(payload slackevents.EventsAPIEvent) {
	if payload.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := payload.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Edits, joins, and bot echoes are not player input.
	if ev.SubType != "" || ev.BotID != "" || ev.User == "" {
		return
	}
	c.router.Dispatch(chat.Message{User: ev.User, Channel: ev.Channel, Text: ev.Text})
}

func (c *Client) refreshUsers(ctx context.Context) error {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return fmt.Errorf("list slack users: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range users {
		if u.Deleted || u.IsBot {
			continue
		}
		entry := chat.User{ID: u.ID, Name: u.Name}
		c.byName[strings.ToLower(u.Name)] = entry
		c.byID[u.ID] = entry
	}
	return nil
}

// UserByName resolves a handle, with or without a leading @.
func (c *Client) UserByName(name string) (chat.User, bool) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.byName[key]
	return u, ok
}

// UserByID resolves a user ID.
func (c *Client) UserByID(id string) (chat.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.byID[id]
	return u, ok
}

// OpenDM opens (or returns the cached) IM channel with a user.
func (c *Client) OpenDM(userID string) (string, error) {
	c.mu.Lock()
	if id, ok := c.ims[userID]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	channel, _, _, err := c.api.OpenConversation(&slack.OpenConversationParameters{
		Users:    []string{userID},
		ReturnIM: true,
	})
	if err != nil {
		return "", fmt.Errorf("open dm with %s: %w", userID, err)
	}
	c.mu.Lock()
	c.ims[userID] = channel.ID
	c.mu.Unlock()
	return channel.ID, nil
}

// IsDM reports whether a channel ID names a direct message channel.
func (c *Client) IsDM(channelID string) bool {
	return strings.HasPrefix(channelID, "D")
}

// Send posts plain text.
func (c *Client) Send(channelID, text string) error {
	_, _, err := c.api.PostMessage(channelID, slack.MsgOptionText(text, false))
	return err
}

// PostMessage posts a formatted message as a markdown attachment
// with the accent color and banner framing the game requests.
func (c *Client) PostMessage(channelID string, post chat.Post) error {
	attachment := slack.Attachment{
		Fallback:   post.Text,
		Text:       post.Text,
		Color:      post.Color,
		Pretext:    post.Pretext,
		ThumbURL:   post.ThumbURL,
		MarkdownIn: []string{"pretext", "text"},
	}
	_, _, err := c.api.PostMessage(channelID,
		slack.MsgOptionUsername(botUsername),
		slack.MsgOptionIconEmoji(botIcon),
		slack.MsgOptionAttachments(attachment),
	)
	return err
}
