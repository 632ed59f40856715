// Package mattermost provides webhook client for sending notifications to Mattermost.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
)

const (
	botUsername    = "Rewards Bot"
	requestTimeout = 10 * time.Second
)

// Client handles Mattermost webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Mattermost client.
func NewClient(cfg *config.MattermostConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

// Enabled reports whether messages are actually delivered.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Message represents a Mattermost message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Pretext  string  `json:"pretext,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	Footer   string  `json:"footer,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// SendMessage sends a message to Mattermost.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Mattermost is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}
	if msg.Username == "" {
		msg.Username = botUsername
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Mattermost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mattermost returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent message to Mattermost")

	return nil
}

// SendSimpleMessage sends a simple text message.
func (c *Client) SendSimpleMessage(ctx context.Context, text string) error {
	return c.SendMessage(ctx, &Message{
		Text: text,
	})
}

// AchievementUnlock describes a freshly granted achievement.
type AchievementUnlock struct {
	AttendantName   string
	Department      string
	AchievementName string
	Description     string
	Icon            string
	XPGained        int
}

// SendAchievementUnlocked announces an achievement grant.
func (c *Client) SendAchievementUnlocked(ctx context.Context, u AchievementUnlock) error {
	title := fmt.Sprintf("🏆 %s unlocked **%s**", u.AttendantName, u.AchievementName)
	if u.Icon != "" {
		title = fmt.Sprintf(":%s: %s unlocked **%s**", u.Icon, u.AttendantName, u.AchievementName)
	}

	fields := []Field{{Short: true, Title: "XP", Value: fmt.Sprintf("%+d", u.XPGained)}}
	if u.Department != "" {
		fields = append(fields, Field{Short: true, Title: "Department", Value: u.Department})
	}

	return c.SendMessage(ctx, &Message{
		Text: title,
		Attachments: []Attachment{{
			Fallback: fmt.Sprintf("%s unlocked %s", u.AttendantName, u.AchievementName),
			Color:    "#f2c744",
			Text:     u.Description,
			Fields:   fields,
		}},
	})
}

// DigestEntry is one line of the leaderboard digest.
type DigestEntry struct {
	Position   int
	Name       string
	Department string
	TotalXP    int
	Level      int
}

// SendLeaderboardDigest posts the top of the leaderboard for a period.
func (c *Client) SendLeaderboardDigest(ctx context.Context, period string, entries []DigestEntry) error {
	if len(entries) == 0 {
		c.log.Debug().Msg("Empty leaderboard, skipping digest")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### 📊 Leaderboard digest (%s)\n\n", period)
	b.WriteString("| # | Attendant | Department | Level | XP |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, e := range entries {
		dept := e.Department
		if dept == "" {
			dept = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d |\n", medal(e.Position), e.Name, dept, e.Level, e.TotalXP)
	}

	return c.SendSimpleMessage(ctx, b.String())
}

func medal(position int) string {
	switch position {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d", position)
}

// SendSeasonStarted announces the start of a season.
func (c *Client) SendSeasonStarted(ctx context.Context, season *models.Season) error {
	text := fmt.Sprintf("🚀 **Season %s has started!**", season.Name)
	if season.Description != "" {
		text += "\n\n" + season.Description
	}

	return c.SendMessage(ctx, &Message{
		Text: text,
		Attachments: []Attachment{{
			Fallback: fmt.Sprintf("Season %s started", season.Name),
			Color:    "#2d9cdb",
			Fields: []Field{
				{Short: true, Title: "XP multiplier", Value: fmt.Sprintf("x%.2f", season.XPMultiplier)},
				{Short: true, Title: "Ends", Value: season.EndTime.Format("2006-01-02")},
			},
		}},
	})
}
