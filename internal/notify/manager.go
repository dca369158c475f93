package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"euvdalert/internal/config"
)

// Channel names used as Message.Channel.
const (
	ChannelDaily   = "daily"
	ChannelAlert   = "alert"
	ChannelMonthly = "monthly"
)

// ErrNoProvider is returned when a channel has no deliverer configured.
var ErrNoProvider = errors.New("no delivery provider configured")

// Manager fans a message out to every provider registered for its channel.
type Manager struct {
	providers map[string][]Deliverer
	dryRun    bool
	console   Deliverer
	logger    *slog.Logger
}

// NewManager creates a Manager with the webhooks of cfg. In dry-run mode messages are
// only rendered to the console.
func NewManager(cfg config.NotifyConfig, dryRun bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		providers: make(map[string][]Deliverer),
		dryRun:    dryRun,
		console:   NewConsoleNotifier(),
		logger:    logger,
	}

	for channel, url := range map[string]string{
		ChannelDaily:   cfg.Slack.Daily,
		ChannelAlert:   cfg.Slack.Alert,
		ChannelMonthly: cfg.Slack.Monthly,
	} {
		if url != "" {
			m.Register(channel, NewSlackNotifier(url))
		}
	}
	for channel, url := range map[string]string{
		ChannelDaily:   cfg.Discord.Daily,
		ChannelAlert:   cfg.Discord.Alert,
		ChannelMonthly: cfg.Discord.Monthly,
	} {
		if url != "" {
			m.Register(channel, NewDiscordNotifier(url))
		}
	}
	return m
}

// Register adds a deliverer for channel.
func (m *Manager) Register(channel string, d Deliverer) {
	m.providers[channel] = append(m.providers[channel], d)
}

// SetConsole replaces the dry-run deliverer.
func (m *Manager) SetConsole(d Deliverer) {
	m.console = d
}

// Providers returns the names of the deliverers registered for channel.
func (m *Manager) Providers(channel string) []string {
	var names []string
	for _, d := range m.providers[channel] {
		names = append(names, d.Name())
	}
	return names
}

// Deliver sends msg to every provider of its channel. It fails if any provider fails,
// so that the caller does not record the message as sent.
func (m *Manager) Deliver(ctx context.Context, msg Message) error {
	if m.dryRun {
		m.logger.Info("Dry run, not sending", "channel", msg.Channel, "title", msg.Title, "records", len(msg.RecordIDs), "providers", m.Providers(msg.Channel))
		if m.console != nil {
			if err := m.console.Deliver(ctx, msg); err != nil {
				m.logger.Warn("Failed to render dry-run message", "error", err)
			}
		}
		return nil
	}

	providers := m.providers[msg.Channel]
	if len(providers) == 0 {
		return fmt.Errorf("%w for channel %s", ErrNoProvider, msg.Channel)
	}

	var errs []error
	for _, d := range providers {
		if err := d.Deliver(ctx, msg); err != nil {
			m.logger.Error("Delivery failed", "channel", msg.Channel, "provider", d.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		m.logger.Info("Delivered message", "channel", msg.Channel, "provider", d.Name(), "records", len(msg.RecordIDs))
	}
	return errors.Join(errs...)
}
