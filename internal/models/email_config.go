package models

import (
	"time"
)

// EmailConfig holds the connection parameters of one inbound mailbox.
// One config shape serves both channels; the channel name is the
// discriminator. The password is write-only and never serialized.
type EmailConfig struct {
	ID             string     `json:"-"`
	UserID         string     `json:"-"`
	Channel        string     `json:"channel"`
	ImapServer     string     `json:"imap_server"`
	Username       string     `json:"username"`
	Password       string     `json:"-"`
	Port           int        `json:"port"`
	UseSSL         bool       `json:"use_ssl"`
	Enabled        bool       `json:"enabled"`
	LastTest       *time.Time `json:"last_test,omitempty"`
	TestStatus     *string    `json:"test_status,omitempty"`
	LastCheck      *time.Time `json:"last_check,omitempty"`
	TotalProcessed int        `json:"total_processed"`
	UpdatedAt      time.Time  `json:"-"`
}

// IsConfigured reports whether the config is complete enough to connect.
func (c *EmailConfig) IsConfigured() bool {
	return c.ImapServer != "" && c.Username != "" && c.Password != ""
}

// EmailConfigUpdate carries a partial config update. The password is
// only overwritten when a non-blank one is supplied.
type EmailConfigUpdate struct {
	ImapServer *string `json:"imap_server"`
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	Port       *int    `json:"port"`
	UseSSL     *bool   `json:"use_ssl"`
	Enabled    *bool   `json:"enabled"`
}

// EmailConfigStatus is the read view of a channel's configuration.
type EmailConfigStatus struct {
	ImapServer   string     `json:"imap_server,omitempty"`
	Username     string     `json:"username,omitempty"`
	Port         int        `json:"port"`
	UseSSL       bool       `json:"use_ssl"`
	Enabled      bool       `json:"enabled"`
	IsConfigured bool       `json:"is_configured"`
	LastTest     *time.Time `json:"last_test,omitempty"`
	TestStatus   *string    `json:"test_status,omitempty"`
}

// ChannelStatus summarizes a channel for the dashboard status endpoint.
type ChannelStatus struct {
	IsConfigured   bool       `json:"is_configured"`
	LastCheck      *time.Time `json:"last_check,omitempty"`
	TotalProcessed int        `json:"total_processed"`
	Enabled        bool       `json:"enabled"`
	EmailAddress   *string    `json:"email_address,omitempty"`
}

// Status returns the read view without credentials.
func (c *EmailConfig) Status() EmailConfigStatus {
	return EmailConfigStatus{
		ImapServer:   c.ImapServer,
		Username:     c.Username,
		Port:         c.Port,
		UseSSL:       c.UseSSL,
		Enabled:      c.Enabled,
		IsConfigured: c.IsConfigured(),
		LastTest:     c.LastTest,
		TestStatus:   c.TestStatus,
	}
}
