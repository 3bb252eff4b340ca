package services

import (
	"database/sql"
	"errors"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
)

type EmailConfigService struct {
	configRepo *repositories.EmailConfigRepository
}

func NewEmailConfigService(configRepo *repositories.EmailConfigRepository) *EmailConfigService {
	return &EmailConfigService{
		configRepo: configRepo,
	}
}

// GetConfig retrieves a user's configuration for one channel
func (s *EmailConfigService) GetConfig(userID, channel string) (*models.EmailConfig, error) {
	if !models.ValidChannel(channel) {
		return nil, errors.New("unknown email channel")
	}
	return s.configRepo.Get(userID, channel)
}

// SaveConfig applies a partial configuration update for one channel.
// A blank password keeps the stored one, so clients never need to echo
// credentials back.
func (s *EmailConfigService) SaveConfig(userID, channel string, update *models.EmailConfigUpdate) (*models.EmailConfig, error) {
	if !models.ValidChannel(channel) {
		return nil, errors.New("unknown email channel")
	}

	cfg, err := s.configRepo.Get(userID, channel)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		cfg = &models.EmailConfig{
			UserID:  userID,
			Channel: channel,
			Port:    993,
			UseSSL:  true,
		}
	}

	if update.ImapServer != nil {
		cfg.ImapServer = *update.ImapServer
	}
	if update.Username != nil {
		cfg.Username = *update.Username
	}
	if update.Password != nil && *update.Password != "" {
		cfg.Password = *update.Password
	}
	if update.Port != nil {
		cfg.Port = *update.Port
	}
	if update.UseSSL != nil {
		cfg.UseSSL = *update.UseSSL
	}
	if update.Enabled != nil {
		cfg.Enabled = *update.Enabled
	}

	if err := s.configRepo.Upsert(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DeleteConfig removes a user's channel configuration
func (s *EmailConfigService) DeleteConfig(userID, channel string) error {
	if !models.ValidChannel(channel) {
		return errors.New("unknown email channel")
	}
	return s.configRepo.Delete(userID, channel)
}

// ChannelStatus summarizes the state of one channel for a user
func (s *EmailConfigService) ChannelStatus(userID, channel string) (*models.ChannelStatus, error) {
	cfg, err := s.configRepo.Get(userID, channel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ChannelStatus{}, nil
		}
		return nil, err
	}

	status := &models.ChannelStatus{
		IsConfigured:   cfg.IsConfigured(),
		LastCheck:      cfg.LastCheck,
		TotalProcessed: cfg.TotalProcessed,
		Enabled:        cfg.Enabled,
	}
	if cfg.Username != "" {
		status.EmailAddress = &cfg.Username
	}
	return status, nil
}
