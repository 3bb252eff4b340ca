package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
	"github.com/digitool/volerex/pkg/database"
)

func setupEmailConfig(t *testing.T) *EmailConfigService {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunSQLScripts(db, "../../migrations"))

	return NewEmailConfigService(repositories.NewEmailConfigRepository(db))
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int { return &n }

func TestEmailConfigSave(t *testing.T) {
	service := setupEmailConfig(t)

	t.Run("First save creates the config with defaults", func(t *testing.T) {
		cfg, err := service.SaveConfig("user-1", models.ChannelIMAP, &models.EmailConfigUpdate{
			ImapServer: strPtr("imap.example.com"),
			Username:   strPtr("intake@example.com"),
			Password:   strPtr("secret"),
			Enabled:    boolPtr(true),
		})
		require.NoError(t, err)

		assert.Equal(t, 993, cfg.Port)
		assert.True(t, cfg.UseSSL)
		assert.True(t, cfg.IsConfigured())
	})

	t.Run("Blank password keeps the stored credential", func(t *testing.T) {
		cfg, err := service.SaveConfig("user-1", models.ChannelIMAP, &models.EmailConfigUpdate{
			Password: strPtr(""),
			Port:     intPtr(143),
			UseSSL:   boolPtr(false),
		})
		require.NoError(t, err)

		assert.Equal(t, "secret", cfg.Password)
		assert.Equal(t, 143, cfg.Port)
		assert.False(t, cfg.UseSSL)
	})

	t.Run("Channels are isolated per user", func(t *testing.T) {
		_, err := service.SaveConfig("user-1", models.ChannelWebhook, &models.EmailConfigUpdate{
			Username: strPtr("webhook@example.com"),
		})
		require.NoError(t, err)

		imapCfg, err := service.GetConfig("user-1", models.ChannelIMAP)
		require.NoError(t, err)
		assert.Equal(t, "intake@example.com", imapCfg.Username)

		_, err = service.GetConfig("user-2", models.ChannelIMAP)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("Unknown channel is rejected", func(t *testing.T) {
		_, err := service.SaveConfig("user-1", "carrier-pigeon", &models.EmailConfigUpdate{})
		assert.Error(t, err)
	})
}

func TestEmailConfigStatusHidesCredentials(t *testing.T) {
	service := setupEmailConfig(t)

	_, err := service.SaveConfig("user-1", models.ChannelIMAP, &models.EmailConfigUpdate{
		ImapServer: strPtr("imap.example.com"),
		Username:   strPtr("intake@example.com"),
		Password:   strPtr("secret"),
		Enabled:    boolPtr(true),
	})
	require.NoError(t, err)

	status, err := service.ChannelStatus("user-1", models.ChannelIMAP)
	require.NoError(t, err)

	assert.True(t, status.IsConfigured)
	assert.True(t, status.Enabled)
	require.NotNil(t, status.EmailAddress)
	assert.Equal(t, "intake@example.com", *status.EmailAddress)

	t.Run("Unconfigured channel reports empty status", func(t *testing.T) {
		status, err := service.ChannelStatus("user-2", models.ChannelIMAP)
		require.NoError(t, err)
		assert.False(t, status.IsConfigured)
		assert.Zero(t, status.TotalProcessed)
	})
}

func TestEmailConfigDelete(t *testing.T) {
	service := setupEmailConfig(t)

	_, err := service.SaveConfig("user-1", models.ChannelIMAP, &models.EmailConfigUpdate{
		Username: strPtr("intake@example.com"),
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteConfig("user-1", models.ChannelIMAP))

	_, err = service.GetConfig("user-1", models.ChannelIMAP)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.ErrorIs(t, service.DeleteConfig("user-1", models.ChannelIMAP), sql.ErrNoRows)
}
