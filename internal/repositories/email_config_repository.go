package repositories

import (
	"database/sql"
	"time"

	"github.com/digitool/volerex/internal/models"
	"github.com/google/uuid"
)

type EmailConfigRepository struct {
	db *sql.DB
}

func NewEmailConfigRepository(db *sql.DB) *EmailConfigRepository {
	return &EmailConfigRepository{
		db: db,
	}
}

const emailConfigColumns = `id, user_id, channel, imap_server, username, password, port, use_ssl, enabled,
	last_test, test_status, last_check, total_processed, updated_at`

// Get retrieves a user's configuration for one channel
func (r *EmailConfigRepository) Get(userID, channel string) (*models.EmailConfig, error) {
	query := `SELECT ` + emailConfigColumns + ` FROM email_configs WHERE user_id = $1 AND channel = $2`

	cfg := &models.EmailConfig{}
	err := r.db.QueryRow(query, userID, channel).Scan(
		&cfg.ID,
		&cfg.UserID,
		&cfg.Channel,
		&cfg.ImapServer,
		&cfg.Username,
		&cfg.Password,
		&cfg.Port,
		&cfg.UseSSL,
		&cfg.Enabled,
		&cfg.LastTest,
		&cfg.TestStatus,
		&cfg.LastCheck,
		&cfg.TotalProcessed,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Upsert writes a user's channel configuration, keeping a single row
// per user and channel
func (r *EmailConfigRepository) Upsert(cfg *models.EmailConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	cfg.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO email_configs (` + emailConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT(user_id, channel) DO UPDATE SET
			imap_server = excluded.imap_server,
			username = excluded.username,
			password = excluded.password,
			port = excluded.port,
			use_ssl = excluded.use_ssl,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		cfg.ID,
		cfg.UserID,
		cfg.Channel,
		cfg.ImapServer,
		cfg.Username,
		cfg.Password,
		cfg.Port,
		cfg.UseSSL,
		cfg.Enabled,
		cfg.LastTest,
		cfg.TestStatus,
		cfg.LastCheck,
		cfg.TotalProcessed,
		cfg.UpdatedAt,
	)

	return err
}

// RecordTest stamps the outcome of a connection test
func (r *EmailConfigRepository) RecordTest(userID, channel, status string) error {
	query := `
		UPDATE email_configs
		SET last_test = $1, test_status = $2, updated_at = $1
		WHERE user_id = $3 AND channel = $4
	`

	result, err := r.db.Exec(query, time.Now().UTC(), status, userID, channel)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// RecordCheck advances the check bookkeeping after a successful poll
func (r *EmailConfigRepository) RecordCheck(userID, channel string, processed int) error {
	query := `
		UPDATE email_configs
		SET last_check = $1, total_processed = total_processed + $2, updated_at = $1
		WHERE user_id = $3 AND channel = $4
	`

	result, err := r.db.Exec(query, time.Now().UTC(), processed, userID, channel)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes a user's channel configuration
func (r *EmailConfigRepository) Delete(userID, channel string) error {
	result, err := r.db.Exec(`DELETE FROM email_configs WHERE user_id = $1 AND channel = $2`, userID, channel)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
