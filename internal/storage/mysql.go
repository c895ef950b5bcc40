package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"payment-widget/internal/config"
	"payment-widget/internal/logger"
	"payment-widget/internal/models"
)

type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MySQLStore{
		db:  db,
		log: log,
	}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established and tables initialized")
	return store, nil
}

func (s *MySQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating widget_configs table if not exists")

	query := `
    CREATE TABLE IF NOT EXISTS widget_configs (
        widget_id VARCHAR(64) PRIMARY KEY,
        config JSON NOT NULL,
        created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
        updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
        INDEX idx_updated_at (updated_at)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
    `

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create widget_configs table: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "mysql", "widget_configs table ready")
	return nil
}

// SaveConfig upserts the record. The creation time of an existing row is kept.
func (s *MySQLStore) SaveConfig(record *models.WidgetRecord) error {
	s.log.LogDatabase("UPSERT", "mysql", fmt.Sprintf("Saving configuration of widget %s", record.WidgetID))

	data, err := json.Marshal(record.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal widget config: %w", err)
	}

	now := time.Now().UTC()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
    INSERT INTO widget_configs (widget_id, config, created_at, updated_at)
    VALUES (?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE config = VALUES(config), updated_at = VALUES(updated_at)
    `

	if _, err := s.db.Exec(query, record.WidgetID, data, createdAt, now); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save widget %s: %s", record.WidgetID, err.Error()))
		return fmt.Errorf("failed to save widget config: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "mysql", fmt.Sprintf("Widget %s saved successfully", record.WidgetID))
	return nil
}

func (s *MySQLStore) GetConfig(widgetID string) (*models.WidgetRecord, error) {
	s.log.LogDatabase("SELECT", "mysql", fmt.Sprintf("Fetching widget %s", widgetID))

	query := `
    SELECT widget_id, config, created_at, updated_at
    FROM widget_configs WHERE widget_id = ?
    `

	record, err := scanRecord(s.db.QueryRow(query, widgetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.LogDatabase("NOT_FOUND", "mysql", fmt.Sprintf("Widget %s not found", widgetID))
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get widget %s: %s", widgetID, err.Error()))
		return nil, fmt.Errorf("failed to get widget config: %w", err)
	}

	return record, nil
}

func (s *MySQLStore) DeleteConfig(widgetID string) error {
	s.log.LogDatabase("DELETE", "mysql", fmt.Sprintf("Deleting widget %s", widgetID))

	res, err := s.db.Exec(`DELETE FROM widget_configs WHERE widget_id = ?`, widgetID)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to delete widget %s: %s", widgetID, err.Error()))
		return fmt.Errorf("failed to delete widget config: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) ListConfigs() ([]*models.WidgetRecord, error) {
	s.log.LogDatabase("SELECT", "mysql", "Listing widget configurations")

	rows, err := s.db.Query(`
    SELECT widget_id, config, created_at, updated_at
    FROM widget_configs
    ORDER BY created_at ASC
    `)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list widgets: %s", err.Error()))
		return nil, fmt.Errorf("failed to list widget configs: %w", err)
	}
	defer rows.Close()

	var records []*models.WidgetRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			s.log.Error("DATABASE", fmt.Sprintf("Failed to scan widget row: %s", err.Error()))
			return nil, fmt.Errorf("failed to scan widget config: %w", err)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Row iteration error: %s", err.Error()))
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "mysql", fmt.Sprintf("Listed %d widgets", len(records)))
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.WidgetRecord, error) {
	record := &models.WidgetRecord{}
	var data []byte
	if err := row.Scan(&record.WidgetID, &data, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &record.Config); err != nil {
		return nil, fmt.Errorf("corrupt config for widget %s: %w", record.WidgetID, err)
	}
	return record, nil
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}

func (s *MySQLStore) HealthCheck() error {
	return s.db.Ping()
}
