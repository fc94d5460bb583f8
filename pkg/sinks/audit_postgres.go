package sinks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"notifyhub/internal/config"
	"notifyhub/pkg/notify"
)

// auditRecord stores only batch metadata — never message text or error
// detail intended for replay — so this sink cannot become a backdoor
// around the "no persistence of undelivered messages" non-goal.
type auditRecord struct {
	ID           uint `gorm:"primarykey"`
	Channel      string
	MessageCount int
	FailureCount int
	DispatchedAt time.Time
}

// AuditSink records that a batch was dispatched (channel, message count,
// time) to a Postgres table. It never stores message payloads, and it does
// not set FailureCount, so that column is always zero.
type AuditSink struct {
	SinkName string
	db       *gorm.DB
}

// NewAuditSink opens dsn and migrates the audit table.
func NewAuditSink(name string, cfg config.AuditSinkConfig) (*AuditSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("audit sink %s: no dsn configured", name)
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("audit sink %s: connect: %w", name, err)
	}
	if err := db.AutoMigrate(&auditRecord{}); err != nil {
		return nil, fmt.Errorf("audit sink %s: migrate: %w", name, err)
	}
	return &AuditSink{SinkName: name, db: db}, nil
}

func (s *AuditSink) Name() string { return s.SinkName }

func (s *AuditSink) ProcessBatch(ctx context.Context, batch []notify.Message) error {
	if len(batch) == 0 {
		return nil
	}
	record := auditRecord{
		Channel:      batch[0].ChannelID,
		MessageCount: len(batch),
		DispatchedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("audit sink %s: insert: %w", s.SinkName, err)
	}
	return nil
}
