package repository

import (
	"context"
	"time"

	"github.com/ociswap/registry/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type auditLogRow struct {
	ID           string `gorm:"primaryKey"`
	Caller       string `gorm:"index:idx_audit_logs_caller,priority:1"`
	Operation    string
	Method       string
	Path         string
	IP           string
	UserAgent    string
	RequestBody  string
	StatusCode   int
	ResponseBody string
	LatencyMs    int64
	Context      map[string]interface{} `gorm:"serializer:json;type:text"`
	CreatedAt    time.Time              `gorm:"index:idx_audit_logs_caller,priority:2;index"`
}

func (auditLogRow) TableName() string { return "audit_logs" }

type PostgresAuditRepo struct {
	db *gorm.DB
}

func NewPostgresAuditRepo(db *gorm.DB) (*PostgresAuditRepo, error) {
	if err := db.AutoMigrate(&auditLogRow{}); err != nil {
		return nil, err
	}
	return &PostgresAuditRepo{db: db}, nil
}

func (r *PostgresAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	row := auditLogRow{
		ID:           entry.ID,
		Caller:       entry.Caller,
		Operation:    entry.Operation,
		Method:       entry.Method,
		Path:         entry.Path,
		IP:           entry.IP,
		UserAgent:    entry.UserAgent,
		RequestBody:  entry.RequestBody,
		StatusCode:   entry.StatusCode,
		ResponseBody: entry.ResponseBody,
		LatencyMs:    entry.LatencyMs,
		Context:      entry.Context,
		CreatedAt:    entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (r *PostgresAuditRepo) List(ctx context.Context, caller string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := r.db.WithContext(ctx).Model(&auditLogRow{})
	if caller != "" {
		query = query.Where("caller = ?", caller)
	}
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var rows []auditLogRow
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]*model.AuditLog, 0, len(rows))
	for _, row := range rows {
		entry := &model.AuditLog{
			ID:           row.ID,
			Caller:       row.Caller,
			Operation:    row.Operation,
			Method:       row.Method,
			Path:         row.Path,
			IP:           row.IP,
			UserAgent:    row.UserAgent,
			RequestBody:  row.RequestBody,
			StatusCode:   row.StatusCode,
			ResponseBody: row.ResponseBody,
			LatencyMs:    row.LatencyMs,
			Context:      row.Context,
			CreatedAt:    row.CreatedAt,
		}
		if entry.Context == nil {
			entry.Context = map[string]interface{}{}
		}
		records = append(records, entry)
	}
	return records, nil
}

func (r *PostgresAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&auditLogRow{}).Error
}
