package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/ociswap/registry/internal/registry"
	"github.com/ociswap/registry/internal/service"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const registryConfigRowID = 1

type registryConfigRow struct {
	ID               uint            `gorm:"primaryKey;autoIncrement:false"`
	FeeProtocolShare decimal.Decimal `gorm:"type:numeric;not null"`
	SyncPeriod       uint64          `gorm:"not null"`
	SyncSlots        uint64          `gorm:"not null"`
	UpdatedAt        time.Time
}

func (registryConfigRow) TableName() string { return "registry_config" }

type protocolFeeRow struct {
	Token     string          `gorm:"primaryKey;size:42"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (protocolFeeRow) TableName() string { return "protocol_fees" }

// PostgresStateStore keeps the registry config and fee ledger in two tables.
type PostgresStateStore struct {
	db *gorm.DB
}

func NewPostgresStateStore(db *gorm.DB) (*PostgresStateStore, error) {
	if err := db.AutoMigrate(&registryConfigRow{}, &protocolFeeRow{}); err != nil {
		return nil, err
	}
	return &PostgresStateStore{db: db}, nil
}

func (r *PostgresStateStore) Load(ctx context.Context) (*registry.State, error) {
	var cfg registryConfigRow
	err := r.db.WithContext(ctx).Take(&cfg, "id = ?", registryConfigRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []protocolFeeRow
	if err := r.db.WithContext(ctx).Order("created_at ASC, token ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	state := &registry.State{
		Config: registry.Config{
			FeeProtocolShare: cfg.FeeProtocolShare,
			SyncPeriod:       cfg.SyncPeriod,
			SyncSlots:        cfg.SyncSlots,
		},
		Balances: make([]model.Bucket, 0, len(rows)),
	}
	for _, row := range rows {
		state.Balances = append(state.Balances, model.NewBucket(common.HexToAddress(row.Token), row.Amount))
	}
	return state, nil
}

func (r *PostgresStateStore) Commit(ctx context.Context, change service.Change) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if change.Config != nil {
			row := registryConfigRow{
				ID:               registryConfigRowID,
				FeeProtocolShare: change.Config.FeeProtocolShare,
				SyncPeriod:       change.Config.SyncPeriod,
				SyncSlots:        change.Config.SyncSlots,
				UpdatedAt:        now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"fee_protocol_share", "sync_period", "sync_slots", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		for i, b := range change.Balances {
			// created_at orders the ledger; keep tokens from one commit in call order
			row := protocolFeeRow{
				Token:     b.Token.Hex(),
				Amount:    b.Amount,
				CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
				UpdatedAt: now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "token"}},
				DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
