package repository

import (
	"context"
	"fmt"

	"github.com/example/cleanshop/pkg/config"
	"github.com/example/cleanshop/pkg/models"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecordStore implements RecordStore over any gorm dialect. Map inserts
// bypass gorm's autoCreateTime, so Insert stamps created_at itself.
type GormRecordStore struct {
	db *gorm.DB
}

func OpenGormRecordStore(cfg *config.RecordStoreConfig) (*GormRecordStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported record store driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	return NewGormRecordStore(db), nil
}

func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db}
}

// Migrate creates or updates the storefront tables.
func (s *GormRecordStore) Migrate() error {
	if err := s.db.AutoMigrate(&models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (s *GormRecordStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormRecordStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormRecordStore) Insert(ctx context.Context, table string, records ...Record) ([]Record, error) {
	if len(records) == 0 {
		return nil, nil
	}

	now := s.db.NowFunc()
	rows := make([]map[string]interface{}, len(records))
	out := make([]Record, len(records))
	for i, r := range records {
		c := r.clone()
		if c.ID() == "" {
			c["id"] = uuid.NewString()
		}
		if _, ok := c["created_at"]; !ok {
			c["created_at"] = now
		}
		rows[i] = c
		out[i] = c
	}

	var err error
	if len(rows) == 1 {
		err = s.db.WithContext(ctx).Table(table).Create(rows[0]).Error
	} else {
		err = s.db.WithContext(ctx).Table(table).Create(&rows).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	// gorm writes auto-increment ids back under a synthetic key
	for _, r := range out {
		delete(r, clause.PrimaryKey)
	}
	return out, nil
}

func (s *GormRecordStore) Select(ctx context.Context, table string, filter Filter, sort *Sort) ([]Record, error) {
	query := s.db.WithContext(ctx).Table(table)
	if len(filter) > 0 {
		query = query.Where(map[string]interface{}(filter))
	}
	if sort != nil {
		direction := "ASC"
		if sort.Desc {
			direction = "DESC"
		}
		query = query.Order(fmt.Sprintf("%s %s", sort.Column, direction))
	}

	var rows []map[string]interface{}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}

	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record(r)
	}
	return out, nil
}

func (s *GormRecordStore) Update(ctx context.Context, table string, patch Record, filter Filter) error {
	if len(filter) == 0 {
		return ErrMissingFilter
	}
	err := s.db.WithContext(ctx).Table(table).
		Where(map[string]interface{}(filter)).
		Updates(map[string]interface{}(patch)).Error
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

func (s *GormRecordStore) Delete(ctx context.Context, table string, filter Filter) error {
	if len(filter) == 0 {
		return ErrMissingFilter
	}
	err := s.db.WithContext(ctx).Table(table).
		Where(map[string]interface{}(filter)).
		Delete(map[string]interface{}{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}
