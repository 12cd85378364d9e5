// Package gormkv backs the chat store with a relational table through
// gorm. SQLite serves the local single-user case; MySQL is available when
// the store should be shared between machines.
package gormkv

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`
}

func (Entry) TableName() string { return "kv_entries" }

type KV struct {
	db *gorm.DB
}

// Open connects to the configured driver and migrates the entry table.
// Supported drivers: "sqlite" (dsn is a file path or ":memory:") and
// "mysql" (standard DSN).
func Open(driver, dsn string) (*KV, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("gormkv: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

func NewWithDB(db *gorm.DB) (*KV, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &KV{db: db}, nil
}

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := k.db.WithContext(ctx).First(&e, "`key` = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	return k.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&Entry{Key: key, Value: value}).Error
}

func (k *KV) Delete(ctx context.Context, key string) error {
	return k.db.WithContext(ctx).Delete(&Entry{}, "`key` = ?", key).Error
}
