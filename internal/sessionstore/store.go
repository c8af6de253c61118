// Package sessionstore persists the bearer token and the cached profile
// snapshot across process restarts. Callers treat the token as a secret;
// the store itself adds no protection beyond the backing file's.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iraxa/shopclient/internal/domain"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

type kvRecord struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (kvRecord) TableName() string { return "session_kv" }

type Store struct {
	db *gorm.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("session store path is empty")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&kvRecord{}); err != nil {
		return nil, fmt.Errorf("migrate session store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, session domain.Session) error {
	profile, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	records := []kvRecord{
		{Key: keyToken, Value: session.Token},
		{Key: keyUser, Value: string(profile)},
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the persisted session, or ok=false when none is stored.
func (s *Store) Load(ctx context.Context) (domain.Session, bool, error) {
	var records []kvRecord
	err := s.db.WithContext(ctx).
		Where("key IN ?", []string{keyToken, keyUser}).
		Find(&records).Error
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("load session: %w", err)
	}

	var session domain.Session
	for _, rec := range records {
		switch rec.Key {
		case keyToken:
			session.Token = rec.Value
		case keyUser:
			if rec.Value != "" {
				if err := json.Unmarshal([]byte(rec.Value), &session.User); err != nil {
					return domain.Session{}, false, fmt.Errorf("decode profile: %w", err)
				}
			}
		}
	}

	if session.Token == "" {
		return domain.Session{}, false, nil
	}
	return session, true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Where("key IN ?", []string{keyToken, keyUser}).
		Delete(&kvRecord{}).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
