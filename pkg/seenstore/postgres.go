package seenstore

import (
	"log/slog"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
)

type seenRow struct {
	Alert   string `gorm:"primary_key"`
	EventID string `gorm:"primary_key"`
	FiredAt time.Time
}

func (seenRow) TableName() string {
	return "seen_events"
}

type postgresStore struct {
	alert            string
	connectionString string
}

// NewPostgresStore keeps seen ids in a shared seen_events table,
// one row per (alert, event). Connections are opened per operation,
// the engine touches the store a handful of times per pass.
func NewPostgresStore(connectionString, alert string) (Store, error) {
	s := &postgresStore{alert: alert, connectionString: connectionString}
	return s, s.init()
}

func (s *postgresStore) open() (*gorm.DB, error) {
	return gorm.Open("postgres", s.connectionString)
}

func (s *postgresStore) init() error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	db.AutoMigrate(&seenRow{})
	return db.Error
}

func (s *postgresStore) Has(id string) bool {
	db, err := s.open()
	if err != nil {
		slog.Error("seen lookup failed", "backend", "postgres", "id", id, "err", err.Error())
		return false
	}
	defer db.Close()

	var count int
	db.Model(&seenRow{}).Where("alert = ? AND event_id = ?", s.alert, id).Count(&count)
	if db.Error != nil {
		slog.Error("seen lookup failed", "backend", "postgres", "id", id, "err", db.Error.Error())
		return false
	}

	return count > 0
}

func (s *postgresStore) Add(id string) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	db.Where(seenRow{Alert: s.alert, EventID: id}).
		Attrs(seenRow{FiredAt: time.Now().UTC()}).
		FirstOrCreate(&seenRow{})

	return db.Error
}

func (s *postgresStore) Len() int {
	db, err := s.open()
	if err != nil {
		return 0
	}
	defer db.Close()

	var count int
	db.Model(&seenRow{}).Where("alert = ?", s.alert).Count(&count)
	return count
}

func (s *postgresStore) Close() error {
	return nil
}
