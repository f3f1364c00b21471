package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type pathRecord struct {
	ID             uint `gorm:"primarykey"`
	CreatedAt      time.Time
	Name           string         `gorm:"uniqueIndex;not null"`
	SampleInterval float64        `gorm:"not null"`
	Samples        []sampleRecord `gorm:"foreignKey:PathID;constraint:OnDelete:CASCADE"`
}

func (pathRecord) TableName() string {
	return "paths"
}

type sampleRecord struct {
	ID        uint `gorm:"primarykey"`
	PathID    uint `gorm:"index;not null"`
	Seq       int  `gorm:"not null"`
	X0, Y0    float64
	X1, Y1    float64
	X1c, Y1c  float64
	X2, Y2    float64
	Psi1      float64
	Psi2      float64
	V1        float64
	Delta     float64
	Timestamp float64
}

func (sampleRecord) TableName() string {
	return "path_samples"
}

func newSampleRecord(seq int, s Sample) sampleRecord {
	return sampleRecord{
		Seq:       seq,
		X0:        s.FrontAxle[0],
		Y0:        s.FrontAxle[1],
		X1:        s.TractorAxle[0],
		Y1:        s.TractorAxle[1],
		X1c:       s.Hitch[0],
		Y1c:       s.Hitch[1],
		X2:        s.TrailerAxle[0],
		Y2:        s.TrailerAxle[1],
		Psi1:      s.Psi1,
		Psi2:      s.Psi2,
		V1:        s.V1,
		Delta:     s.Delta,
		Timestamp: s.Timestamp,
	}
}

func (r sampleRecord) sample() Sample {
	return Sample{
		FrontAxle:   Vec2{r.X0, r.Y0},
		TractorAxle: Vec2{r.X1, r.Y1},
		Hitch:       Vec2{r.X1c, r.Y1c},
		TrailerAxle: Vec2{r.X2, r.Y2},
		Psi1:        r.Psi1,
		Psi2:        r.Psi2,
		V1:          r.V1,
		Delta:       r.Delta,
		Timestamp:   r.Timestamp,
	}
}

// NewStore opens (or creates) the sqlite database at dsn, ":memory:" keeps it in memory.
func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Silent),
		CreateBatchSize: 500,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open path database %v: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unable to access sql interface: %w", err)
	}
	// each sqlite connection to ":memory:" opens its own database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&pathRecord{}, &sampleRecord{}); err != nil {
		return nil, fmt.Errorf("unable to migrate path database: %w", err)
	}
	return &Store{db: db, log: zap.S().With("db", dsn)}, nil
}

// Store persists recorded paths by name.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// Save writes p, replacing any path stored under the same name.
func (s *Store) Save(ctx context.Context, p Path) error {
	if len(p.Samples) == 0 {
		return fmt.Errorf("unable to save path %q: %w", p.Name, ErrEmptyPath)
	}

	rec := pathRecord{Name: p.Name, SampleInterval: p.SampleInterval}
	for i, sample := range p.Samples {
		rec.Samples = append(rec.Samples, newSampleRecord(i, sample))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old pathRecord
		err := tx.Where("name = ?", p.Name).First(&old).Error
		switch {
		case err == nil:
			if err := tx.Where("path_id = ?", old.ID).Delete(&sampleRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&old).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("unable to save path %q: %w", p.Name, err)
	}
	s.log.Infof("path %q saved, %d samples", p.Name, len(p.Samples))
	return nil
}

// Load reads the path stored under name, ErrPathNotFound when missing.
func (s *Store) Load(ctx context.Context, name string) (Path, error) {
	var rec pathRecord
	err := s.db.WithContext(ctx).
		Preload("Samples", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("name = ?", name).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Path{}, fmt.Errorf("unable to load path %q: %w", name, ErrPathNotFound)
	}
	if err != nil {
		return Path{}, fmt.Errorf("unable to load path %q: %w", name, err)
	}

	p := Path{Name: rec.Name, SampleInterval: rec.SampleInterval}
	for _, r := range rec.Samples {
		p.Samples = append(p.Samples, r.sample())
	}
	return p, nil
}

// List returns the stored path names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&pathRecord{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("unable to list paths: %w", err)
	}
	return names, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unable to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
