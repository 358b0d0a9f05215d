package search

import (
	"context"
	"sync"
	"sync/atomic"

	"campus_market/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service keeps an Index in sync with the approved catalog. Writers call
// Invalidate; the next Search reloads the catalog once.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	index *Index

	generation atomic.Uint64
	mu         sync.Mutex
	built      uint64
	loaded     bool
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log, index: NewIndex()}
}

// Invalidate marks the candidate list as changed.
func (s *Service) Invalidate() {
	s.generation.Add(1)
}

func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s.index.Search(query), nil
}

func (s *Service) refresh(ctx context.Context) error {
	gen := s.generation.Load()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded && s.built == gen {
		return nil
	}

	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Seller", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, username, full_name, image_url")
		}).
		Where("status = ?", models.ProductApproved).
		Order("created_at desc").
		Find(&products).Error
	if err != nil {
		return err
	}
	s.index.Rebuild(products)
	s.built = gen
	s.loaded = true
	s.log.Debug("search index rebuilt", zap.Int("listings", len(products)), zap.Uint64("generation", gen))
	return nil
}
