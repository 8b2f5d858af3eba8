// Package repository provides a small generic gorm store used by services
// for common single-model access patterns.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository exposes typed CRUD helpers over a single gorm model.
type Repository[T any] interface {
	Find(ctx context.Context, conds ...any) ([]T, error)
	FindOne(ctx context.Context, conds ...any) (*T, error)
	Count(ctx context.Context, conds ...any) (int64, error)
	Create(ctx context.Context, record *T) error
	Save(ctx context.Context, record *T) error
	Delete(ctx context.Context, conds ...any) error
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore builds a Repository bound to the given connection.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) Find(ctx context.Context, conds ...any) ([]T, error) {
	var records []T
	if err := s.db.WithContext(ctx).Find(&records, conds...).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store[T]) FindOne(ctx context.Context, conds ...any) (*T, error) {
	var record T
	err := s.db.WithContext(ctx).First(&record, conds...).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) Count(ctx context.Context, conds ...any) (int64, error) {
	var model T
	var total int64
	query := s.db.WithContext(ctx).Model(&model)
	if len(conds) > 0 {
		query = query.Where(conds[0], conds[1:]...)
	}
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *store[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *store[T]) Save(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Save(record).Error
}

func (s *store[T]) Delete(ctx context.Context, conds ...any) error {
	var model T
	return s.db.WithContext(ctx).Delete(&model, conds...).Error
}
