// Package service реализует бизнес-логику сервиса заказов.
package service

import (
	"context"

	"github.com/mmeshcher/rideorders-system/internal/model"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateOrder(ctx context.Context, userID string, o *model.NewOrder) (*model.Order, error)
	ListOrders(ctx context.Context, userID string, q *model.ListQuery) ([]model.Order, int64, error)
	GetOrderByID(ctx context.Context, userID string, orderID int64) (*model.Order, error)
}

// Service содержит бизнес-логику сервиса заказов.
type Service struct {
	repo Repository
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CreateOrder создаёт заказ для указанного пользователя.
// Статус нового заказа всегда pending, владелец не меняется после создания.
func (s *Service) CreateOrder(ctx context.Context, userID string, o *model.NewOrder) (*model.Order, error) {
	return s.repo.CreateOrder(ctx, userID, o)
}

// ListOrders возвращает страницу заказов пользователя и общее число записей под фильтрами.
func (s *Service) ListOrders(ctx context.Context, userID string, q *model.ListQuery) ([]model.Order, int64, error) {
	return s.repo.ListOrders(ctx, userID, q)
}

// GetOrderByID возвращает заказ пользователя по идентификатору.
func (s *Service) GetOrderByID(ctx context.Context, userID string, orderID int64) (*model.Order, error) {
	return s.repo.GetOrderByID(ctx, userID, orderID)
}
