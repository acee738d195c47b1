package service

import (
	"context"
	"strings"

	"line_supervisor/internal/models"
	"line_supervisor/internal/repository"
)

type OrderService struct {
	repo repository.OrderRepo
}

func NewOrderService(repo repository.OrderRepo) *OrderService {
	return &OrderService{repo: repo}
}

func (s *OrderService) CreateOrder(ctx context.Context, o models.ProductionOrder) (models.ProductionOrder, error) {
	o.Code = strings.TrimSpace(o.Code)
	o.Product = strings.TrimSpace(o.Product)
	o.Status = strings.ToUpper(strings.TrimSpace(o.Status))
	switch {
	case o.Code == "":
		return models.ProductionOrder{}, validationError("order code is required")
	case o.Product == "":
		return models.ProductionOrder{}, validationError("product is required")
	case o.Target <= 0:
		return models.ProductionOrder{}, validationError("target must be a positive integer")
	case o.Status != "" && !repository.ValidOrderStatus(o.Status):
		return models.ProductionOrder{}, validationError("unknown order status")
	}
	if o.Status == "" {
		o.Status = repository.OrderOpen
	}
	id, err := s.repo.Create(ctx, o)
	if err != nil {
		return models.ProductionOrder{}, AsError(err)
	}
	o.ID = id
	return o, nil
}

func (s *OrderService) GetOrder(ctx context.Context, code string) (models.ProductionOrder, error) {
	o, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return models.ProductionOrder{}, AsError(err)
	}
	if o == nil {
		return models.ProductionOrder{}, notFound("order")
	}
	return *o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, status string) ([]models.ProductionOrder, error) {
	out, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, AsError(err)
	}
	return out, nil
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, code, status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !repository.ValidOrderStatus(status) {
		return validationError("unknown order status")
	}
	if err := s.repo.UpdateStatus(ctx, code, status); err != nil {
		return AsError(err)
	}
	return nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return AsError(err)
	}
	return nil
}
