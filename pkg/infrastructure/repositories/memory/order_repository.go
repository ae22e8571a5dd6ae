package memory

import (
	"fmt"
	"sort"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// OrderRepository provides in-memory order storage
type OrderRepository struct {
	uow *unitOfWork
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// GetOrder returns a copy of the order
func (r *OrderRepository) GetOrder(orderID string) (*entities.Order, error) {
	order, ok := r.uow.t.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, repositories.ErrNotFound)
	}
	return order.Clone(), nil
}

// GetAllOrders returns copies of every order sorted by id
func (r *OrderRepository) GetAllOrders() ([]*entities.Order, error) {
	orders := make([]*entities.Order, 0, len(r.uow.t.orders))
	for _, o := range r.uow.t.orders {
		orders = append(orders, o.Clone())
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })
	return orders, nil
}

// SaveOrder inserts or replaces an order
func (r *OrderRepository) SaveOrder(order *entities.Order) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	r.uow.t.orders[order.OrderID] = order.Clone()
	return nil
}

// LineRepository provides in-memory production line storage
type LineRepository struct {
	uow *unitOfWork
}

var _ repositories.LineRepository = (*LineRepository)(nil)

// GetAllLines returns copies of every line sorted by id
func (r *LineRepository) GetAllLines() ([]*entities.Line, error) {
	lines := make([]*entities.Line, 0, len(r.uow.t.lines))
	for _, ln := range r.uow.t.lines {
		lines = append(lines, cloneOf(ln))
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineID < lines[j].LineID })
	return lines, nil
}

// LoadLines inserts or replaces lines
func (r *LineRepository) LoadLines(lines []*entities.Line) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	for _, ln := range lines {
		r.uow.t.lines[ln.LineID] = cloneOf(ln)
	}
	return nil
}
