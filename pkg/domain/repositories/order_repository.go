package repositories

import "github.com/vsinha/plantsim/pkg/domain/entities"

// OrderRepository provides access to manufacturing orders
type OrderRepository interface {
	// GetOrder returns ErrNotFound when the order does not exist
	GetOrder(orderID string) (*entities.Order, error)
	// GetAllOrders returns every order sorted by order id
	GetAllOrders() ([]*entities.Order, error)
	SaveOrder(order *entities.Order) error
}

// LineRepository provides access to production lines
type LineRepository interface {
	// GetAllLines returns every line sorted by line id
	GetAllLines() ([]*entities.Line, error)
	LoadLines(lines []*entities.Line) error
}
