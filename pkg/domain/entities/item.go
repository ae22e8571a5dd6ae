package entities

import (
	"fmt"
	"math"
)

// ProductID identifies a finished product built on production lines
type ProductID string

// MaterialID identifies a purchased material consumed through the BOM
type MaterialID string

// LineID identifies a production line
type LineID string

// Quantity represents an integer quantity value for discrete manufacturing units
type Quantity int64

// Unbounded is used where a limit does not apply (e.g. a product with no BOM)
const Unbounded Quantity = math.MaxInt64

// MinQuantity returns the smallest of the given quantities
func MinQuantity(first Quantity, rest ...Quantity) Quantity {
	m := first
	for _, q := range rest {
		if q < m {
			m = q
		}
	}
	return m
}

// Product represents a finished good
type Product struct {
	ProductID ProductID
	Name      string
}

// NewProduct creates a validated Product
func NewProduct(productID ProductID, name string) (*Product, error) {
	if string(productID) == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	return &Product{ProductID: productID, Name: name}, nil
}
