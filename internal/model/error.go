package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeDuplicateName           = "DUPLICATE_NAME"
	ErrCodeInvalidStatus           = "INVALID_STATUS"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeStorageFailure          = "STORAGE_FAILURE"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so errors.Is works
// against the sentinels below regardless of message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation              = NewDomainError(ErrCodeValidation, "Validation failed")
	ErrProductNotFound         = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound           = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInsufficientStock       = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock")
	ErrDuplicateName           = NewDomainError(ErrCodeDuplicateName, "Product name already exists")
	ErrInvalidStatus           = NewDomainError(ErrCodeInvalidStatus, "Invalid status")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidStatusTransition, "Invalid status transition")
	ErrStorageFailure          = NewDomainError(ErrCodeStorageFailure, "Storage failure")
)

// NewValidationError returns a validation error with a descriptive message.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// NewProductNotFoundError names the missing product.
func NewProductNotFoundError(productID string) *DomainError {
	return NewDomainError(ErrCodeProductNotFound, fmt.Sprintf("Product %s not found", productID))
}

// NewOrderNotFoundError names the missing order.
func NewOrderNotFoundError(orderID string) *DomainError {
	return NewDomainError(ErrCodeOrderNotFound, fmt.Sprintf("Order %s not found", orderID))
}

// NewDuplicateNameError names the colliding product name.
func NewDuplicateNameError(name string) *DomainError {
	return NewDomainError(ErrCodeDuplicateName, fmt.Sprintf("Product with name %q already exists", name))
}

// NewInvalidStatusError names the rejected status value.
func NewInvalidStatusError(status OrderStatus) *DomainError {
	return NewDomainError(ErrCodeInvalidStatus,
		fmt.Sprintf("Invalid status %q: must be pending, completed, or cancelled", status))
}

// NewInvalidTransitionError names both ends of a forbidden transition.
func NewInvalidTransitionError(from, to OrderStatus) *DomainError {
	return NewDomainError(ErrCodeInvalidStatusTransition,
		fmt.Sprintf("Cannot change order status from %s to %s", from, to))
}

// InsufficientStockError reports a line whose requested quantity exceeds
// the product's available stock.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d",
		e.ProductName, e.Available, e.Requested)
}

// Unwrap exposes the sentinel so errors.Is(err, ErrInsufficientStock) holds.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// StorageError wraps an unexpected backing-store failure. Contention marks
// lock or statement timeouts, deadlocks and serialization conflicts, where
// retrying the whole operation may succeed.
type StorageError struct {
	Op         string
	Err        error
	Contention bool
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorageFailure) match.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// NewStorageError wraps err as a storage failure for op.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsContention reports whether err is a storage failure caused by
// concurrent access.
func IsContention(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr) && storageErr.Contention
}

// ErrorCode returns the domain code carried by err, or ErrCodeInternalError.
func ErrorCode(err error) string {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return ErrCodeInsufficientStock
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	if errors.Is(err, ErrStorageFailure) {
		return ErrCodeStorageFailure
	}
	return ErrCodeInternalError
}
