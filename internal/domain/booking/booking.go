package booking

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("booking not found")

const (
	StatusPending   = "pending"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusDone, StatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// Contact details stored again on the booking for quick history access.
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`

	Bedrooms  int `json:"bedrooms"`
	Bathrooms int `json:"bathrooms"`

	ServiceType string `json:"serviceType"`
	Frequency   string `json:"frequency"`

	Price float64 `json:"price"`

	Status        string     `json:"status"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

type CreateBookingRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,phone"`

	Bedrooms  int `json:"bedrooms" binding:"required,min=1,max=4"`
	Bathrooms int `json:"bathrooms" binding:"required,min=1,max=4"`

	ServiceType string `json:"serviceType" binding:"required,oneof=standard deep post_construction"`
	Frequency   string `json:"frequency" binding:"required,oneof=one_time weekly two_weeks four_weeks"`

	Price float64 `json:"price" binding:"required,gt=0"`

	ScheduledDate *time.Time `json:"scheduledDate"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
