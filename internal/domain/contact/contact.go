package contact

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusResponded Status = "responded"
	StatusClosed    Status = "closed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusResponded, StatusClosed:
		return true
	default:
		return false
	}
}

var ErrNotFound = errors.New("contact query not found")

// structural check only: local part, '@', dotted domain, 2+ letter TLD
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type Query struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Message     string     `json:"message"`
	Status      Status     `json:"status"`
	SubmittedAt time.Time  `json:"submittedAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type CreateQueryRequest struct {
	Name    string `json:"name" form:"name" binding:"required,max=120"`
	Email   string `json:"email" form:"email" binding:"required,contact_email,max=254"`
	Message string `json:"message" form:"message" binding:"required,max=5000"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

func NewFromCreateRequest(req CreateQueryRequest) Query {
	return Query{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Email:       req.Email,
		Message:     req.Message,
		Status:      StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
}
