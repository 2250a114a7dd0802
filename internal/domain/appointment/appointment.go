package appointment

import (
	"time"

	"github.com/google/uuid"
)

// StatusScheduled is the only status the booking flow produces.
const StatusScheduled = "scheduled"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Appointment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	PatientName string    `json:"patientName"`
	Email       string    `json:"email"`
	Doctor      string    `json:"doctor"`
	Department  string    `json:"department,omitempty"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewAppointment is a validated booking ready to be persisted.
type NewAppointment struct {
	UserID      string
	PatientName string
	Email       string
	Doctor      string
	Department  string
	Date        string
	Time        string
	ScheduledAt time.Time
}

func NewFromRequest(req NewAppointment) Appointment {
	return Appointment{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		PatientName: req.PatientName,
		Email:       req.Email,
		Doctor:      req.Doctor,
		Department:  req.Department,
		Date:        req.Date,
		Time:        req.Time,
		ScheduledAt: req.ScheduledAt,
		Status:      StatusScheduled,
		CreatedAt:   time.Now().UTC(),
	}
}
