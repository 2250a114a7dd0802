package notifications

import "context"

type AppointmentConfirmationInput struct {
	AppointmentID string
	Email         string
	Name          string
	Doctor        string
	Department    string
	Date          string
	Time          string
}

type Notifier interface {
	SendAppointmentConfirmation(ctx context.Context, input AppointmentConfirmationInput) error
}
