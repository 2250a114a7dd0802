package memory

import (
	"context"
	"sync"
	"time"
)

type Delivery struct {
	AppointmentID string
	Recipient     string
	Status        string
	LastError     string
	At            time.Time
}

type NotificationDeliveriesRepo struct {
	mu    sync.Mutex
	items []Delivery
}

func NewNotificationDeliveriesRepo() *NotificationDeliveriesRepo {
	return &NotificationDeliveriesRepo{}
}

func (r *NotificationDeliveriesRepo) RecordConfirmationSent(_ context.Context, appointmentID, recipient string) error {
	r.append(Delivery{AppointmentID: appointmentID, Recipient: recipient, Status: "sent"})
	return nil
}

func (r *NotificationDeliveriesRepo) RecordConfirmationFailed(_ context.Context, appointmentID, recipient, errMsg string) error {
	r.append(Delivery{AppointmentID: appointmentID, Recipient: recipient, Status: "failed", LastError: errMsg})
	return nil
}

func (r *NotificationDeliveriesRepo) append(d Delivery) {
	d.At = time.Now().UTC()
	r.mu.Lock()
	r.items = append(r.items, d)
	r.mu.Unlock()
}

func (r *NotificationDeliveriesRepo) All() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.items...)
}
