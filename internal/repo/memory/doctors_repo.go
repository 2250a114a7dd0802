package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/carebook/internal/domain/doctor"
)

type DoctorsRepo struct {
	mu    sync.RWMutex
	items []doctor.Doctor
}

func NewDoctorsRepo(seed ...doctor.Doctor) *DoctorsRepo {
	items := append([]doctor.Doctor(nil), seed...)
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return &DoctorsRepo{items: items}
}

// DefaultDoctors matches the rows seeded by the initial migration.
func DefaultDoctors() []doctor.Doctor {
	return []doctor.Doctor{
		{ID: "6f1c2a1e-3b0e-4c55-9d0a-1b2c3d4e5f01", Name: "Dr. Naveen Reddy", Specialization: "Cardiologist", Department: "Cardiology", ExperienceYears: 12},
		{ID: "6f1c2a1e-3b0e-4c55-9d0a-1b2c3d4e5f02", Name: "Dr. Manoj Patel", Specialization: "Neurologist", Department: "Neurology", ExperienceYears: 9},
		{ID: "6f1c2a1e-3b0e-4c55-9d0a-1b2c3d4e5f03", Name: "Dr. Shalini Desai", Specialization: "Orthopedic Surgeon", Department: "Orthopedics", ExperienceYears: 15},
	}
}

func (r *DoctorsRepo) List(_ context.Context) ([]doctor.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doctor.Doctor, len(r.items))
	copy(out, r.items)
	return out, nil
}
