package postgres

import (
	"context"

	"github.com/geocoder89/carebook/internal/domain/doctor"
	"github.com/geocoder89/carebook/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DoctorsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewDoctorsRepo(pool *pgxpool.Pool, prom *observability.Prom) *DoctorsRepo {
	return &DoctorsRepo{pool: pool, prom: prom}
}

func (repo *DoctorsRepo) List(ctx context.Context) (items []doctor.Doctor, err error) {
	var rows pgx.Rows

	query := func() error {
		rows, err = repo.pool.Query(ctx, `
		SELECT id, name, specialization, department, experience_years, phone, email
		FROM doctors
		ORDER BY name ASC`)
		return err
	}

	if repo.prom != nil {
		err = repo.prom.ObserveDB("doctors.list", query)
	} else {
		err = query()
	}
	if err != nil {
		return
	}
	defer rows.Close()

	items = make([]doctor.Doctor, 0)
	for rows.Next() {
		var d doctor.Doctor
		if e := rows.Scan(&d.ID, &d.Name, &d.Specialization, &d.Department, &d.ExperienceYears, &d.Phone, &d.Email); e != nil {
			err = e
			return
		}
		items = append(items, d)
	}
	err = rows.Err()
	return
}
