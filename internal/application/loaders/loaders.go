package loaders

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
)

const batchWait = 2 * time.Millisecond

// Loaders batches the doctor and patient lookups of a single request.
// A key with no stored record resolves to nil without error.
type Loaders struct {
	DoctorLoader  *dataloader.Loader[int64, *entities.Doctor]
	PatientLoader *dataloader.Loader[int64, *entities.Patient]
}

// NewLoaders creates a new instance of Loaders. Results are not cached across calls.
func NewLoaders(doctorRepo repositories.DoctorRepository, patientRepo repositories.PatientRepository) *Loaders {
	return &Loaders{
		DoctorLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []int64) []*dataloader.Result[*entities.Doctor] {
			results := make([]*dataloader.Result[*entities.Doctor], len(keys))
			doctors, err := doctorRepo.GetByIDs(ctx, keys)

			doctorMap := make(map[int64]*entities.Doctor, len(doctors))
			for _, d := range doctors {
				doctorMap[d.DoctorID] = d
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Doctor]{Error: err}
				} else {
					results[i] = &dataloader.Result[*entities.Doctor]{Data: doctorMap[key]}
				}
			}
			return results
		},
			dataloader.WithCache[int64, *entities.Doctor](&dataloader.NoCache[int64, *entities.Doctor]{}),
			dataloader.WithWait[int64, *entities.Doctor](batchWait),
		),
		PatientLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []int64) []*dataloader.Result[*entities.Patient] {
			results := make([]*dataloader.Result[*entities.Patient], len(keys))
			patients, err := patientRepo.GetByIDs(ctx, keys)

			patientMap := make(map[int64]*entities.Patient, len(patients))
			for _, p := range patients {
				patientMap[p.PatientID] = p
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Patient]{Error: err}
				} else {
					results[i] = &dataloader.Result[*entities.Patient]{Data: patientMap[key]}
				}
			}
			return results
		},
			dataloader.WithCache[int64, *entities.Patient](&dataloader.NoCache[int64, *entities.Patient]{}),
			dataloader.WithWait[int64, *entities.Patient](batchWait),
		),
	}
}

// Doctors resolves the given ids in one batch, keyed by doctorID
func (l *Loaders) Doctors(ctx context.Context, ids []int64) (map[int64]*entities.Doctor, error) {
	values, errs := l.DoctorLoader.LoadMany(ctx, ids)()
	out := make(map[int64]*entities.Doctor, len(ids))
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		if values[i] != nil {
			out[id] = values[i]
		}
	}
	return out, nil
}

// Patients resolves the given ids in one batch, keyed by patientID
func (l *Loaders) Patients(ctx context.Context, ids []int64) (map[int64]*entities.Patient, error) {
	values, errs := l.PatientLoader.LoadMany(ctx, ids)()
	out := make(map[int64]*entities.Patient, len(ids))
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		if values[i] != nil {
			out[id] = values[i]
		}
	}
	return out, nil
}
