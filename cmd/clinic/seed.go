package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agastya-health/clinic-admin/internal/adapters/database"
	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

var seedDoctors = []entities.Doctor{
	{DoctorID: 1, FullName: "Dr. Anil Mehta", Specialization: "General Medicine", Email: "anil.mehta@example.com"},
	{DoctorID: 2, FullName: "Dr. Meera Iyer", Specialization: "Dermatology", Email: "meera.iyer@example.com"},
}

var seedPatients = []entities.Patient{
	{FullName: "Asha Rao", Mobile: "9000000001"},
	{FullName: "Vikram Singh", Mobile: "9000000002"},
}

func seedCmd() *cobra.Command {
	var days int
	var interval int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample doctors, schedules and patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			ctx := commandContext(cmd)
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			location, err := cfg.Clinic.Location()
			if err != nil {
				return err
			}

			pgClient, err := openDatabase(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer pgClient.Close()

			seeder := &seeder{
				doctors:   database.NewDoctorAdapter(pgClient),
				slots:     database.NewDoctorSlotAdapter(pgClient),
				patients:  database.NewPatientAdapter(pgClient),
				sequences: database.NewSequenceAdapter(pgClient),
			}

			today := utils.CalendarDay(time.Now(), location)
			if err := seeder.run(ctx, today, days, interval); err != nil {
				return err
			}

			log.Info().Int("doctors", len(seedDoctors)).Int("days", days).Msg("Seed complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 14, "number of days of schedule to publish, starting today")
	cmd.Flags().IntVar(&interval, "interval", entities.DefaultSlotInterval, "slot length in minutes")
	return cmd
}

type seeder struct {
	doctors   repositories.DoctorRepository
	slots     repositories.DoctorSlotRepository
	patients  repositories.PatientRepository
	sequences repositories.SequenceRepository
}

func (s *seeder) run(ctx context.Context, today time.Time, days, interval int) error {
	for i := range seedDoctors {
		doctor := seedDoctors[i]
		if err := s.doctors.Upsert(ctx, &doctor); err != nil {
			return err
		}

		slot := &entities.DoctorSlot{
			DoctorID:         doctor.DoctorID,
			IsActive:         true,
			TimeSlotInterval: interval,
			Schedule:         []entities.ScheduleRange{buildScheduleRange(today, days, interval)},
		}
		if err := s.slots.Upsert(ctx, slot); err != nil {
			return err
		}
	}

	for i := range seedPatients {
		patient := seedPatients[i]
		_, err := s.patients.GetByMobile(ctx, patient.Mobile)
		if err == nil {
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return err
		}

		id, err := s.sequences.NextValue(ctx, repositories.SequencePatientID)
		if err != nil {
			return err
		}
		patient.PatientID = id
		if err := s.patients.Create(ctx, &patient); err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				continue
			}
			return err
		}
	}
	return nil
}

// buildScheduleRange publishes one contiguous 09:00-17:00 day per date. The
// evening list starts at 13:00, right after the last morning boundary.
func buildScheduleRange(from time.Time, days, interval int) entities.ScheduleRange {
	r := entities.ScheduleRange{
		FromDate: from,
		ToDate:   from.AddDate(0, 0, days-1),
	}
	morning := boundaries("09:00", "12:59", interval)
	evening := boundaries("13:00", "17:00", interval)
	for d := 0; d < days; d++ {
		r.EachSchedule = append(r.EachSchedule, entities.DaySchedule{
			Date:        from.AddDate(0, 0, d),
			MorningSlot: morning,
			EveningSlot: evening,
		})
	}
	return r
}

// boundaries lists start, start+interval, ... while not past end
func boundaries(start, end string, interval int) []string {
	out := []string{start}
	for {
		next, err := utils.AddMinutes(out[len(out)-1], interval)
		if err != nil || next > end || next <= out[len(out)-1] {
			return out
		}
		out = append(out, next)
	}
}
