package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
)

// Demo catalogue for local development. Re-running the command leaves existing rows alone.
var (
	demoServices = []model.Service{
		{ID: "svc-haircut", Name: "Haircut", BaseMinutes: 45, BufferAfter: 15, PriceCents: 3500, TaxBasisPoints: 825, IsActive: true},
		{ID: "svc-color", Name: "Colour", BaseMinutes: 90, BufferBefore: 10, BufferAfter: 15, PriceCents: 9000, TaxBasisPoints: 825, IsActive: true},
	}
	demoStaff = []model.StaffMember{
		{ID: "staff-ana", Name: "Ana", IsActive: true},
		{ID: "staff-ben", Name: "Ben", IsActive: true},
	}
)

func seedDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Insert a demo catalogue with two services and two staff members on the default week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbURL, err := config.RequiredString("DATABASE_URL")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.Open(ctx, dbURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			created, err := seedDemo(ctx, storage.NewCatalogRepository(pool), storage.NewScheduleRepository(pool))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d new record(s).\n", created)
			return nil
		},
	}
}

func seedDemo(ctx context.Context, catalog *storage.CatalogRepository, schedules *storage.ScheduleRepository) (int, error) {
	created := 0
	for _, svc := range demoServices {
		err := catalog.CreateService(ctx, svc)
		if errors.Is(err, model.ErrDuplicate) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("service %s: %w", svc.ID, err)
		}
		created++
	}
	for _, st := range demoStaff {
		err := catalog.CreateStaffMember(ctx, st)
		if errors.Is(err, model.ErrDuplicate) {
			// Fill in any weekday missing from an earlier partial seed.
			if err := schedules.SeedDefaultWorkingHours(ctx, st.ID); err != nil {
				return created, err
			}
			continue
		}
		if err != nil {
			return created, fmt.Errorf("staff %s: %w", st.ID, err)
		}
		created++
	}
	return created, nil
}
