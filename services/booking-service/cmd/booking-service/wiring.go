package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/duration"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
)

type core struct {
	outbox    *outbox.Repository
	schedules *storage.ScheduleRepository
	catalog   *storage.CatalogRepository
	scheduler *scheduler.Scheduler
	slots     *slots.Generator
}

func buildCore(pool *db.Pool, logger *slog.Logger, s settings) core {
	outboxRepo := outbox.NewRepository(notify.SecretPayloadKeys...)
	bookings := storage.NewBookingRepository(pool, outboxRepo)
	schedules := storage.NewScheduleRepository(pool)
	catalog := storage.NewCatalogRepository(pool)

	hoursProvider := hours.NewProvider(schedules, s.Location)
	resolver := duration.NewResolver(catalog)
	checker := conflict.NewChecker(hoursProvider, bookings)
	dispatcher := notify.NewDispatcher(policy.NewStaticProvider(s.ReminderOffsets), logger, time.Now)

	return core{
		outbox:    outboxRepo,
		schedules: schedules,
		catalog:   catalog,
		scheduler: scheduler.New(bookings, resolver, checker, hoursProvider, dispatcher, logger, scheduler.Config{
			Policy: s.Policy,
		}),
		slots: slots.NewGenerator(hoursProvider, resolver, checker, slots.WithStep(s.SlotStep)),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
