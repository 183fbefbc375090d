package main

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
)

type settings struct {
	Service     string
	HTTPPort    string
	GRPCPort    string
	DatabaseURL string
	DBMaxConns  int
	Brokers     string
	RedisAddr   string
	JWTSecret   string
	CORSOrigins []string

	Location        *time.Location
	SlotStep        time.Duration
	Policy          scheduler.Policy
	Guest           policy.Guest
	NoShowGrace     time.Duration
	NoShowInterval  time.Duration
	ReminderOffsets []time.Duration
	PublicRateLimit int
}

func loadSettings() (settings, error) {
	var (
		s   settings
		err error
	)
	s.Service = config.String("SERVICE_NAME", "booking-service")
	if s.HTTPPort, err = config.Port("PORT", "8083"); err != nil {
		return s, err
	}
	if s.GRPCPort, err = config.Port("GRPC_PORT", "9083"); err != nil {
		return s, err
	}
	if s.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return s, err
	}
	if s.DBMaxConns, err = config.Int("DATABASE_MAX_CONNS", 10); err != nil {
		return s, err
	}
	s.Brokers = config.String("KAFKA_BROKERS", "")
	s.RedisAddr = config.String("REDIS_ADDR", "")
	s.JWTSecret = config.String("JWT_SECRET", "")
	s.CORSOrigins = splitList(config.String("CORS_ALLOWED_ORIGINS", ""))

	if s.Location, err = config.Location("SALON_TIMEZONE", "UTC"); err != nil {
		return s, err
	}
	if s.SlotStep, err = config.Duration("SLOT_STEP_MINUTES", 30, time.Minute); err != nil {
		return s, err
	}
	if s.Policy.MinNotice, err = config.Duration("BOOKING_MIN_NOTICE_MINUTES", 60, time.Minute); err != nil {
		return s, err
	}
	if s.Policy.MaxAdvance, err = config.Duration("BOOKING_MAX_ADVANCE_DAYS", 60, 24*time.Hour); err != nil {
		return s, err
	}
	if s.Guest.CancellationWindow, err = config.Duration("CANCELLATION_WINDOW_HOURS", 24, time.Hour); err != nil {
		return s, err
	}
	if s.Guest.AllowCancellation, err = config.Bool("ALLOW_ONLINE_CANCELLATION", true); err != nil {
		return s, err
	}
	if s.Guest.AllowRescheduling, err = config.Bool("ALLOW_ONLINE_RESCHEDULING", true); err != nil {
		return s, err
	}
	if s.NoShowGrace, err = config.Duration("NO_SHOW_GRACE_MINUTES", 15, time.Minute); err != nil {
		return s, err
	}
	if s.NoShowInterval, err = config.Duration("NO_SHOW_SWEEP_SECONDS", 60, time.Second); err != nil {
		return s, err
	}
	mins, err := config.IntList("REMINDER_OFFSETS_MINUTES", "1440,120")
	if err != nil {
		return s, err
	}
	s.ReminderOffsets = policy.OffsetsFromMinutes(mins)
	if s.PublicRateLimit, err = config.Int("PUBLIC_RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return s, err
	}
	return s, nil
}
