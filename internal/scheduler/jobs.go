/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ministry_platform/internal/models"
	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

// Job specs, five-field cron in the jobs' location.
const (
	ExpireCheckoutsSpec = "*/15 * * * *"
	PrayerDigestSpec    = "0 7 * * *"
)

// StaleCheckoutAge is how long an initiated checkout may stay open.
const StaleCheckoutAge = 24 * time.Hour

// DigestSender delivers the daily prayer digest for one brand.
type DigestSender interface {
	SendPrayerDigest(ctx context.Context, brand models.Brand, prayers []models.PrayerRequest) error
}

// Jobs runs the periodic maintenance tasks.
type Jobs struct {
	db     *gorm.DB
	digest DigestSender
	loc    *time.Location
	parser cron.Parser
	now    func() time.Time
	logger zerolog.Logger
}

// NewJobs creates the job runner. A nil digest sender skips the digest job.
func NewJobs(db *gorm.DB, digest DigestSender, loc *time.Location, logger zerolog.Logger) *Jobs {
	if loc == nil {
		loc = time.Local
	}
	return &Jobs{
		db:     db,
		digest: digest,
		loc:    loc,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:    time.Now,
		logger: logger.With().Str("component", "jobs").Logger(),
	}
}

// Run schedules the jobs and blocks until ctx is done. Running jobs finish
// before Run returns.
func (j *Jobs) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(j.parser), cron.WithLocation(j.loc))

	if _, err := c.AddFunc(ExpireCheckoutsSpec, j.wrap(ctx, "expire_checkouts", func(ctx context.Context) error {
		_, err := j.ExpireStaleCheckouts(ctx)
		return err
	})); err != nil {
		return fmt.Errorf("add expire job: %w", err)
	}
	if j.digest != nil {
		if _, err := c.AddFunc(PrayerDigestSpec, j.wrap(ctx, "prayer_digest", j.SendPrayerDigests)); err != nil {
			return fmt.Errorf("add digest job: %w", err)
		}
	}

	c.Start()
	j.logger.Info().Str("tz", j.loc.String()).Int("jobs", len(c.Entries())).Msg("jobs started")
	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info().Msg("jobs stopped")
	return nil
}

func (j *Jobs) wrap(ctx context.Context, name string, fn func(context.Context) error) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		err := fn(ctx)
		result := "ok"
		if err != nil {
			result = "error"
			j.logger.Error().Err(err).Str("job", name).Msg("job failed")
		} else {
			j.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
		}
		telemetry.CronJobRunsTotal.WithLabelValues(name, result).Inc()
	}
}

// ExpireStaleCheckouts marks initiated checkouts older than StaleCheckoutAge
// as expired and failed.
func (j *Jobs) ExpireStaleCheckouts(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-StaleCheckoutAge)
	res := j.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("status = ? AND created_at < ?", models.TransactionInitiated, cutoff).
		Updates(map[string]any{
			"payment_status": models.PaymentStatusExpired,
			"status":         models.TransactionFailed,
			"updated_at":     j.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("expire checkouts: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		telemetry.PaymentStatusTotal.WithLabelValues(models.PaymentStatusExpired).Add(float64(res.RowsAffected))
		j.logger.Info().Int64("expired", res.RowsAffected).Msg("expired stale checkouts")
	}
	return res.RowsAffected, nil
}

// SendPrayerDigests emails each brand its prayer requests from the last day.
// Brands without new requests are skipped.
func (j *Jobs) SendPrayerDigests(ctx context.Context) error {
	if j.digest == nil {
		return nil
	}
	since := j.now().Add(-24 * time.Hour)

	var brands []models.Brand
	if err := j.db.WithContext(ctx).Order("name ASC").Find(&brands).Error; err != nil {
		return fmt.Errorf("load brands: %w", err)
	}

	var failed int
	for _, brand := range brands {
		var prayers []models.PrayerRequest
		if err := j.db.WithContext(ctx).
			Where("brand_id = ? AND created_at >= ?", brand.ID, since).
			Order("created_at ASC").
			Find(&prayers).Error; err != nil {
			return fmt.Errorf("load prayers for %s: %w", brand.ID, err)
		}
		if len(prayers) == 0 {
			continue
		}
		if err := j.digest.SendPrayerDigest(ctx, brand, prayers); err != nil {
			failed++
			j.logger.Warn().Err(err).Str("brand_id", brand.ID).Msg("prayer digest failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("prayer digest failed for %d brands", failed)
	}
	return nil
}
