// Package scheduler runs the offer lifecycle automation: expiring offers
// whose window has closed, activating offers whose window has opened, and
// warning the configured admin recipient about offers about to expire.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/chronora/offer-engine/internal/domain/offer"
	"github.com/chronora/offer-engine/internal/mailer"
)

// Config holds the automation settings.
type Config struct {
	// Interval between automation runs.
	Interval time.Duration
	// WarnWindow is how far ahead of an offer's end date the expiry warning
	// fires.
	WarnWindow time.Duration
	// AlertRecipient receives expiry warnings.
	AlertRecipient string
}

// RunStats summarizes one automation pass.
type RunStats struct {
	Expired   int64 `json:"expired"`
	Activated int64 `json:"activated"`
	Alerted   int   `json:"alerted"`
}

// Scheduler drives the offer automation loop.
type Scheduler struct {
	offers offer.Repository
	mail   mailer.Mailer
	cfg    Config
	now    func() time.Time
}

// New creates a Scheduler. Interval and WarnWindow must be positive.
func New(offers offer.Repository, mail mailer.Mailer, cfg Config) *Scheduler {
	return &Scheduler{
		offers: offers,
		mail:   mail,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run executes automation passes at the configured interval until the
// context is cancelled. The first pass runs immediately. Pass failures are
// logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	lg := zctx.From(ctx)
	lg.Info("Offer automation started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("warn_window", s.cfg.WarnWindow),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			lg.Info("Offer automation stopped")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	lg := zctx.From(ctx)
	stats, err := s.RunOnce(ctx)
	if err != nil {
		lg.Error("Automation run failed", zap.Error(err))
		return
	}
	lg.Info("Automation run complete",
		zap.Int64("expired", stats.Expired),
		zap.Int64("activated", stats.Activated),
		zap.Int("alerted", stats.Alerted),
	)
}

// RunOnce executes a single automation pass. Each pass is idempotent: the
// expiry and activation steps are conditional bulk updates, and warnings are
// deduplicated per end date, so re-running changes nothing.
//
// An offer manually deactivated inside its window is reactivated by the
// activation step. The model has a single active flag with no separate admin
// override, so scheduled state always wins.
func (s *Scheduler) RunOnce(ctx context.Context) (RunStats, error) {
	var stats RunStats
	now := s.now()

	expired, err := s.offers.ExpireOverdue(ctx, now)
	if err != nil {
		return stats, errors.Wrap(err, "expire overdue offers")
	}
	stats.Expired = expired

	activated, err := s.offers.ActivateDue(ctx, now)
	if err != nil {
		return stats, errors.Wrap(err, "activate due offers")
	}
	stats.Activated = activated

	stats.Alerted = s.sendExpiryWarnings(ctx, now)
	return stats, nil
}

// sendExpiryWarnings emails the admin recipient about active offers ending
// within the warn window. One offer's failure never blocks the others, and a
// failed send is retried on the next pass because MarkAlerted only runs
// after a successful send.
func (s *Scheduler) sendExpiryWarnings(ctx context.Context, now time.Time) int {
	lg := zctx.From(ctx)

	if s.cfg.AlertRecipient == "" {
		return 0
	}

	expiring, err := s.offers.ListExpiring(ctx, now, s.cfg.WarnWindow)
	if err != nil {
		lg.Error("List expiring offers failed", zap.Error(err))
		return 0
	}

	sent := 0
	for i := range expiring {
		o := &expiring[i]
		subject, body := expiryWarning(o, now)

		if err := s.mail.Send(ctx, s.cfg.AlertRecipient, subject, body); err != nil {
			lg.Error("Expiry warning send failed",
				zap.String("offer_id", o.ID),
				zap.Error(err),
			)
			continue
		}
		if err := s.offers.MarkAlerted(ctx, o.ID, o.EndDate); err != nil {
			// The warning went out; a failed mark only risks a duplicate on
			// the next pass.
			lg.Error("Mark alerted failed",
				zap.String("offer_id", o.ID),
				zap.Error(err),
			)
		}
		sent++
	}
	return sent
}

func expiryWarning(o *offer.Offer, now time.Time) (subject, body string) {
	remaining := o.EndDate.Sub(now).Round(time.Minute)
	subject = fmt.Sprintf("Offer expiring soon: %s", o.Name)
	body = fmt.Sprintf(
		"Offer %q (%s) expires at %s (%s from now).\n\n"+
			"Redemptions so far: %d.\n"+
			"Extend the end date in the admin panel to keep it running.",
		o.Name, o.ID, o.EndDate.Format(time.RFC1123), remaining, o.UsedCount,
	)
	return subject, body
}
