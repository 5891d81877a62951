package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

// dailySlots is the fixed daily template availability is computed from.
var dailySlots = []string{
	"09:00 AM", "10:00 AM", "11:00 AM",
	"01:00 PM", "02:00 PM", "03:00 PM", "04:00 PM",
}

const defaultCallDuration = 30 // minutes

// SchedulingService manages onboarding calls. After every appointment
// mutation it re-derives the owning project's callScheduled field so it
// always mirrors the latest still-scheduled appointment, and nil when
// there is none.
type SchedulingService struct {
	store store.Store
	nowFn func() time.Time
}

// NewScheduling constructs the scheduling manager.
func NewScheduling(st store.Store) *SchedulingService {
	return &SchedulingService{store: st, nowFn: func() time.Time { return time.Now().UTC() }}
}

// Schedule books a call and points the project's callScheduled at it.
func (s *SchedulingService) Schedule(ctx context.Context, req models.ScheduleCallRequest, actor models.Actor) (*models.Appointment, error) {
	if req.Time == "" || req.Date.IsZero() {
		return nil, fmt.Errorf("appointment date and time slot are required")
	}
	if _, err := s.store.Project(ctx, req.ProjectID); err != nil {
		return nil, err
	}
	if req.Duration == 0 {
		req.Duration = defaultCallDuration
	}
	if req.Type == "" {
		req.Type = models.CallOnboarding
	}

	appt := &models.Appointment{
		ProjectID:  req.ProjectID,
		CustomerID: req.CustomerID,
		Date:       req.Date,
		Time:       req.Time,
		Duration:   req.Duration,
		Type:       req.Type,
		Status:     models.AppointmentScheduled,
		Notes:      req.Notes,
		CreatedBy:  actor.ID,
	}
	created, err := s.store.CreateAppointment(ctx, appt)
	if err != nil {
		return nil, err
	}

	if err := s.syncCallScheduled(ctx, req.ProjectID, models.ActivityLog{
		Type:            models.ActivityCall,
		Description:     fmt.Sprintf("Call scheduled for %s at %s", req.Date.Format("2006-01-02"), req.Time),
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: created.ID,
	}); err != nil {
		return nil, err
	}
	slog.Info("Call scheduled.", "appointmentId", created.ID, "projectId", req.ProjectID, "slot", req.Time)
	return created, nil
}

// Cancel transitions a scheduled appointment to cancelled and re-derives
// the project's callScheduled field.
func (s *SchedulingService) Cancel(ctx context.Context, appointmentID string, actor models.Actor) (*models.Appointment, error) {
	updated, err := s.store.MutateAppointment(ctx, appointmentID, func(a *models.Appointment) error {
		if a.Status != models.AppointmentScheduled {
			return fmt.Errorf("appointment %s is %s; only scheduled appointments can be cancelled", appointmentID, a.Status)
		}
		a.Status = models.AppointmentCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.syncCallScheduled(ctx, updated.ProjectID, models.ActivityLog{
		Type:            models.ActivityCall,
		Description:     "Call cancelled",
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: updated.ID,
	}); err != nil {
		return nil, err
	}
	slog.Info("Call cancelled.", "appointmentId", appointmentID, "projectId", updated.ProjectID)
	return updated, nil
}

// Complete transitions a scheduled appointment to completed, attaching
// optional notes, and re-derives the project's callScheduled field.
func (s *SchedulingService) Complete(ctx context.Context, appointmentID, notes string, actor models.Actor) (*models.Appointment, error) {
	updated, err := s.store.MutateAppointment(ctx, appointmentID, func(a *models.Appointment) error {
		if a.Status != models.AppointmentScheduled {
			return fmt.Errorf("appointment %s is %s; only scheduled appointments can be completed", appointmentID, a.Status)
		}
		a.Status = models.AppointmentCompleted
		if notes != "" {
			a.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.syncCallScheduled(ctx, updated.ProjectID, models.ActivityLog{
		Type:            models.ActivityCall,
		Description:     "Call completed",
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: updated.ID,
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// AvailableSlots subtracts the day's booked times from the fixed slot
// template. Double-booking is prevented here at query time, not enforced
// at write time.
func (s *SchedulingService) AvailableSlots(ctx context.Context, date time.Time) ([]string, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	booked, err := s.store.Appointments(ctx, store.AppointmentQuery{
		Status: models.AppointmentScheduled,
		From:   dayStart,
		To:     dayEnd,
	}).All()
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for %s: %w", dayStart.Format("2006-01-02"), err)
	}

	taken := make(map[string]bool, len(booked))
	for _, a := range booked {
		taken[a.Time] = true
	}
	var free []string
	for _, slot := range dailySlots {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}

// Upcoming lists scheduled appointments from now on, soonest first.
func (s *SchedulingService) Upcoming(ctx context.Context) ([]models.Appointment, error) {
	return s.store.Appointments(ctx, store.AppointmentQuery{
		Status: models.AppointmentScheduled,
		From:   s.nowFn(),
	}).All()
}

// ByProject lists a project's appointments, newest first.
func (s *SchedulingService) ByProject(ctx context.Context, projectID string) ([]models.Appointment, error) {
	return s.store.Appointments(ctx, store.AppointmentQuery{ProjectID: projectID, DateDesc: true}).All()
}

// ByCustomer lists a customer's appointments, newest first.
func (s *SchedulingService) ByCustomer(ctx context.Context, customerID string) ([]models.Appointment, error) {
	return s.store.Appointments(ctx, store.AppointmentQuery{CustomerID: customerID, DateDesc: true}).All()
}

// syncCallScheduled recomputes the project's callScheduled field from the
// ground-truth appointment set: it mirrors the latest appointment still in
// scheduled status, or clears when none remain. Runs with the audit entry
// in one atomic project mutation.
func (s *SchedulingService) syncCallScheduled(ctx context.Context, projectID string, entry models.ActivityLog) error {
	scheduled, err := s.store.Appointments(ctx, store.AppointmentQuery{
		ProjectID: projectID,
		Status:    models.AppointmentScheduled,
		DateDesc:  true,
	}).All()
	if err != nil {
		return fmt.Errorf("failed to list scheduled appointments: %w", err)
	}

	var callScheduled *time.Time
	if len(scheduled) > 0 {
		t := scheduled[0].Date
		callScheduled = &t
	}

	_, err = s.store.MutateProject(ctx, projectID, func(p *models.Project) error {
		p.CallScheduled = callScheduled
		appendActivity(p, entry, s.nowFn())
		return nil
	})
	return err
}
