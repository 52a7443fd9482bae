package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/AnshRaj112/visitor-backend/internal/logging"
	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	storeTimeout   = 10 * time.Second
	publishTimeout = 3 * time.Second
	// notifyTimeout bounds a whole fan-out; each delivery has its own shorter timeout
	notifyTimeout = 60 * time.Second
)

// NewVisitor is the registration form submitted at the gate.
type NewVisitor struct {
	Name         string `json:"name" validate:"required,max=200"`
	Phone        string `json:"phone" validate:"required,max=50"`
	Company      string `json:"company" validate:"max=200"`
	PersonToMeet string `json:"personToMeet" validate:"required,max=200"`
	Purpose      string `json:"purpose" validate:"required,max=1000"`
	PhotoURL     string `json:"photoReference" validate:"required"`
}

func (nv *NewVisitor) trim() {
	nv.Name = strings.TrimSpace(nv.Name)
	nv.Phone = strings.TrimSpace(nv.Phone)
	nv.Company = strings.TrimSpace(nv.Company)
	nv.PersonToMeet = strings.TrimSpace(nv.PersonToMeet)
	nv.Purpose = strings.TrimSpace(nv.Purpose)
	nv.PhotoURL = strings.TrimSpace(nv.PhotoURL)
}

// NewVisitorNotifier alerts admins about a new pending visitor.
type NewVisitorNotifier interface {
	NotifyNewVisitor(ctx context.Context, visitorName string) DispatchReport
}

// EventPublisher broadcasts visitor events to live screens.
type EventPublisher interface {
	Publish(ctx context.Context, event models.VisitorEvent) error
}

type LifecycleDeps struct {
	Visitors  store.VisitorStore
	Events    store.EventStore
	Notifier  NewVisitorNotifier
	Publisher EventPublisher // optional
	Clock     Clock
	Location  *time.Location
}

// LifecycleEngine owns every visitor state transition.
type LifecycleEngine struct {
	visitors  store.VisitorStore
	events    store.EventStore
	notifier  NewVisitorNotifier
	publisher EventPublisher
	clock     Clock
	loc       *time.Location
	validate  *validator.Validate

	notifications sync.WaitGroup
}

func NewLifecycleEngine(d LifecycleDeps) *LifecycleEngine {
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &LifecycleEngine{
		visitors:  d.Visitors,
		events:    d.Events,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		clock:     d.Clock,
		loc:       d.Location,
		validate:  newValidator(),
	}
}

// Location is the wall-clock zone used for "today" and date-only bounds.
func (e *LifecycleEngine) Location() *time.Location {
	return e.loc
}

// Wait blocks until in-flight new-visitor notifications have finished.
func (e *LifecycleEngine) Wait() {
	e.notifications.Wait()
}

// CheckNewVisitor validates a form before its photo is uploaded.
func (e *LifecycleEngine) CheckNewVisitor(nv NewVisitor) error {
	nv.trim()
	if err := e.validate.StructExcept(nv, "PhotoURL"); err != nil {
		return validationError(err)
	}
	return nil
}

func (e *LifecycleEngine) CreateVisitor(ctx context.Context, nv NewVisitor) (*models.Visitor, error) {
	nv.trim()
	if err := e.validate.Struct(nv); err != nil {
		return nil, validationError(err)
	}
	if nv.Company == "" {
		nv.Company = models.CompanyNotProvided
	}

	now := e.clock.Now()
	v := &models.Visitor{
		ID:           primitive.NewObjectID(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         nv.Name,
		Phone:        nv.Phone,
		Company:      nv.Company,
		PersonToMeet: nv.PersonToMeet,
		Purpose:      nv.Purpose,
		PhotoURL:     nv.PhotoURL,
		Status:       models.StatusPending,
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := e.visitors.Insert(sctx, v); err != nil {
		return nil, storeError("failed to save visitor", err)
	}

	e.record(ctx, models.VisitorEvent{
		VisitorID: v.ID,
		Type:      models.EventCreated,
		To:        models.StatusPending,
		At:        now,
	}, v)

	e.notifyNewVisitor(ctx, v.Name)
	return v, nil
}

// notifyNewVisitor runs the fan-out detached from the request so its outcome
// never reaches the caller.
func (e *LifecycleEngine) notifyNewVisitor(ctx context.Context, name string) {
	if e.notifier == nil {
		return
	}
	logger := logging.FromContext(ctx)
	e.notifications.Add(1)
	go func() {
		defer e.notifications.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		report := e.notifier.NotifyNewVisitor(nctx, name)
		logger.Info("new visitor notification dispatched",
			"succeeded", report.Succeeded,
			"failed", report.Failed,
		)
	}()
}

func (e *LifecycleEngine) GetByID(ctx context.Context, id string) (*models.Visitor, error) {
	oid, err := parseVisitorID(id)
	if err != nil {
		return nil, err
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	v, err := e.visitors.FindByID(sctx, oid)
	if err != nil {
		return nil, storeError("failed to fetch visitor", err)
	}
	return v, nil
}

func (e *LifecycleEngine) ListAll(ctx context.Context, newestFirst bool) ([]models.Visitor, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	vs, err := e.visitors.FindAll(sctx, newestFirst)
	if err != nil {
		return nil, storeError("failed to fetch visitors", err)
	}
	return vs, nil
}

// ListByDateRange returns visitors created within [start, end], oldest first.
func (e *LifecycleEngine) ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Visitor, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperrors.Validation("start and end dates are required")
	}
	if start.After(end) {
		return nil, apperrors.Validation("start date must not be after end date")
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	vs, err := e.visitors.FindCreatedBetween(sctx, start, end)
	if err != nil {
		return nil, storeError("failed to fetch visitors", err)
	}
	return vs, nil
}

// ListApprovedToday is the guard view: approved visitors registered today, newest first.
func (e *LifecycleEngine) ListApprovedToday(ctx context.Context) ([]models.Visitor, error) {
	start, end := dayBounds(e.clock.Now(), e.loc)
	vs, err := e.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]models.Visitor, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		if vs[i].Status == models.StatusApproved {
			out = append(out, vs[i])
		}
	}
	return out, nil
}

// SetStatus approves or rejects a visitor. Repeating the current status is a
// no-op. Moving between approved and rejected requires override.
func (e *LifecycleEngine) SetStatus(ctx context.Context, id string, status models.VisitorStatus, actor string, override bool) (*models.Visitor, error) {
	if !status.IsDecision() {
		return nil, apperrors.Validation("status must be %q or %q", models.StatusApproved, models.StatusRejected)
	}
	current, err := e.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}

	overriding := current.Status != models.StatusPending
	if overriding {
		if !override {
			return nil, apperrors.Conflict("visitor is already %s", current.Status)
		}
		if status == models.StatusRejected && current.CheckedOut() {
			return nil, apperrors.Conflict("visitor has already checked out and cannot be rejected")
		}
	}

	actor = strings.TrimSpace(actor)
	now := e.clock.Now()
	from := current.Status
	patch := models.VisitorPatch{
		ExpectStatus: &from,
		Status:       &status,
		UpdatedAt:    now,
	}
	cleared := ""
	switch status {
	case models.StatusApproved:
		if actor != "" {
			patch.ApprovedBy = &actor
		}
		if overriding {
			patch.RejectedBy = &cleared
		}
	case models.StatusRejected:
		if actor != "" {
			patch.RejectedBy = &actor
		}
		if overriding {
			patch.ApprovedBy = &cleared
		}
	}

	updated, err := e.update(ctx, current.ID, patch)
	if err != nil {
		return nil, err
	}

	e.record(ctx, models.VisitorEvent{
		VisitorID: updated.ID,
		Type:      models.EventTypeForStatus(status),
		From:      from,
		To:        status,
		Actor:     actor,
		Override:  overriding,
		At:        now,
	}, updated)
	return updated, nil
}

// MarkCheckout records an approved visitor leaving the premises. Checking out
// twice returns the stored record without a second event.
func (e *LifecycleEngine) MarkCheckout(ctx context.Context, id string) (*models.Visitor, error) {
	current, err := e.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusApproved {
		return nil, apperrors.Conflict("only approved visitors can check out, visitor is %s", current.Status)
	}
	if current.CheckedOut() {
		return current, nil
	}

	now := e.clock.Now()
	if now.Before(current.CreatedAt) {
		now = current.CreatedAt
	}
	expect := models.StatusApproved
	updated, err := e.update(ctx, current.ID, models.VisitorPatch{
		ExpectStatus:     &expect,
		ExpectNoCheckout: true,
		CheckoutTime:     &now,
		UpdatedAt:        now,
	})
	if errors.Is(err, apperrors.ErrConflict) {
		// Lost a race; a concurrent checkout is as good as ours
		if latest, gerr := e.GetByID(ctx, id); gerr == nil && latest.Status == models.StatusApproved && latest.CheckedOut() {
			return latest, nil
		}
	}
	if err != nil {
		return nil, err
	}

	e.record(ctx, models.VisitorEvent{
		VisitorID: updated.ID,
		Type:      models.EventCheckedOut,
		From:      models.StatusApproved,
		To:        models.StatusApproved,
		At:        now,
	}, updated)
	return updated, nil
}

// DeleteVisitor removes a decided visitor. Pending entries must be decided first.
func (e *LifecycleEngine) DeleteVisitor(ctx context.Context, id, actor string) error {
	current, err := e.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == models.StatusPending {
		return apperrors.Conflict("pending visitors must be approved or rejected before deletion")
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := e.visitors.Delete(sctx, current.ID); err != nil {
		return storeError("failed to delete visitor", err)
	}

	e.record(ctx, models.VisitorEvent{
		VisitorID: current.ID,
		Type:      models.EventDeleted,
		From:      current.Status,
		Actor:     strings.TrimSpace(actor),
		At:        e.clock.Now(),
	}, nil)
	return nil
}

// History returns the audit trail of a visitor, oldest first. It outlives deletion.
func (e *LifecycleEngine) History(ctx context.Context, id string) ([]models.VisitorEvent, error) {
	oid, err := parseVisitorID(id)
	if err != nil {
		return nil, err
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	events, err := e.events.ListByVisitor(sctx, oid)
	if err != nil {
		return nil, storeError("failed to fetch visitor history", err)
	}
	if events == nil {
		events = []models.VisitorEvent{}
	}
	return events, nil
}

func (e *LifecycleEngine) update(ctx context.Context, id primitive.ObjectID, patch models.VisitorPatch) (*models.Visitor, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	updated, err := e.visitors.Update(sctx, id, patch)
	if err != nil {
		return nil, storeError("failed to update visitor", err)
	}
	return updated, nil
}

// record appends to the audit trail and pushes the event to live screens.
// Both are secondary to the mutation that already happened, so failures are only logged.
func (e *LifecycleEngine) record(ctx context.Context, event models.VisitorEvent, snapshot *models.Visitor) {
	logger := logging.FromContext(ctx)

	if e.events != nil {
		sctx, cancel := context.WithTimeout(ctx, storeTimeout)
		err := e.events.Append(sctx, &event)
		cancel()
		if err != nil {
			logger.Error("failed to append visitor event", "visitor_id", event.VisitorID.Hex(), "type", event.Type, "error", err)
		}
	}

	if e.publisher != nil {
		event.Visitor = snapshot
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err := e.publisher.Publish(pctx, event)
		cancel()
		if err != nil {
			logger.Warn("failed to publish visitor event", "visitor_id", event.VisitorID.Hex(), "type", event.Type, "error", err)
		}
	}
}

// parseVisitorID treats malformed ids as unknown visitors.
func parseVisitorID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, apperrors.NotFound("visitor not found")
	}
	return oid, nil
}

func storeError(message string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound("visitor not found")
	case errors.Is(err, store.ErrPreconditionFailed):
		return apperrors.Conflict("visitor was modified concurrently, please retry")
	default:
		return apperrors.TransientIO(message, err)
	}
}
