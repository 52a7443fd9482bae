package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"github.com/AnshRaj112/visitor-backend/internal/store/memory"
	"github.com/AnshRaj112/visitor-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingNotifier struct {
	mu     sync.Mutex
	names  []string
	report DispatchReport
}

func (n *recordingNotifier) NotifyNewVisitor(_ context.Context, name string) DispatchReport {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.names = append(n.names, name)
	return n.report
}

func (n *recordingNotifier) Names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.names...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.VisitorEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e models.VisitorEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type lifecycleFixture struct {
	engine    *LifecycleEngine
	visitors  *memory.VisitorStore
	events    *memory.EventStore
	notifier  *recordingNotifier
	publisher *recordingPublisher
	clock     *testutil.StubClock
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		visitors:  memory.NewVisitorStore(),
		events:    memory.NewEventStore(),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		clock:     testutil.FixedClock(),
	}
	f.engine = NewLifecycleEngine(LifecycleDeps{
		Visitors:  f.visitors,
		Events:    f.events,
		Notifier:  f.notifier,
		Publisher: f.publisher,
		Clock:     f.clock,
		Location:  testutil.Kolkata(),
	})
	return f
}

func validForm(name string) NewVisitor {
	return NewVisitor{
		Name:         name,
		Phone:        "9876543210",
		PersonToMeet: "Priya",
		Purpose:      "Interview",
		PhotoURL:     "https://res.cloudinary.com/demo/visitors/" + name + ".jpg",
	}
}

func (f *lifecycleFixture) create(t *testing.T, name string) *models.Visitor {
	t.Helper()
	v, err := f.engine.CreateVisitor(context.Background(), validForm(name))
	require.NoError(t, err)
	return v
}

func TestCreateVisitor(t *testing.T) {
	f := newLifecycleFixture(t)

	form := validForm("  Asha  ")
	v, err := f.engine.CreateVisitor(context.Background(), form)
	require.NoError(t, err)
	f.engine.Wait()

	assert.False(t, v.ID.IsZero())
	assert.Equal(t, "Asha", v.Name)
	assert.Equal(t, models.StatusPending, v.Status)
	assert.Equal(t, models.CompanyNotProvided, v.Company)
	assert.Nil(t, v.ApprovedBy)
	assert.Nil(t, v.RejectedBy)
	assert.Nil(t, v.CheckoutTime)
	assert.Equal(t, f.clock.Now(), v.CreatedAt)
	assert.Equal(t, v.CreatedAt, v.UpdatedAt)

	stored, err := f.engine.GetByID(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, v.Name, stored.Name)

	assert.Equal(t, []string{"Asha"}, f.notifier.Names())

	history, err := f.engine.History(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.EventCreated, history[0].Type)
}

func TestCreateVisitorKeepsCompany(t *testing.T) {
	f := newLifecycleFixture(t)
	form := validForm("Ravi")
	form.Company = "Acme"

	v, err := f.engine.CreateVisitor(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "Acme", v.Company)
}

func TestCreateVisitorValidation(t *testing.T) {
	f := newLifecycleFixture(t)

	form := validForm("")
	form.Purpose = "   "
	_, err := f.engine.CreateVisitor(context.Background(), form)
	f.engine.Wait()

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "purpose is required")
	assert.Empty(t, f.notifier.Names())

	all, err := f.engine.ListAll(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCheckNewVisitorIgnoresPhoto(t *testing.T) {
	f := newLifecycleFixture(t)
	form := validForm("Asha")
	form.PhotoURL = ""

	assert.NoError(t, f.engine.CheckNewVisitor(form))

	form.Phone = ""
	assert.True(t, errors.Is(f.engine.CheckNewVisitor(form), apperrors.ErrValidation))
}

func TestCreateVisitorSucceedsWhenEveryDeliveryFails(t *testing.T) {
	f := newLifecycleFixture(t)
	f.notifier.report = DispatchReport{Failed: 3}

	v, err := f.engine.CreateVisitor(context.Background(), validForm("Asha"))
	f.engine.Wait()

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, v.Status)
}

func TestSetStatusApprove(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")
	f.clock.Advance(time.Minute)

	updated, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, "admin1", *updated.ApprovedBy)
	assert.Nil(t, updated.RejectedBy)
	assert.Equal(t, f.clock.Now(), updated.UpdatedAt)
	assert.Equal(t, v.CreatedAt, updated.CreatedAt)
}

func TestSetStatusWithoutActorLeavesAttributionUnset(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")

	updated, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusRejected, "", false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Nil(t, updated.RejectedBy)
	assert.Nil(t, updated.ApprovedBy)
}

func TestSetStatusSameStatusIsNoop(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")
	first, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin2", false)
	require.NoError(t, err)

	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, "admin1", *second.ApprovedBy)

	history, err := f.engine.History(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSetStatusTerminalRequiresOverride(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")
	_, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)

	_, err = f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusRejected, "admin2", false)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	updated, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusRejected, "admin2", true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	require.NotNil(t, updated.RejectedBy)
	assert.Equal(t, "admin2", *updated.RejectedBy)
	assert.Nil(t, updated.ApprovedBy)

	history, err := f.engine.History(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, models.EventRejected, last.Type)
	assert.Equal(t, models.StatusApproved, last.From)
	assert.True(t, last.Override)
}

func TestSetStatusOverrideCannotRejectCheckedOutVisitor(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")
	_, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)
	_, err = f.engine.MarkCheckout(context.Background(), v.ID.Hex())
	require.NoError(t, err)

	_, err = f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusRejected, "admin1", true)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")

	for _, s := range []models.VisitorStatus{models.StatusPending, "archived", ""} {
		_, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), s, "admin1", false)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), "status %q", s)
	}
}

func TestUnknownAndMalformedIDsAreNotFound(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	for _, id := range []string{primitive.NewObjectID().Hex(), "not-an-id"} {
		_, err := f.engine.GetByID(ctx, id)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound), id)
		_, err = f.engine.SetStatus(ctx, id, models.StatusApproved, "admin1", false)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound), id)
		_, err = f.engine.MarkCheckout(ctx, id)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound), id)
		err = f.engine.DeleteVisitor(ctx, id, "admin1")
		assert.True(t, errors.Is(err, apperrors.ErrNotFound), id)
	}
}

func TestMarkCheckout(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")

	_, err := f.engine.MarkCheckout(context.Background(), v.ID.Hex())
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "pending visitor")

	_, err = f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)

	out, err := f.engine.MarkCheckout(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, out.CheckoutTime)
	assert.Equal(t, f.clock.Now(), *out.CheckoutTime)
	assert.False(t, out.CheckoutTime.Before(out.CreatedAt))

	history, err := f.engine.History(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	events := len(history)

	f.clock.Advance(time.Hour)
	again, err := f.engine.MarkCheckout(context.Background(), v.ID.Hex())
	require.NoError(t, err, "second checkout returns the stored record")
	require.NotNil(t, again.CheckoutTime)
	assert.Equal(t, *out.CheckoutTime, *again.CheckoutTime)
	assert.Equal(t, out.UpdatedAt, again.UpdatedAt)

	history, err = f.engine.History(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, history, events, "no second checked_out event")
}

func TestMarkCheckoutRejectedVisitor(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")
	_, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusRejected, "admin1", false)
	require.NoError(t, err)

	_, err = f.engine.MarkCheckout(context.Background(), v.ID.Hex())
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestMarkCheckoutNeverPrecedesCreation(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")
	_, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)

	f.clock.Advance(-time.Hour)
	out, err := f.engine.MarkCheckout(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, v.CreatedAt, *out.CheckoutTime)
}

func TestDeleteVisitor(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")

	err := f.engine.DeleteVisitor(context.Background(), v.ID.Hex(), "admin1")
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "pending visitor")

	_, err = f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusRejected, "admin1", false)
	require.NoError(t, err)
	require.NoError(t, f.engine.DeleteVisitor(context.Background(), v.ID.Hex(), "admin1"))

	_, err = f.engine.GetByID(context.Background(), v.ID.Hex())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	history, err := f.engine.History(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.EventDeleted, history[2].Type)
	assert.Equal(t, "admin1", history[2].Actor)
}

func TestListByDateRange(t *testing.T) {
	f := newLifecycleFixture(t)
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, testutil.Kolkata())

	f.clock.Set(day.Add(-time.Nanosecond))
	f.create(t, "before")
	f.clock.Set(day)
	f.create(t, "at-start")
	f.clock.Set(day.Add(12 * time.Hour))
	f.create(t, "midday")
	f.clock.Set(day.AddDate(0, 0, 1).Add(-time.Nanosecond))
	f.create(t, "at-end")
	f.clock.Set(day.AddDate(0, 0, 1))
	f.create(t, "after")

	start, end, err := ParseDateRange("2024-03-10", "2024-03-10", testutil.Kolkata())
	require.NoError(t, err)
	vs, err := f.engine.ListByDateRange(context.Background(), start, end)
	require.NoError(t, err)

	var names []string
	for _, v := range vs {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"at-start", "midday", "at-end"}, names)

	_, err = f.engine.ListByDateRange(context.Background(), end, start)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestListAllNewestFirst(t *testing.T) {
	f := newLifecycleFixture(t)
	f.create(t, "first")
	f.clock.Advance(time.Minute)
	f.create(t, "second")

	vs, err := f.engine.ListAll(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, "second", vs[0].Name)
	assert.Equal(t, "first", vs[1].Name)
}

func TestListApprovedToday(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.clock.Advance(-24 * time.Hour)
	yesterday := f.create(t, "yesterday")
	_, err := f.engine.SetStatus(ctx, yesterday.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	early := f.create(t, "early")
	f.clock.Advance(time.Minute)
	late := f.create(t, "late")
	f.create(t, "still-pending")
	for _, v := range []*models.Visitor{early, late} {
		_, err := f.engine.SetStatus(ctx, v.ID.Hex(), models.StatusApproved, "admin1", false)
		require.NoError(t, err)
	}

	vs, err := f.engine.ListApprovedToday(ctx)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, "late", vs[0].Name)
	assert.Equal(t, "early", vs[1].Name)
}

type racingVisitorStore struct {
	*memory.VisitorStore
}

func (s racingVisitorStore) Update(context.Context, primitive.ObjectID, models.VisitorPatch) (*models.Visitor, error) {
	return nil, store.ErrPreconditionFailed
}

func TestConcurrentChangeIsConflict(t *testing.T) {
	visitors := memory.NewVisitorStore()
	engine := NewLifecycleEngine(LifecycleDeps{
		Visitors: racingVisitorStore{visitors},
		Events:   memory.NewEventStore(),
		Clock:    testutil.FixedClock(),
	})
	v, err := engine.CreateVisitor(context.Background(), validForm("Asha"))
	require.NoError(t, err)

	_, err = engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin1", false)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestTransitionsArePublished(t *testing.T) {
	f := newLifecycleFixture(t)
	v := f.create(t, "Asha")
	_, err := f.engine.SetStatus(context.Background(), v.ID.Hex(), models.StatusApproved, "admin1", false)
	require.NoError(t, err)

	f.publisher.mu.Lock()
	defer f.publisher.mu.Unlock()
	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, models.EventCreated, f.publisher.events[0].Type)
	assert.Equal(t, models.EventApproved, f.publisher.events[1].Type)
	require.NotNil(t, f.publisher.events[1].Visitor)
	assert.Equal(t, models.StatusApproved, f.publisher.events[1].Visitor.Status)
}
