package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"civicreport-be/models"
	"civicreport-be/policy"
	"civicreport-be/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc   *IssueService
	store *repository.Memory

	citizen  *models.Caller
	neighbor *models.Caller
	staff    *models.Caller
	admin    *models.Caller
}

// tickingClock returns a clock that advances one second per call so that
// creation order is observable.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemory()
	svc := NewIssueService(store, policy.New(nil), zap.NewNop().Sugar())
	svc.now = tickingClock()

	f := &fixture{svc: svc, store: store}
	users := []struct {
		dst  **models.Caller
		name string
		role models.Role
	}{
		{&f.citizen, "Asha", models.Citizen},
		{&f.neighbor, "Ben", models.Citizen},
		{&f.staff, "Chen", models.Volunteer},
		{&f.admin, "Dana", models.Admin},
	}
	for _, u := range users {
		user := &models.User{
			ID:       primitive.NewObjectID(),
			Name:     u.name,
			Username: u.name,
			Email:    u.name + "@example.com",
			Password: "hash",
			Role:     u.role,
		}
		require.NoError(t, store.InsertUser(context.Background(), user))
		*u.dst = &models.Caller{UserID: user.ID, Role: u.role}
	}
	return f
}

func pothole() models.IssueInput {
	return models.IssueInput{
		IssueTitle:    "Pothole on 5th",
		IssueType:     models.RoadDamage,
		PriorityLevel: models.High,
		Address:       "5th Avenue",
		Description:   "Deep pothole near the crossing",
		Location:      &models.Location{Lat: 12.97, Lng: 77.59},
	}
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.citizen, pothole())
	require.NoError(t, err)
	require.Equal(t, models.Pending, issue.Status)
	require.Equal(t, f.citizen.UserID, issue.ReportedBy)
	require.NotNil(t, issue.Images)
	require.Empty(t, issue.Images)
	require.Nil(t, issue.AssignedTo)
	require.Equal(t, issue.CreatedAt, issue.UpdatedAt)

	view, err := f.svc.Get(ctx, issue.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "Asha", view.ReportedBy.Name)
	require.Equal(t, "Asha@example.com", view.ReportedBy.Email)
	require.Nil(t, view.AssignedTo)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := map[string]func(in *models.IssueInput){
		"unknown type":     func(in *models.IssueInput) { in.IssueType = "InvalidType" },
		"unknown priority": func(in *models.IssueInput) { in.PriorityLevel = "Urgent" },
		"missing title":    func(in *models.IssueInput) { in.IssueTitle = "" },
		"latitude range":   func(in *models.IssueInput) { in.Location = &models.Location{Lat: 91, Lng: 0} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := pothole()
			mutate(&in)
			_, err := f.svc.Create(ctx, f.citizen, in)
			require.ErrorIs(t, err, models.ErrValidation)
		})
	}

	n, err := f.store.CountIssues(ctx, models.IssueFilter{})
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = f.svc.Create(ctx, nil, pothole())
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestGetUnknownID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.Get(ctx, "not-an-id")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateByReporter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.citizen, pothole())
	require.NoError(t, err)

	view, err := f.svc.Update(ctx, f.citizen, issue.ID.Hex(), models.IssuePatch{
		IssueTitle: strPtr("Pothole on 5th and Main"),
		Landmark:   strPtr(""),
		Images:     &[]string{"https://img.example.com/1.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, "Pothole on 5th and Main", view.IssueTitle)
	require.Equal(t, "5th Avenue", view.Address)
	require.Equal(t, []string{"https://img.example.com/1.jpg"}, view.Images)
	require.Equal(t, models.RoadDamage, view.IssueType)
	require.True(t, view.UpdatedAt.After(view.CreatedAt))
	require.Equal(t, f.citizen.UserID, view.ReportedBy.ID)

	_, err = f.svc.Update(ctx, f.citizen, issue.ID.Hex(), models.IssuePatch{IssueTitle: strPtr("")})
	require.ErrorIs(t, err, models.ErrValidation)

	bad := models.IssueType("Volcano")
	_, err = f.svc.Update(ctx, f.citizen, issue.ID.Hex(), models.IssuePatch{IssueType: &bad})
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateByOtherIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.citizen, pothole())
	require.NoError(t, err)

	garbage := models.Garbage
	patches := []models.IssuePatch{
		{},
		{IssueTitle: strPtr("mine now")},
		{IssueType: &garbage},
		{Description: strPtr(""), Location: &models.Location{Lat: 1, Lng: 1}},
	}
	for i, p := range patches {
		for _, caller := range []*models.Caller{f.neighbor, f.admin} {
			_, err := f.svc.Update(ctx, caller, issue.ID.Hex(), p)
			require.ErrorIs(t, err, models.ErrForbidden, "patch %d", i)
		}
	}

	stored, err := f.store.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Equal(t, "Pothole on 5th", stored.IssueTitle)
}

func TestIssueLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := pothole()
	in.IssueType = models.Garbage
	in.PriorityLevel = models.High
	issue, err := f.svc.Create(ctx, f.citizen, in)
	require.NoError(t, err)
	id := issue.ID.Hex()

	_, err = f.svc.Update(ctx, f.citizen, id, models.IssuePatch{IssueTitle: strPtr("Overflowing bins")})
	require.NoError(t, err)

	inProgress := models.InProgress
	view, err := f.svc.UpdateStatus(ctx, f.staff, id, models.StatusUpdate{
		Status:     &inProgress,
		AssignedTo: strPtr(f.staff.UserID.Hex()),
	})
	require.NoError(t, err)
	require.Equal(t, models.InProgress, view.Status)
	require.NotNil(t, view.AssignedTo)
	require.Equal(t, "Chen", view.AssignedTo.Name)
	require.Equal(t, "Overflowing bins", view.IssueTitle)
	require.Equal(t, f.citizen.UserID, view.ReportedBy.ID)

	_, err = f.svc.Update(ctx, f.citizen, id, models.IssuePatch{IssueTitle: strPtr("again")})
	require.ErrorIs(t, err, models.ErrConflict)

	require.NoError(t, f.svc.Delete(ctx, f.admin, id))
	_, err = f.svc.Get(ctx, id)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.citizen, pothole())
	require.NoError(t, err)
	id := issue.ID.Hex()

	resolved := models.Resolved
	_, err = f.svc.UpdateStatus(ctx, f.neighbor, id, models.StatusUpdate{Status: &resolved})
	require.NoError(t, err)

	// Any status may follow any other.
	pending := models.Pending
	view, err := f.svc.UpdateStatus(ctx, f.neighbor, id, models.StatusUpdate{Status: &pending})
	require.NoError(t, err)
	require.Equal(t, models.Pending, view.Status)

	closed := models.IssueStatus("Closed")
	_, err = f.svc.UpdateStatus(ctx, f.staff, id, models.StatusUpdate{Status: &closed})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.UpdateStatus(ctx, f.staff, id, models.StatusUpdate{AssignedTo: strPtr("xyz")})
	require.ErrorIs(t, err, models.ErrValidation)

	// An assignee with no user document is kept and joined as a bare id.
	ghost := primitive.NewObjectID()
	view, err = f.svc.UpdateStatus(ctx, f.staff, id, models.StatusUpdate{AssignedTo: strPtr(ghost.Hex())})
	require.NoError(t, err)
	require.Equal(t, models.Pending, view.Status)
	require.Equal(t, &models.UserRef{ID: ghost}, view.AssignedTo)

	_, err = f.svc.UpdateStatus(ctx, f.staff, primitive.NewObjectID().Hex(), models.StatusUpdate{Status: &resolved})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateStatusRoleAllowList(t *testing.T) {
	f := newFixture(t)
	f.svc.gate = policy.New([]models.Role{models.Volunteer, models.Admin})
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.citizen, pothole())
	require.NoError(t, err)

	resolved := models.Resolved
	_, err = f.svc.UpdateStatus(ctx, f.citizen, issue.ID.Hex(), models.StatusUpdate{Status: &resolved})
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.staff, issue.ID.Hex(), models.StatusUpdate{Status: &resolved})
	require.NoError(t, err)
}

func TestConcurrentStatusUpdatesLastWriterWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.citizen, pothole())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, st := range []models.IssueStatus{models.InProgress, models.Resolved, models.Rejected} {
		st := st
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.UpdateStatus(ctx, f.staff, issue.ID.Hex(), models.StatusUpdate{Status: &st})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.store.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Contains(t, []models.IssueStatus{models.InProgress, models.Resolved, models.Rejected}, stored.Status)
	require.Equal(t, "Pothole on 5th", stored.IssueTitle)
	require.Equal(t, f.citizen.UserID, stored.ReportedBy)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.citizen, pothole())
	require.NoError(t, err)
	id := issue.ID.Hex()

	require.ErrorIs(t, f.svc.Delete(ctx, f.neighbor, id), models.ErrForbidden)
	require.ErrorIs(t, f.svc.Delete(ctx, f.staff, id), models.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, f.citizen, id))
	require.ErrorIs(t, f.svc.Delete(ctx, f.citizen, id), models.ErrNotFound)
}

func seed(t *testing.T, f *fixture, n int, mutate func(i int, in *models.IssueInput)) []*models.Issue {
	t.Helper()
	out := make([]*models.Issue, 0, n)
	for i := 0; i < n; i++ {
		in := pothole()
		in.IssueTitle = fmt.Sprintf("issue %02d", i)
		if mutate != nil {
			mutate(i, &in)
		}
		issue, err := f.svc.Create(context.Background(), f.citizen, in)
		require.NoError(t, err)
		out = append(out, issue)
	}
	return out
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f, 25, nil)

	page, err := f.svc.List(ctx, models.IssueFilter{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Issues, 10)
	require.EqualValues(t, 25, page.TotalIssues)
	require.EqualValues(t, 3, page.TotalPages)
	require.EqualValues(t, 1, page.CurrentPage)
	require.Equal(t, "issue 24", page.Issues[0].IssueTitle)
	require.Equal(t, "Asha", page.Issues[0].ReportedBy.Name)

	page, err = f.svc.List(ctx, models.IssueFilter{}, 3, 10)
	require.NoError(t, err)
	require.Len(t, page.Issues, 5)
	require.Equal(t, "issue 00", page.Issues[4].IssueTitle)

	page, err = f.svc.List(ctx, models.IssueFilter{}, 9, 10)
	require.NoError(t, err)
	require.Empty(t, page.Issues)
	require.NotNil(t, page.Issues)
	require.EqualValues(t, 25, page.TotalIssues)

	require.NotPanics(t, func() {
		page, err = f.svc.List(ctx, models.IssueFilter{}, math.MaxInt64/100+2, 100)
	})
	require.NoError(t, err)
	require.NotNil(t, page.Issues)
	require.Empty(t, page.Issues)
	require.EqualValues(t, 25, page.TotalIssues)
	require.EqualValues(t, 1, page.TotalPages)

	for _, size := range []int64{1, 3, 7, 25, 26} {
		page, err = f.svc.List(ctx, models.IssueFilter{}, 1, size)
		require.NoError(t, err)
		require.EqualValues(t, (25+size-1)/size, page.TotalPages, "size %d", size)
	}

	page, err = f.svc.List(ctx, models.IssueFilter{}, 1, 1000)
	require.NoError(t, err)
	require.Len(t, page.Issues, 25)
	require.EqualValues(t, 1, page.TotalPages)

	_, err = f.svc.List(ctx, models.IssueFilter{}, 0, 10)
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = f.svc.List(ctx, models.IssueFilter{}, 1, 0)
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestListFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issues := seed(t, f, 6, func(i int, in *models.IssueInput) {
		if i%2 == 0 {
			in.IssueType = models.WaterLeakage
		}
	})

	resolved := models.Resolved
	for _, issue := range issues[:2] {
		_, err := f.svc.UpdateStatus(ctx, f.staff, issue.ID.Hex(), models.StatusUpdate{Status: &resolved})
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, models.IssueFilter{Status: models.Resolved}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Issues, 2)
	for _, v := range page.Issues {
		require.Equal(t, models.Resolved, v.Status)
	}

	page, err = f.svc.List(ctx, models.IssueFilter{Status: models.Pending, IssueType: models.WaterLeakage}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Issues, 2)

	_, err = f.svc.List(ctx, models.IssueFilter{Status: "Done"}, 1, 10)
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = f.svc.List(ctx, models.IssueFilter{PriorityLevel: "Urgent"}, 1, 10)
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestListByReporter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f, 3, nil)
	_, err := f.svc.Create(ctx, f.neighbor, pothole())
	require.NoError(t, err)

	mine, err := f.svc.ListByReporter(ctx, f.citizen)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	require.Equal(t, "issue 02", mine[0].IssueTitle)
	for _, v := range mine {
		require.Equal(t, f.citizen.UserID, v.ReportedBy.ID)
	}

	_, err = f.svc.ListByReporter(ctx, nil)
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, empty.TotalIssues)
	require.Empty(t, empty.IssuesByType)

	issues := seed(t, f, 7, func(i int, in *models.IssueInput) {
		switch i % 3 {
		case 0:
			in.IssueType, in.PriorityLevel = models.Garbage, models.Low
		case 1:
			in.IssueType, in.PriorityLevel = models.StreetlightIssue, models.Critical
		}
	})
	statuses := []models.IssueStatus{models.InProgress, models.Resolved, models.Resolved, models.Rejected}
	for i, st := range statuses {
		st := st
		_, err := f.svc.UpdateStatus(ctx, f.staff, issues[i].ID.Hex(), models.StatusUpdate{Status: &st})
		require.NoError(t, err)
	}

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 7, stats.TotalIssues)
	require.EqualValues(t, 3, stats.PendingIssues)
	require.EqualValues(t, 1, stats.InProgressIssues)
	require.EqualValues(t, 2, stats.ResolvedIssues)
	require.EqualValues(t, 1, stats.RejectedIssues)
	require.Equal(t, stats.TotalIssues,
		stats.PendingIssues+stats.InProgressIssues+stats.ResolvedIssues+stats.RejectedIssues)

	require.Equal(t, []models.GroupCount{
		{Key: "Garbage", Count: 3},
		{Key: "Road Damage", Count: 2},
		{Key: "Streetlight Issue", Count: 2},
	}, stats.IssuesByType)
	require.Equal(t, []models.GroupCount{
		{Key: "Critical", Count: 2},
		{Key: "High", Count: 2},
		{Key: "Low", Count: 3},
	}, stats.IssuesByPriority)
}
