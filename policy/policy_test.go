package policy

import (
	"testing"

	"civicreport-be/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthorize(t *testing.T) {
	reporter := primitive.NewObjectID()
	other := primitive.NewObjectID()

	pending := &models.Issue{ReportedBy: reporter, Status: models.Pending}
	inProgress := &models.Issue{ReportedBy: reporter, Status: models.InProgress}

	asReporter := &models.Caller{UserID: reporter, Role: models.Citizen}
	asOther := &models.Caller{UserID: other, Role: models.Citizen}
	asAdmin := &models.Caller{UserID: other, Role: models.Admin}

	tests := []struct {
		name   string
		op     Operation
		caller *models.Caller
		issue  *models.Issue
		want   error
	}{
		{"read anonymous", Read, nil, pending, nil},
		{"read listing anonymous", Read, nil, nil, nil},
		{"read own anonymous", ReadOwn, nil, nil, models.ErrUnauthorized},
		{"read own authenticated", ReadOwn, asOther, nil, nil},
		{"create anonymous", Create, nil, nil, models.ErrUnauthorized},
		{"create authenticated", Create, asOther, nil, nil},
		{"update by reporter while pending", Update, asReporter, pending, nil},
		{"update by other", Update, asOther, pending, models.ErrForbidden},
		{"update by admin is still forbidden", Update, asAdmin, pending, models.ErrForbidden},
		{"update by reporter once processed", Update, asReporter, inProgress, models.ErrConflict},
		{"update by other once processed", Update, asOther, inProgress, models.ErrForbidden},
		{"status by any citizen", UpdateStatus, asOther, inProgress, nil},
		{"status anonymous", UpdateStatus, nil, inProgress, models.ErrUnauthorized},
		{"delete by reporter", Delete, asReporter, inProgress, nil},
		{"delete by admin", Delete, asAdmin, pending, nil},
		{"delete by other", Delete, asOther, pending, models.ErrForbidden},
		{"unknown op", Operation("archive"), asAdmin, pending, models.ErrForbidden},
	}

	g := New(nil)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(tt.op, tt.caller, tt.issue)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorizeStatusRoles(t *testing.T) {
	g := New([]models.Role{models.Volunteer, models.Admin})
	issue := &models.Issue{ReportedBy: primitive.NewObjectID(), Status: models.Pending}

	err := g.Authorize(UpdateStatus, &models.Caller{UserID: primitive.NewObjectID(), Role: models.Citizen}, issue)
	require.ErrorIs(t, err, models.ErrForbidden)

	err = g.Authorize(UpdateStatus, &models.Caller{UserID: primitive.NewObjectID(), Role: models.Volunteer}, issue)
	require.NoError(t, err)
}
