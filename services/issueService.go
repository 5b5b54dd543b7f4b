// Package services holds the issue lifecycle, query and identity logic that
// sits between the HTTP handlers and the repository.
package services

import (
	"context"
	"fmt"
	"time"

	"civicreport-be/models"
	"civicreport-be/policy"
	"civicreport-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// IssueStore is the slice of the repository the issue service needs.
type IssueStore interface {
	repository.IssueInterface
	FindUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
}

type IssueService struct {
	store IssueStore
	gate  *policy.Gate
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewIssueService(store IssueStore, gate *policy.Gate, log *zap.SugaredLogger) *IssueService {
	return &IssueService{store: store, gate: gate, log: log, now: time.Now}
}

// timestamp matches the millisecond precision Mongo stores.
func (s *IssueService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// parseIssueID treats an id that can never exist as absent.
func parseIssueID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: issue %q", models.ErrNotFound, id)
	}
	return oid, nil
}

// Create validates and stores a new Pending issue reported by caller.
func (s *IssueService) Create(ctx context.Context, caller *models.Caller, in models.IssueInput) (*models.Issue, error) {
	if err := s.gate.Authorize(policy.Create, caller, nil); err != nil {
		return nil, err
	}
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	images := in.Images
	if images == nil {
		images = []string{}
	}
	now := s.timestamp()
	issue := &models.Issue{
		ID:            primitive.NewObjectID(),
		IssueTitle:    in.IssueTitle,
		IssueType:     in.IssueType,
		PriorityLevel: in.PriorityLevel,
		Address:       in.Address,
		Landmark:      in.Landmark,
		Description:   in.Description,
		Location:      in.Location,
		Images:        images,
		Status:        models.Pending,
		ReportedBy:    caller.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.InsertIssue(ctx, issue); err != nil {
		return nil, err
	}
	s.log.Infow("issue created", "issue_id", issue.ID.Hex(), "reported_by", caller.UserID.Hex(), "issue_type", issue.IssueType)
	return issue, nil
}

// Get returns one issue with reporter and assignee joined.
func (s *IssueService) Get(ctx context.Context, id string) (*models.IssueView, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}
	issue, err := s.store.FindIssue(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(policy.Read, nil, issue); err != nil {
		return nil, err
	}
	return s.joinOne(ctx, issue)
}

// List returns one page of issues matching filter, newest first.
func (s *IssueService) List(ctx context.Context, filter models.IssueFilter, page, pageSize int64) (*models.IssuePage, error) {
	if err := s.gate.Authorize(policy.Read, nil, nil); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be a positive integer", models.ErrValidation)
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", models.ErrValidation)
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total, err := s.store.CountIssues(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := &models.IssuePage{
		Issues:      []models.IssueView{},
		TotalPages:  (total + pageSize - 1) / pageSize,
		CurrentPage: page,
		TotalIssues: total,
	}
	// Comparing page numbers keeps (page-1)*pageSize from overflowing.
	if page > result.TotalPages {
		return result, nil
	}

	issues, err := s.store.FindIssues(ctx, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	if result.Issues, err = s.join(ctx, issues); err != nil {
		return nil, err
	}
	return result, nil
}

func validateFilter(f models.IssueFilter) error {
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", models.ErrValidation, f.Status)
	}
	if f.IssueType != "" && !f.IssueType.Valid() {
		return fmt.Errorf("%w: invalid issueType %q", models.ErrValidation, f.IssueType)
	}
	if f.PriorityLevel != "" && !f.PriorityLevel.Valid() {
		return fmt.Errorf("%w: invalid priorityLevel %q", models.ErrValidation, f.PriorityLevel)
	}
	return nil
}

// ListByReporter returns every issue the caller reported, newest first.
func (s *IssueService) ListByReporter(ctx context.Context, caller *models.Caller) ([]models.IssueView, error) {
	if err := s.gate.Authorize(policy.ReadOwn, caller, nil); err != nil {
		return nil, err
	}
	issues, err := s.store.FindIssues(ctx, models.IssueFilter{ReportedBy: &caller.UserID}, 0, 0)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, issues)
}

// Update applies the reporter's partial edit while the issue is Pending.
func (s *IssueService) Update(ctx context.Context, caller *models.Caller, id string, patch models.IssuePatch) (*models.IssueView, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}
	issue, err := s.store.FindIssue(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(policy.Update, caller, issue); err != nil {
		return nil, err
	}
	if err := models.ValidateStruct(patch); err != nil {
		return nil, err
	}

	if patch.IssueTitle != nil {
		issue.IssueTitle = *patch.IssueTitle
	}
	if patch.IssueType != nil {
		issue.IssueType = *patch.IssueType
	}
	if patch.PriorityLevel != nil {
		issue.PriorityLevel = *patch.PriorityLevel
	}
	if patch.Address != nil {
		issue.Address = *patch.Address
	}
	if patch.Landmark != nil {
		issue.Landmark = *patch.Landmark
	}
	if patch.Description != nil {
		issue.Description = *patch.Description
	}
	if patch.Location != nil {
		issue.Location = patch.Location
	}
	if patch.Images != nil {
		issue.Images = append([]string{}, *patch.Images...)
	}
	issue.UpdatedAt = s.timestamp()

	if err := s.store.ReplaceIssue(ctx, issue, models.Pending); err != nil {
		return nil, err
	}
	s.log.Infow("issue updated", "issue_id", issue.ID.Hex(), "by", caller.UserID.Hex())
	return s.joinOne(ctx, issue)
}

// UpdateStatus sets status and/or assignee. Any status may follow any other.
func (s *IssueService) UpdateStatus(ctx context.Context, caller *models.Caller, id string, upd models.StatusUpdate) (*models.IssueView, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}
	issue, err := s.store.FindIssue(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(policy.UpdateStatus, caller, issue); err != nil {
		return nil, err
	}
	if err := models.ValidateStruct(upd); err != nil {
		return nil, err
	}

	var assignee *primitive.ObjectID
	if upd.AssignedTo != nil && *upd.AssignedTo != "" {
		aid, err := primitive.ObjectIDFromHex(*upd.AssignedTo)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid assignedTo %q", models.ErrValidation, *upd.AssignedTo)
		}
		assignee = &aid
	}

	from := issue.Status
	if upd.Status != nil {
		issue.Status = *upd.Status
	}
	if assignee != nil {
		issue.AssignedTo = assignee
	}
	issue.UpdatedAt = s.timestamp()

	if err := s.store.ReplaceIssue(ctx, issue, ""); err != nil {
		return nil, err
	}
	s.log.Infow("issue status updated",
		"issue_id", issue.ID.Hex(),
		"by", caller.UserID.Hex(),
		"from", from,
		"to", issue.Status,
	)
	return s.joinOne(ctx, issue)
}

// Delete removes the issue permanently if caller is its reporter or an Admin.
func (s *IssueService) Delete(ctx context.Context, caller *models.Caller, id string) error {
	oid, err := parseIssueID(id)
	if err != nil {
		return err
	}
	issue, err := s.store.FindIssue(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(policy.Delete, caller, issue); err != nil {
		return err
	}
	if err := s.store.DeleteIssue(ctx, oid); err != nil {
		return err
	}
	s.log.Infow("issue deleted", "issue_id", oid.Hex(), "by", caller.UserID.Hex(), "role", caller.Role)
	return nil
}

// Stats aggregates the whole store. Nothing is cached.
func (s *IssueService) Stats(ctx context.Context) (*models.IssueStats, error) {
	if err := s.gate.Authorize(policy.Read, nil, nil); err != nil {
		return nil, err
	}
	var stats models.IssueStats
	var err error

	if stats.TotalIssues, err = s.store.CountIssues(ctx, models.IssueFilter{}); err != nil {
		return nil, err
	}
	counts := map[models.IssueStatus]*int64{
		models.Pending:    &stats.PendingIssues,
		models.InProgress: &stats.InProgressIssues,
		models.Resolved:   &stats.ResolvedIssues,
		models.Rejected:   &stats.RejectedIssues,
	}
	for status, dst := range counts {
		if *dst, err = s.store.CountIssues(ctx, models.IssueFilter{Status: status}); err != nil {
			return nil, err
		}
	}
	if stats.IssuesByType, err = s.store.GroupIssues(ctx, repository.GroupByType); err != nil {
		return nil, err
	}
	if stats.IssuesByPriority, err = s.store.GroupIssues(ctx, repository.GroupByPriority); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *IssueService) joinOne(ctx context.Context, issue *models.Issue) (*models.IssueView, error) {
	views, err := s.join(ctx, []models.Issue{*issue})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// join attaches reporter and assignee identities with one user lookup.
func (s *IssueService) join(ctx context.Context, issues []models.Issue) ([]models.IssueView, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, issue := range issues {
		add(issue.ReportedBy)
		if issue.AssignedTo != nil {
			add(*issue.AssignedTo)
		}
	}

	users, err := s.store.FindUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	ref := func(id primitive.ObjectID) *models.UserRef {
		if u, ok := users[id]; ok {
			return u.Ref()
		}
		return &models.UserRef{ID: id}
	}

	views := make([]models.IssueView, 0, len(issues))
	for _, issue := range issues {
		v := models.IssueView{Issue: issue, ReportedBy: ref(issue.ReportedBy)}
		if issue.AssignedTo != nil {
			v.AssignedTo = ref(*issue.AssignedTo)
		}
		views = append(views, v)
	}
	return views, nil
}
