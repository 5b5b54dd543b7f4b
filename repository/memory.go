package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is a process-local backend with the same ordering and conflict
// semantics as Mongo. It backs local runs and service tests.
type Memory struct {
	mu     sync.RWMutex
	issues map[primitive.ObjectID]models.Issue
	users  map[primitive.ObjectID]models.User
}

func NewMemory() *Memory {
	return &Memory{
		issues: make(map[primitive.ObjectID]models.Issue),
		users:  make(map[primitive.ObjectID]models.User),
	}
}

func (m *Memory) OnStart(_ context.Context) error { return nil }
func (m *Memory) OnStop(_ context.Context) error  { return nil }

func matches(f models.IssueFilter, issue *models.Issue) bool {
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.IssueType != "" && issue.IssueType != f.IssueType {
		return false
	}
	if f.PriorityLevel != "" && issue.PriorityLevel != f.PriorityLevel {
		return false
	}
	if f.ReportedBy != nil && issue.ReportedBy != *f.ReportedBy {
		return false
	}
	return true
}

// cloneIssue copies the slice and pointer fields so callers never share
// storage with the map.
func cloneIssue(issue models.Issue) models.Issue {
	issue.Images = append([]string{}, issue.Images...)
	if issue.Location != nil {
		loc := *issue.Location
		issue.Location = &loc
	}
	if issue.AssignedTo != nil {
		id := *issue.AssignedTo
		issue.AssignedTo = &id
	}
	return issue
}

func (m *Memory) InsertIssue(_ context.Context, issue *models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[issue.ID]; ok {
		return fmt.Errorf("insert issue: duplicate id %s", issue.ID.Hex())
	}
	m.issues[issue.ID] = cloneIssue(*issue)
	return nil
}

func (m *Memory) FindIssue(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	issue, ok := m.issues[id]
	if !ok {
		return nil, fmt.Errorf("%w: issue %s", models.ErrNotFound, id.Hex())
	}
	c := cloneIssue(issue)
	return &c, nil
}

func (m *Memory) FindIssues(_ context.Context, filter models.IssueFilter, skip, limit int64) ([]models.Issue, error) {
	m.mu.RLock()
	all := make([]models.Issue, 0, len(m.issues))
	for _, issue := range m.issues {
		issue := issue
		if matches(filter, &issue) {
			all = append(all, cloneIssue(issue))
		}
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return bytes.Compare(all[i].ID[:], all[j].ID[:]) > 0
	})

	if skip < 0 || skip >= int64(len(all)) {
		return []models.Issue{}, nil
	}
	all = all[skip:]
	if limit > 0 && limit < int64(len(all)) {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) CountIssues(_ context.Context, filter models.IssueFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, issue := range m.issues {
		issue := issue
		if matches(filter, &issue) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ReplaceIssue(_ context.Context, issue *models.Issue, requireStatus models.IssueStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.issues[issue.ID]
	if !ok {
		return fmt.Errorf("%w: issue %s", models.ErrNotFound, issue.ID.Hex())
	}
	if requireStatus != "" && stored.Status != requireStatus {
		return fmt.Errorf("%w: issue %s is no longer %s", models.ErrConflict, issue.ID.Hex(), requireStatus)
	}
	m.issues[issue.ID] = cloneIssue(*issue)
	return nil
}

func (m *Memory) DeleteIssue(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[id]; !ok {
		return fmt.Errorf("%w: issue %s", models.ErrNotFound, id.Hex())
	}
	delete(m.issues, id)
	return nil
}

func (m *Memory) GroupIssues(_ context.Context, field GroupField) ([]models.GroupCount, error) {
	m.mu.RLock()
	counts := map[string]int64{}
	for _, issue := range m.issues {
		switch field {
		case GroupByType:
			counts[string(issue.IssueType)]++
		case GroupByPriority:
			counts[string(issue.PriorityLevel)]++
		default:
			m.mu.RUnlock()
			return nil, fmt.Errorf("group issues: unsupported field %q", field)
		}
	}
	m.mu.RUnlock()

	groups := make([]models.GroupCount, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, models.GroupCount{Key: k, Count: n})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups, nil
}

func (m *Memory) InsertUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: user already exists", models.ErrConflict)
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) FindUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user", models.ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user", models.ErrNotFound)
}

func (m *Memory) FindUsers(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make(map[primitive.ObjectID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			u.Password = ""
			found[id] = u
		}
	}
	return found, nil
}

func (m *Memory) ReplaceUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return fmt.Errorf("%w: user", models.ErrNotFound)
	}
	m.users[user.ID] = *user
	return nil
}
