package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueType enum
type IssueType string

const (
	Garbage          IssueType = "Garbage"
	RoadDamage       IssueType = "Road Damage"
	WaterLeakage     IssueType = "Water Leakage"
	StreetlightIssue IssueType = "Streetlight Issue"
	DrainageProblem  IssueType = "Drainage Problem"
	OtherIssue       IssueType = "Other"
)

// IssueTypes lists every accepted issue type.
var IssueTypes = []IssueType{Garbage, RoadDamage, WaterLeakage, StreetlightIssue, DrainageProblem, OtherIssue}

func (t IssueType) Valid() bool {
	for _, v := range IssueTypes {
		if t == v {
			return true
		}
	}
	return false
}

// PriorityLevel enum
type PriorityLevel string

const (
	Low      PriorityLevel = "Low"
	Medium   PriorityLevel = "Medium"
	High     PriorityLevel = "High"
	Critical PriorityLevel = "Critical"
)

var PriorityLevels = []PriorityLevel{Low, Medium, High, Critical}

func (p PriorityLevel) Valid() bool {
	for _, v := range PriorityLevels {
		if p == v {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	Pending    IssueStatus = "Pending"
	InProgress IssueStatus = "In Progress"
	Resolved   IssueStatus = "Resolved"
	Rejected   IssueStatus = "Rejected"
)

var IssueStatuses = []IssueStatus{Pending, InProgress, Resolved, Rejected}

func (s IssueStatus) Valid() bool {
	for _, v := range IssueStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Issue represents a civic issue reported by a user
type Issue struct {
	ID            primitive.ObjectID  `bson:"_id" json:"_id"`
	IssueTitle    string              `bson:"issueTitle" json:"issueTitle"`
	IssueType     IssueType           `bson:"issueType" json:"issueType"`
	PriorityLevel PriorityLevel       `bson:"priorityLevel" json:"priorityLevel"`
	Address       string              `bson:"address" json:"address"`
	Landmark      string              `bson:"landmark" json:"landmark"`
	Description   string              `bson:"description" json:"description"`
	Location      *Location           `bson:"location,omitempty" json:"location,omitempty"`
	Images        []string            `bson:"images" json:"images"`
	Status        IssueStatus         `bson:"status" json:"status"`
	ReportedBy    primitive.ObjectID  `bson:"reportedBy" json:"reportedBy"`
	AssignedTo    *primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// UserRef is the slice of a user attached to an issue at read time.
type UserRef struct {
	ID       primitive.ObjectID `json:"_id"`
	Name     string             `json:"name,omitempty"`
	Username string             `json:"username,omitempty"`
	Email    string             `json:"email,omitempty"`
}

// IssueView is an Issue with reporter and assignee identities joined in.
type IssueView struct {
	Issue
	ReportedBy *UserRef `json:"reportedBy"`
	AssignedTo *UserRef `json:"assignedTo"`
}

// IssueInput carries the fields of a new issue.
type IssueInput struct {
	IssueTitle    string        `validate:"required"`
	IssueType     IssueType     `validate:"issue_type"`
	PriorityLevel PriorityLevel `validate:"priority_level"`
	Address       string
	Landmark      string
	Description   string
	Location      *Location `validate:"omitempty"`
	Images        []string
}

// IssuePatch carries a reporter's partial edit. Nil fields are left untouched.
type IssuePatch struct {
	IssueTitle    *string        `validate:"omitempty,min=1"`
	IssueType     *IssueType     `validate:"omitempty,issue_type"`
	PriorityLevel *PriorityLevel `validate:"omitempty,priority_level"`
	Address       *string
	Landmark      *string
	Description   *string
	Location      *Location `validate:"omitempty"`
	Images        *[]string
}

// StatusUpdate carries the privileged status/assignment change.
type StatusUpdate struct {
	Status     *IssueStatus `validate:"omitempty,issue_status"`
	AssignedTo *string
}

// IssueFilter is a conjunction of equality predicates; empty fields impose nothing.
type IssueFilter struct {
	Status        IssueStatus
	IssueType     IssueType
	PriorityLevel PriorityLevel
	ReportedBy    *primitive.ObjectID
}

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	Key   string `bson:"_id" json:"_id"`
	Count int64  `bson:"count" json:"count"`
}

// IssueStats is a point-in-time dashboard snapshot.
type IssueStats struct {
	TotalIssues      int64        `json:"totalIssues"`
	PendingIssues    int64        `json:"pendingIssues"`
	InProgressIssues int64        `json:"inProgressIssues"`
	ResolvedIssues   int64        `json:"resolvedIssues"`
	RejectedIssues   int64        `json:"rejectedIssues"`
	IssuesByType     []GroupCount `json:"issuesByType"`
	IssuesByPriority []GroupCount `json:"issuesByPriority"`
}

// IssuePage is one page of a filtered listing.
type IssuePage struct {
	Issues      []IssueView `json:"issues"`
	TotalPages  int64       `json:"totalPages"`
	CurrentPage int64       `json:"currentPage"`
	TotalIssues int64       `json:"totalIssues"`
}
