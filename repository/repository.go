// Package repository persists issues and users.
package repository

import (
	"context"
	"fmt"

	"civicreport-be/config"
	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupField names an issue attribute that can be grouped and counted.
type GroupField string

const (
	GroupByType     GroupField = "issueType"
	GroupByPriority GroupField = "priorityLevel"
)

// LifecycleInterface is implemented by backends that hold connections.
type LifecycleInterface interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
}

// IssueInterface is the durable issue store.
type IssueInterface interface {
	InsertIssue(ctx context.Context, issue *models.Issue) error
	// FindIssue returns models.ErrNotFound when id is absent.
	FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	// FindIssues returns matches newest first (createdAt, then _id, descending).
	// A limit of 0 means no limit.
	FindIssues(ctx context.Context, filter models.IssueFilter, skip, limit int64) ([]models.Issue, error)
	CountIssues(ctx context.Context, filter models.IssueFilter) (int64, error)
	// ReplaceIssue overwrites the whole document. When requireStatus is set the
	// write only lands if the stored status still equals it; otherwise
	// models.ErrConflict is returned.
	ReplaceIssue(ctx context.Context, issue *models.Issue, requireStatus models.IssueStatus) error
	DeleteIssue(ctx context.Context, id primitive.ObjectID) error
	// GroupIssues counts issues per distinct value of field, sorted by value.
	GroupIssues(ctx context.Context, field GroupField) ([]models.GroupCount, error)
}

// UserInterface is the identity store.
type UserInterface interface {
	// InsertUser returns models.ErrConflict when the email is taken.
	InsertUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindUsers resolves ids in one round trip; unknown ids are absent from the map.
	FindUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	ReplaceUser(ctx context.Context, user *models.User) error
}

// Repository aggregates all persistence interfaces.
type Repository interface {
	LifecycleInterface
	IssueInterface
	UserInterface
}

// New constructs repository backend by name.
func New(ctx context.Context, name string, log *zap.SugaredLogger, cfg *config.Config) (Repository, error) {
	switch name {
	case "mongo":
		client, err := config.ConnectDB(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDB)
		return NewMongo(client, db.Collection("issues"), db.Collection("users"), log), nil
	case "memory":
		log.Warnw("using in-memory store, data is lost on restart")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown repo backend: %s", name)
	}
}
