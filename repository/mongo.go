package repository

import (
	"context"

	"civicreport-be/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	_ Repository = (*Mongo)(nil)
	_ Repository = (*Memory)(nil)
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// Mongo stores issues and users in two collections of one database.
type Mongo struct {
	client *mongo.Client
	issues *mongo.Collection
	users  *mongo.Collection
	log    *zap.SugaredLogger
}

// NewMongo wraps already connected collections. client may be nil when the
// caller owns the connection.
func NewMongo(client *mongo.Client, issues, users *mongo.Collection, log *zap.SugaredLogger) *Mongo {
	return &Mongo{client: client, issues: issues, users: users, log: log}
}

// OnStart creates the indexes the listing and login paths rely on.
func (m *Mongo) OnStart(ctx context.Context) error {
	_, err := m.issues.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: newestFirst},
		{Keys: bson.D{{Key: "reportedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "create issue indexes")
	}

	_, err = m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "create user indexes")
	}
	m.log.Infow("mongo indexes ensured")
	return nil
}

func (m *Mongo) OnStop(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

func issueFilter(f models.IssueFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.IssueType != "" {
		filter["issueType"] = f.IssueType
	}
	if f.PriorityLevel != "" {
		filter["priorityLevel"] = f.PriorityLevel
	}
	if f.ReportedBy != nil {
		filter["reportedBy"] = *f.ReportedBy
	}
	return filter
}

func (m *Mongo) InsertIssue(ctx context.Context, issue *models.Issue) error {
	if _, err := m.issues.InsertOne(ctx, issue); err != nil {
		return errors.Wrap(err, "insert issue")
	}
	return nil
}

func (m *Mongo) FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := m.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.Wrapf(models.ErrNotFound, "issue %s", id.Hex())
		}
		return nil, errors.Wrap(err, "find issue")
	}
	return &issue, nil
}

func (m *Mongo) FindIssues(ctx context.Context, filter models.IssueFilter, skip, limit int64) ([]models.Issue, error) {
	findOptions := options.Find().
		SetSort(newestFirst).
		SetSkip(skip)
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := m.issues.Find(ctx, issueFilter(filter), findOptions)
	if err != nil {
		return nil, errors.Wrap(err, "find issues")
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, errors.Wrap(err, "decode issues")
	}
	return issues, nil
}

func (m *Mongo) CountIssues(ctx context.Context, filter models.IssueFilter) (int64, error) {
	n, err := m.issues.CountDocuments(ctx, issueFilter(filter))
	if err != nil {
		return 0, errors.Wrap(err, "count issues")
	}
	return n, nil
}

func (m *Mongo) ReplaceIssue(ctx context.Context, issue *models.Issue, requireStatus models.IssueStatus) error {
	filter := bson.M{"_id": issue.ID}
	if requireStatus != "" {
		filter["status"] = requireStatus
	}

	res, err := m.issues.ReplaceOne(ctx, filter, issue)
	if err != nil {
		return errors.Wrap(err, "replace issue")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either the issue is gone or its status moved on.
	n, err := m.issues.CountDocuments(ctx, bson.M{"_id": issue.ID})
	if err != nil {
		return errors.Wrap(err, "recheck issue")
	}
	if n == 0 {
		return errors.Wrapf(models.ErrNotFound, "issue %s", issue.ID.Hex())
	}
	return errors.Wrapf(models.ErrConflict, "issue %s is no longer %s", issue.ID.Hex(), requireStatus)
}

func (m *Mongo) DeleteIssue(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.issues.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete issue")
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(models.ErrNotFound, "issue %s", id.Hex())
	}
	return nil
}

func (m *Mongo) GroupIssues(ctx context.Context, field GroupField) ([]models.GroupCount, error) {
	pipeline := []bson.M{
		{
			"$group": bson.M{
				"_id":   "$" + string(field),
				"count": bson.M{"$sum": 1},
			},
		},
		{
			"$sort": bson.M{"_id": 1},
		},
	}

	cursor, err := m.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrapf(err, "group issues by %s", field)
	}
	defer cursor.Close(ctx)

	groups := []models.GroupCount{}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, errors.Wrapf(err, "decode %s groups", field)
	}
	return groups, nil
}

func (m *Mongo) InsertUser(ctx context.Context, user *models.User) error {
	if _, err := m.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Wrap(models.ErrConflict, "user already exists")
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (m *Mongo) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

func (m *Mongo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := m.users.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.Wrap(models.ErrNotFound, "user")
		}
		return nil, errors.Wrap(err, "find user")
	}
	return &user, nil
}

func (m *Mongo) FindUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	found := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	findOptions := options.Find().SetProjection(bson.M{"password": 0})
	cursor, err := m.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOptions)
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	for _, u := range users {
		found[u.ID] = u
	}
	return found, nil
}

func (m *Mongo) ReplaceUser(ctx context.Context, user *models.User) error {
	res, err := m.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return errors.Wrap(err, "replace user")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(models.ErrNotFound, "user")
	}
	return nil
}
