package databases

// go generate: mockery --name IssueDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civichero/civichero-api/models"
)

const issueName = "issues"

// IssueDatabase contains the methods to use with the issue database
type IssueDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Issue, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Issue, error)
	FindPopulated(ctx context.Context, filter interface{}) ([]models.IssuePopulated, error)
	InsertOne(ctx context.Context, issue models.Issue, opts ...*options.InsertOneOptions) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error
}

type issueDatabase struct {
	db DatabaseHelper
}

// NewIssueDatabase initializes a new instance of issue database with the provided db connection
func NewIssueDatabase(db DatabaseHelper) IssueDatabase {
	return &issueDatabase{
		db: db,
	}
}

func (c *issueDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Issue, error) {
	issue := &models.Issue{}
	err := c.db.Collection(issueName).FindOne(ctx, filter, opts...).Decode(&issue)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (c *issueDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Issue, error) {
	var issues []models.Issue
	curr, err := c.db.Collection(issueName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &issues)
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// FindPopulated resolves the reporter reference to the user's name and email,
// newest issues first. A dangling reporter id yields an empty summary rather
// than dropping the issue.
func (c *issueDatabase) FindPopulated(ctx context.Context, filter interface{}) ([]models.IssuePopulated, error) {
	pipeline := []bson.M{
		{"$match": filter},
		{"$sort": bson.M{"createdAt": -1}},
		{"$lookup": bson.M{
			"from":         userName,
			"localField":   "reporter",
			"foreignField": "_id",
			"as":           "reporterDoc",
		}},
		{"$unwind": bson.M{"path": "$reporterDoc", "preserveNullAndEmptyArrays": true}},
		{"$addFields": bson.M{"reporter": bson.M{
			"_id":   "$reporterDoc._id",
			"name":  "$reporterDoc.name",
			"email": "$reporterDoc.email",
		}}},
		{"$project": bson.M{"reporterDoc": 0}},
	}

	var issues []models.IssuePopulated
	if err := c.Aggregate(ctx, pipeline, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *issueDatabase) InsertOne(ctx context.Context, issue models.Issue, opts ...*options.InsertOneOptions) (interface{}, error) {
	return c.db.Collection(issueName).InsertOne(ctx, issue, opts...)
}

func (c *issueDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(issueName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *issueDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.db.Collection(issueName).DeleteOne(ctx, filter, opts...)
}

func (c *issueDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.db.Collection(issueName).DeleteMany(ctx, filter, opts...)
}

func (c *issueDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(issueName).CountDocuments(ctx, filter, opts...)
}

func (c *issueDatabase) Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error {
	curr, err := c.db.Collection(issueName).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer curr.Close(ctx)
	return curr.All(ctx, results)
}
