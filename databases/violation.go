package databases

// go generate: mockery --name ViolationDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civichero/civichero-api/models"
)

const violationName = "violations"

// ViolationDatabase contains the methods to use with the violation database
type ViolationDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Violation, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Violation, error)
	FindPopulated(ctx context.Context, filter interface{}) ([]models.ViolationPopulated, error)
	InsertOne(ctx context.Context, violation models.Violation, opts ...*options.InsertOneOptions) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
}

type violationDatabase struct {
	db DatabaseHelper
}

// NewViolationDatabase initializes a new instance of violation database with the provided db connection
func NewViolationDatabase(db DatabaseHelper) ViolationDatabase {
	return &violationDatabase{
		db: db,
	}
}

func (c *violationDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Violation, error) {
	violation := &models.Violation{}
	err := c.db.Collection(violationName).FindOne(ctx, filter, opts...).Decode(&violation)
	if err != nil {
		return nil, err
	}
	return violation, nil
}

func (c *violationDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Violation, error) {
	var violations []models.Violation
	curr, err := c.db.Collection(violationName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &violations)
	if err != nil {
		return nil, err
	}
	return violations, nil
}

// FindPopulated resolves the reportedBy reference to the user's name and
// email, newest violations first.
func (c *violationDatabase) FindPopulated(ctx context.Context, filter interface{}) ([]models.ViolationPopulated, error) {
	pipeline := []bson.M{
		{"$match": filter},
		{"$sort": bson.M{"createdAt": -1}},
		{"$lookup": bson.M{
			"from":         userName,
			"localField":   "reportedBy",
			"foreignField": "_id",
			"as":           "reporterDoc",
		}},
		{"$unwind": bson.M{"path": "$reporterDoc", "preserveNullAndEmptyArrays": true}},
		{"$addFields": bson.M{"reportedBy": bson.M{
			"_id":   "$reporterDoc._id",
			"name":  "$reporterDoc.name",
			"email": "$reporterDoc.email",
		}}},
		{"$project": bson.M{"reporterDoc": 0}},
	}

	curr, err := c.db.Collection(violationName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)

	var violations []models.ViolationPopulated
	if err := curr.All(ctx, &violations); err != nil {
		return nil, err
	}
	return violations, nil
}

func (c *violationDatabase) InsertOne(ctx context.Context, violation models.Violation, opts ...*options.InsertOneOptions) (interface{}, error) {
	return c.db.Collection(violationName).InsertOne(ctx, violation, opts...)
}

func (c *violationDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(violationName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *violationDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.db.Collection(violationName).DeleteOne(ctx, filter, opts...)
}

func (c *violationDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.db.Collection(violationName).DeleteMany(ctx, filter, opts...)
}
