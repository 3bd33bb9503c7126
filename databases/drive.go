package databases

// go generate: mockery --name DriveDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civichero/civichero-api/models"
)

const driveName = "drives"

// DriveDatabase contains the methods to use with the drive database
type DriveDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Drive, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Drive, error)
	FindPopulated(ctx context.Context, filter interface{}) ([]models.DrivePopulated, error)
	InsertOne(ctx context.Context, drive models.Drive, opts ...*options.InsertOneOptions) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type driveDatabase struct {
	db DatabaseHelper
}

// NewDriveDatabase initializes a new instance of drive database with the provided db connection
func NewDriveDatabase(db DatabaseHelper) DriveDatabase {
	return &driveDatabase{
		db: db,
	}
}

func (c *driveDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Drive, error) {
	drive := &models.Drive{}
	err := c.db.Collection(driveName).FindOne(ctx, filter, opts...).Decode(&drive)
	if err != nil {
		return nil, err
	}
	return drive, nil
}

func (c *driveDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Drive, error) {
	var drives []models.Drive
	curr, err := c.db.Collection(driveName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &drives)
	if err != nil {
		return nil, err
	}
	return drives, nil
}

// FindPopulated resolves the participant references to each user's name and
// email, soonest drives first.
func (c *driveDatabase) FindPopulated(ctx context.Context, filter interface{}) ([]models.DrivePopulated, error) {
	pipeline := []bson.M{
		{"$match": filter},
		{"$sort": bson.M{"date": 1}},
		{"$lookup": bson.M{
			"from":         userName,
			"localField":   "participants",
			"foreignField": "_id",
			"as":           "participants",
		}},
		{"$project": bson.M{
			"participants.password":       0,
			"participants.joinedDrives":   0,
			"participants.reportedIssues": 0,
			"participants.violations":     0,
		}},
	}

	curr, err := c.db.Collection(driveName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)

	var drives []models.DrivePopulated
	if err := curr.All(ctx, &drives); err != nil {
		return nil, err
	}
	return drives, nil
}

func (c *driveDatabase) InsertOne(ctx context.Context, drive models.Drive, opts ...*options.InsertOneOptions) (interface{}, error) {
	return c.db.Collection(driveName).InsertOne(ctx, drive, opts...)
}

func (c *driveDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(driveName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *driveDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(driveName).UpdateMany(ctx, filter, update, opts...)
}
