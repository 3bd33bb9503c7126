package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/civichero/civichero-api/databases"
	"github.com/civichero/civichero-api/models"
)

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron *cron.Cron
	DDB  databases.DriveDatabase
}

// New creates a new scheduler instance
func New(dDB databases.DriveDatabase) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		DDB:  dDB,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Roll expired drives from upcoming to past daily at 00:10 UTC
	_, err := s.cron.AddFunc("10 0 * * *", s.rollDrives)
	if err != nil {
		zap.S().Errorw("failed to register drive rollover job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("drive scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("drive scheduler stopped")
}

func (s *Scheduler) rollDrives() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.RunDriveRollover(ctx); err != nil {
		zap.S().Errorw("drive rollover failed", "error", err)
	}
}

// RunDriveRollover marks upcoming drives whose date has passed as past.
func (s *Scheduler) RunDriveRollover(ctx context.Context) error {
	now := primitive.NewDateTimeFromTime(time.Now())
	filter := bson.M{
		"type": models.DriveTypeUpcoming,
		"date": bson.M{"$lt": now},
	}
	update := bson.M{"$set": bson.M{
		"type":      models.DriveTypePast,
		"updatedAt": now,
	}}

	result, err := s.DDB.UpdateMany(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.ModifiedCount > 0 {
		zap.S().Infow("rolled expired drives to past", "count", result.ModifiedCount)
	}
	return nil
}
