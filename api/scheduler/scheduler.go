package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
)

// overdueAfter is how long a bin may go uncollected before the sweep
// flags it for attention.
const overdueAfter = 48 * time.Hour

// Scheduler runs the periodic bin sweep that alerts admins about bins
// needing attention.
type Scheduler struct {
	cron     *cron.Cron
	BinDB    databases.BinDatabase
	UDB      databases.UserDatabase
	NDB      databases.NotificationDatabase
	cronSpec string
}

// New creates a scheduler; Start registers and begins the jobs
func New(binDB databases.BinDatabase, uDB databases.UserDatabase, nDB databases.NotificationDatabase, cronSpec string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		BinDB:    binDB,
		UDB:      uDB,
		NDB:      nDB,
		cronSpec: cronSpec,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	_, err := s.cron.AddFunc(s.cronSpec, s.sweepBins)
	if err != nil {
		zap.S().Errorw("failed to register bin sweep job", "error", err)
		return
	}
	s.cron.Start()
	zap.S().Infow("bin sweep scheduler started", "spec", s.cronSpec)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("bin sweep scheduler stopped")
}

// sweepBins finds bins that are full, overflowing or overdue for a
// collection and alerts every admin about them.
func (s *Scheduler) sweepBins() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := primitive.NewDateTimeFromTime(time.Now().UTC().Add(-overdueAfter))
	filter := bson.M{"$or": []bson.M{
		{"status": bson.M{"$in": []models.BinStatus{models.BinStatusFull, models.BinStatusOverflow}}},
		{"lastCollectedAt": bson.M{"$lt": cutoff}},
	}}

	bins, err := s.BinDB.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("bin sweep query failed", "error", err)
		return
	}
	if len(bins) == 0 {
		return
	}

	admins, err := s.UDB.Find(ctx, bson.M{"role": models.RoleAdmin})
	if err != nil {
		zap.S().Errorw("bin sweep admin lookup failed", "error", err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	for _, bin := range bins {
		message := fmt.Sprintf("Bin in zone %s needs attention (status: %s)", bin.Zone, bin.Status)
		binID := bin.ID
		for _, admin := range admins {
			notification := models.Notification{
				ID:              primitive.NewObjectID(),
				UserID:          admin.ID,
				Message:         message,
				Type:            models.NotificationAlert,
				RelatedEntity:   "bin",
				RelatedEntityID: &binID,
				CreatedAt:       now,
			}
			if _, err := s.NDB.InsertOne(ctx, notification); err != nil {
				zap.S().Errorw("bin sweep notification insert failed",
					"binId", bin.ID.Hex(),
					"error", err)
			}
		}
	}
	zap.S().Infow("bin sweep complete", "flagged", len(bins), "admins", len(admins))
}
