package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eduforge/gradex/internal/models"
)

const eventsCollection = "events"

// EventsRepository reads behavioral telemetry; the grading core never writes it
type EventsRepository struct {
	mongoRepo *MongoRepository
}

func NewEventsRepository(mongoRepo *MongoRepository) *EventsRepository {
	return &EventsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *EventsRepository) EventsBySubmission(ctx context.Context, submissionID string) ([]models.Event, error) {
	filter := bson.M{"submissionId": submissionID}
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}})

	cursor, err := r.mongoRepo.FindMany(ctx, eventsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}
