package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/policy-admin/internal/core"
)

const colStreams = "quote_streams"

// EventStoreMongo keeps one document per event and a stream head per
// aggregate. The head's compare-and-set and the event inserts run in one
// transaction, so the server must be a replica set.
type EventStoreMongo struct {
	events    *mongodrv.Collection
	streams   *mongodrv.Collection
	opTimeout time.Duration
}

func NewEventStore(db *mongodrv.Database, opTimeout time.Duration) *EventStoreMongo {
	return &EventStoreMongo{
		events:    db.Collection(ColEvents),
		streams:   db.Collection(colStreams),
		opTimeout: opTimeout,
	}
}

func eventDocID(aggregateID string, sequence int) string {
	return fmt.Sprintf("%s:%010d", aggregateID, sequence)
}

func (s *EventStoreMongo) Load(ctx context.Context, tenantID, aggregateID string) ([]core.EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	cur, err := s.events.Find(ctx,
		bson.M{"aggregate_id": aggregateID},
		options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("quote_events.find: %w", err)
	}
	defer cur.Close(ctx)

	var records []core.EventRecord
	for cur.Next(ctx) {
		var doc EventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("quote_events.decode: %w", err)
		}
		records = append(records, fromEventDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("quote_events.cursor: %w", err)
	}
	return records, nil
}

func (s *EventStoreMongo) Append(ctx context.Context, tenantID, aggregateID string, expectedVersion int, records []core.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	sess, err := s.events.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("quote_events.session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongodrv.SessionContext) (any, error) {
		return nil, s.appendTx(sc, tenantID, aggregateID, expectedVersion, records)
	})
	return err
}

// appendTx moves the stream head and writes the events. Both writes commit or
// neither does, so a failed insert leaves the head at expectedVersion.
func (s *EventStoreMongo) appendTx(sc mongodrv.SessionContext, tenantID, aggregateID string, expectedVersion int, records []core.EventRecord) error {
	next := expectedVersion + len(records)
	if expectedVersion == 0 {
		_, err := s.streams.InsertOne(sc, bson.M{"_id": aggregateID, "tenant_id": tenantID, "version": next})
		if err != nil {
			if isDuplicateKey(err) {
				return core.ErrEventStreamConflict
			}
			return fmt.Errorf("quote_streams.insert: %w", err)
		}
	} else {
		res, err := s.streams.UpdateOne(sc,
			bson.M{"_id": aggregateID, "version": expectedVersion},
			bson.M{"$set": bson.M{"version": next}})
		if err != nil {
			return fmt.Errorf("quote_streams.update: %w", err)
		}
		if res.MatchedCount == 0 {
			return core.ErrEventStreamConflict
		}
	}

	docs := make([]any, 0, len(records))
	for _, r := range records {
		docs = append(docs, toEventDoc(r))
	}
	if _, err := s.events.InsertMany(sc, docs); err != nil {
		if isDuplicateKey(err) {
			return core.ErrEventStreamConflict
		}
		return fmt.Errorf("quote_events.insertMany: %w", err)
	}
	return nil
}
