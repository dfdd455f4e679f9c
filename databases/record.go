package databases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/models"
)

const (
	recordName   = "records"
	logName      = "logs"
	evidenceName = "evidence"
)

// logDocument is a LogEntry as stored in the logs collection
type logDocument struct {
	RecordID        string `bson:"recordId"`
	models.LogEntry `bson:",inline"`
}

// RecordDatabase keeps custody records in three collections: records keyed
// by record id, and logs and evidence keyed by recordId.
type RecordDatabase struct {
	db           DatabaseHelper
	transactions bool
}

var _ custody.Store = (*RecordDatabase)(nil)

// NewRecordDatabase initializes a new instance of record database with the provided db connection.
// transactions must be false when the server is a standalone mongod.
func NewRecordDatabase(db DatabaseHelper, transactions bool) *RecordDatabase {
	return &RecordDatabase{
		db:           db,
		transactions: transactions,
	}
}

// EnsureIndexes creates the indexes the store relies on. The unique
// (recordId, id) index is what rejects a reused log id.
func (c *RecordDatabase) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{logName, mongo.IndexModel{
			Keys:    bson.D{{Key: "recordId", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{logName, mongo.IndexModel{Keys: bson.D{{Key: "recordId", Value: 1}, {Key: "timestamp", Value: 1}}}},
		{recordName, mongo.IndexModel{Keys: bson.D{{Key: "isArchived", Value: 1}, {Key: "dateTimeDetained", Value: -1}}}},
		{evidenceName, mongo.IndexModel{Keys: bson.D{{Key: "recordId", Value: 1}, {Key: "uploadedAt", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := c.db.Collection(idx.collection).CreateIndex(ctx, idx.model); err != nil {
			return fmt.Errorf("index %s: %w", idx.collection, err)
		}
	}
	return nil
}

// WithTransaction runs fn inside a session transaction. Nested calls join
// the outer session.
func (c *RecordDatabase) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := c.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// RecordExists reports whether a record document with id exists
func (c *RecordDatabase) RecordExists(ctx context.Context, id string) (bool, error) {
	n, err := c.db.Collection(recordName).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindRecord returns the record document
func (c *RecordDatabase) FindRecord(ctx context.Context, id string) (*models.Record, error) {
	rec := &models.Record{}
	err := c.db.Collection(recordName).FindOne(ctx, bson.M{"_id": id}).Decode(rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, custody.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// InsertRecord inserts the record document
func (c *RecordDatabase) InsertRecord(ctx context.Context, rec models.Record) error {
	_, err := c.db.Collection(recordName).InsertOne(ctx, rec)
	return translate(err)
}

// PatchRecord sets the given fields on one record
func (c *RecordDatabase) PatchRecord(ctx context.Context, id string, fields map[string]interface{}) error {
	return c.set(ctx, id, bson.M(fields))
}

// SetArchived marks one record archived
func (c *RecordDatabase) SetArchived(ctx context.Context, id string) error {
	return c.set(ctx, id, bson.M{"isArchived": true})
}

func (c *RecordDatabase) set(ctx context.Context, id string, fields bson.M) error {
	res, err := c.db.Collection(recordName).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return custody.ErrNotFound
	}
	return nil
}

// InsertLog appends one audit entry
func (c *RecordDatabase) InsertLog(ctx context.Context, recordID string, entry models.LogEntry) error {
	_, err := c.db.Collection(logName).InsertOne(ctx, logDocument{RecordID: recordID, LogEntry: entry})
	return translate(err)
}

// InsertEvidence registers an uploaded file
func (c *RecordDatabase) InsertEvidence(ctx context.Context, ev models.Evidence) error {
	_, err := c.db.Collection(evidenceName).InsertOne(ctx, ev)
	return err
}

// ActiveRecords returns every non-archived record, most recent detention first
func (c *RecordDatabase) ActiveRecords(ctx context.Context) ([]models.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dateTimeDetained", Value: -1}, {Key: "_id", Value: 1}})
	recs := []models.Record{}
	if err := c.findAll(ctx, recordName, bson.M{"isArchived": false}, &recs, opts); err != nil {
		return nil, err
	}
	return recs, nil
}

// LogsFor returns the audit entries of the given records, oldest first
func (c *RecordDatabase) LogsFor(ctx context.Context, recordIDs []string) (map[string][]models.LogEntry, error) {
	out := make(map[string][]models.LogEntry, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}
	// _id is an ObjectID, so it breaks timestamp ties in insertion order
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	var docs []logDocument
	if err := c.findAll(ctx, logName, bson.M{"recordId": bson.M{"$in": recordIDs}}, &docs, opts); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		doc.Timestamp = doc.Timestamp.UTC()
		out[doc.RecordID] = append(out[doc.RecordID], doc.LogEntry)
	}
	return out, nil
}

// EvidenceFor returns the file registrations of the given records in upload order
func (c *RecordDatabase) EvidenceFor(ctx context.Context, recordIDs []string) (map[string][]models.Evidence, error) {
	out := make(map[string][]models.Evidence, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: 1}, {Key: "_id", Value: 1}})
	var docs []models.Evidence
	if err := c.findAll(ctx, evidenceName, bson.M{"recordId": bson.M{"$in": recordIDs}}, &docs, opts); err != nil {
		return nil, err
	}
	for _, ev := range docs {
		ev.UploadedAt = ev.UploadedAt.UTC()
		out[ev.RecordID] = append(out[ev.RecordID], ev)
	}
	return out, nil
}

// Ping checks the server is reachable within timeout
func (c *RecordDatabase) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Client().Ping(ctx)
}

func (c *RecordDatabase) findAll(ctx context.Context, collection string, filter interface{}, results interface{}, opts ...*options.FindOptions) error {
	curr, err := c.db.Collection(collection).Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer curr.Close(ctx)
	return curr.All(ctx, results)
}

func translate(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", custody.ErrDuplicate, err)
	}
	return err
}
