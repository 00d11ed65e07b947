package outcome

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PersistedOutcome is the durable record of one request's outcome metadata,
// kept independently of the archive itself so a caller can look up recent
// request status without re-downloading the gzipped tar.
type PersistedOutcome struct {
	RequestID string    `bson:"requestId" json:"request_id"`
	Tag       string    `bson:"tag" json:"tag"`
	Status    Status    `bson:"status" json:"status"`
	PDFFile   string    `bson:"pdfFile,omitempty" json:"pdf_file,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// Store persists and retrieves outcome metadata. MongoStore is the durable
// implementation; MemoryStore is the always-available fallback used when no
// OUTCOME_MONGODB_URI is configured.
type Store interface {
	Save(ctx context.Context, po *PersistedOutcome) error
	Load(ctx context.Context, requestID string) (*PersistedOutcome, error)
}

// NewStore returns a MongoStore when mongoURI is non-empty, else a
// MemoryStore, mirroring the teacher's document-service memory/Mongo split.
func NewStore(mongoURI, databaseName string) Store {
	if mongoURI == "" {
		return NewMemoryStore()
	}
	return &MongoStore{URI: mongoURI, Database: databaseName}
}

// MongoStore upserts outcome records into a "outcomes" collection, opening
// and closing a connection per call (request volume here is request-scale,
// not hot-path, so a pooled client is not needed).
type MongoStore struct {
	URI      string
	Database string
}

func (m *MongoStore) Save(ctx context.Context, po *PersistedOutcome) error {
	client, err := connectMongo(ctx, m.URI, 5*time.Second)
	if err != nil {
		return fmt.Errorf("outcome: connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)

	po.UpdatedAt = time.Now()
	col := client.Database(m.Database).Collection("outcomes")
	filter := bson.M{"requestId": po.RequestID}
	opts := options.Update().SetUpsert(true)
	if _, err := col.UpdateOne(ctx, filter, bson.M{"$set": po}, opts); err != nil {
		return fmt.Errorf("outcome: save: %w", err)
	}
	return nil
}

func (m *MongoStore) Load(ctx context.Context, requestID string) (*PersistedOutcome, error) {
	client, err := connectMongo(ctx, m.URI, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("outcome: connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)

	col := client.Database(m.Database).Collection("outcomes")
	var po PersistedOutcome
	if err := col.FindOne(ctx, bson.M{"requestId": requestID}).Decode(&po); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &po, nil
}

func connectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}
