package consumer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// SaveToMongoDB replace-upserts each record as a document, with the
// record key as _id.
type SaveToMongoDB struct {
	client     *mongo.Client
	collection *mongo.Collection
	keyField   string
}

type mongoDBConfig struct {
	URI            string
	Database       string
	Collection     string
	KeyField       string
	ConnectTimeout time.Duration
}

func NewSaveToMongoDB(config map[string]interface{}) (*SaveToMongoDB, error) {
	dbConfig, err := parseMongoDBConfig(config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbConfig.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(dbConfig.URI)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	collection := client.Database(dbConfig.Database).Collection(dbConfig.Collection)

	log.Printf("[INFO] Connected to MongoDB database %s, collection %s",
		dbConfig.Database, dbConfig.Collection)

	return &SaveToMongoDB{
		client:     client,
		collection: collection,
		keyField:   dbConfig.KeyField,
	}, nil
}

func parseMongoDBConfig(config map[string]interface{}) (mongoDBConfig, error) {
	var dbConfig mongoDBConfig

	uri, ok := types.GetString(config, "uri")
	if !ok {
		return dbConfig, fmt.Errorf("missing 'uri' in MongoDB configuration")
	}
	dbConfig.URI = uri

	database, ok := types.GetString(config, "database")
	if !ok {
		return dbConfig, fmt.Errorf("missing 'database' in MongoDB configuration")
	}
	dbConfig.Database = database

	collection, ok := types.GetString(config, "collection")
	if !ok {
		return dbConfig, fmt.Errorf("missing 'collection' in MongoDB configuration")
	}
	dbConfig.Collection = collection

	keyField, ok := types.GetString(config, "key_field")
	if !ok {
		return dbConfig, fmt.Errorf("missing 'key_field' in MongoDB configuration")
	}
	dbConfig.KeyField = keyField

	timeout := 10
	if t, ok := types.GetInt(config, "connect_timeout_seconds"); ok {
		timeout = t
	}
	dbConfig.ConnectTimeout = time.Duration(timeout) * time.Second

	return dbConfig, nil
}

func (c *SaveToMongoDB) Name() string {
	return "SaveToMongoDB"
}

func (c *SaveToMongoDB) Load(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		key, err := recordKey(rec, c.keyField)
		if err != nil {
			return err
		}
		doc := bson.M{"_id": key}
		for k, v := range rec {
			doc[k] = v
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": key}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	result, err := c.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk write failed: %w", err)
	}

	log.Printf("[INFO] SaveToMongoDB upserted %d, modified %d documents",
		result.UpsertedCount, result.ModifiedCount)
	return nil
}

func (c *SaveToMongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}
