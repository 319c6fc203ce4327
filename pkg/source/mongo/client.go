package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/core/logger"
)

// Cursor iterates query results. *mongo.Cursor implements it.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// DocumentSource opens a cursor over the documents to export.
type DocumentSource interface {
	Documents(ctx context.Context) (Cursor, error)
}

// Client owns the driver connection. Commands are traced through otelmongo.
type Client struct {
	client   *mongodriver.Client
	database *mongodriver.Database
	conf     Config
	log      *zap.Logger
}

// NewClient creates the driver client. No network round trip happens until
// Connect.
func NewClient(log *zap.Logger, conf Config, appName string) (*Client, error) {
	opts := options.Client().
		ApplyURI(conf.URI()).
		SetServerSelectionTimeout(conf.ServerSelectTimeout).
		SetMonitor(otelmongo.NewMonitor())
	if appName != "" {
		opts.SetAppName(appName)
	}

	client, err := mongodriver.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	return &Client{
		client:   client,
		database: client.Database(conf.Database),
		conf:     conf,
		log:      log,
	}, nil
}

// Connect pings the server.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.conf.ConnectTimeout)
	defer cancel()

	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}

	c.log.Info("connected to mongo",
		zap.String("database", c.conf.Database),
		zap.String("collection", c.conf.Collection),
		zap.Int32("batch-size", c.conf.BatchSize),
	)
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.conf.ConnectTimeout)
	defer cancel()

	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	c.log.Info("disconnected from mongo")
	return nil
}

// Documents runs the configured query, sorted by _id, against the
// configured collection.
func (c *Client) Documents(ctx context.Context) (Cursor, error) {
	filter, err := c.conf.filter()
	if err != nil {
		return nil, err
	}

	findCtx, cancel := context.WithTimeout(ctx, c.conf.QueryTimeout)
	defer cancel()

	opts := options.Find().
		SetBatchSize(c.conf.BatchSize).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	logger.Get(ctx).Debug("querying collection",
		zap.String("database", c.conf.Database),
		zap.String("collection", c.conf.Collection),
		zap.Int32("batchSize", c.conf.BatchSize),
	)
	cur, err := c.database.Collection(c.conf.Collection).Find(findCtx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s.%s: %w", c.conf.Database, c.conf.Collection, err)
	}
	return cur, nil
}
