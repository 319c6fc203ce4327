// Package container starts throwaway infrastructure for integration tests.
package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultMongoImage = "mongo:7"

// Mongo is a running MongoDB container with a connected client.
type Mongo struct {
	container *mongodb.MongoDBContainer
	Client    *mongo.Client
	URI       string
}

// MongoOption configures StartMongo.
type MongoOption func(*mongoOptions)

type mongoOptions struct {
	image      string
	replicaSet string
}

// WithMongoImage overrides the default mongo:7 image.
func WithMongoImage(image string) MongoOption {
	return func(o *mongoOptions) {
		o.image = image
	}
}

// WithReplicaSet starts mongod as a single node replica set.
func WithReplicaSet(name string) MongoOption {
	return func(o *mongoOptions) {
		o.replicaSet = name
	}
}

// StartMongo starts a container and waits until it answers a ping.
func StartMongo(ctx context.Context, opts ...MongoOption) (*Mongo, error) {
	o := &mongoOptions{image: defaultMongoImage}
	for _, opt := range opts {
		opt(o)
	}

	var customizers []testcontainers.ContainerCustomizer
	if o.replicaSet != "" {
		customizers = append(customizers, mongodb.WithReplicaSet(o.replicaSet))
	}

	c, err := mongodb.Run(ctx, o.image, customizers...)
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}
	m := &Mongo{container: c}

	m.URI, err = c.ConnectionString(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to get connection string: %w", err), m.Terminate(ctx))
	}

	m.Client, err = mongo.Connect(options.Client().ApplyURI(m.URI))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect to mongodb: %w", err), m.Terminate(ctx))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Client.Ping(pingCtx, nil); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to ping mongodb: %w", err), m.Terminate(ctx))
	}

	return m, nil
}

// Seed inserts docs into database.collection.
func (m *Mongo) Seed(ctx context.Context, database, collection string, docs ...any) error {
	if _, err := m.Client.Database(database).Collection(collection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed %s.%s: %w", database, collection, err)
	}
	return nil
}

// Terminate disconnects the client and removes the container.
func (m *Mongo) Terminate(ctx context.Context) error {
	var errs []error
	if m.Client != nil {
		if err := m.Client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect from mongodb: %w", err))
		}
	}
	if m.container != nil {
		if err := testcontainers.TerminateContainer(m.container); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate mongodb container: %w", err))
		}
	}
	return errors.Join(errs...)
}
