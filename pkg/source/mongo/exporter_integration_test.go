package mongo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/target"
	"github.com/Sokol111/avropipe/pkg/testutil/container"
)

func TestExporter_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Given
	ctx := context.Background()
	mongoContainer, err := container.StartMongo(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongoContainer.Terminate(context.Background()) })

	require.NoError(t, mongoContainer.Seed(ctx, "shop", "orders",
		bson.D{{Key: "_id", Value: int64(1)}, {Key: "status", Value: "paid"}, {Key: "total", Value: 10.5}},
		bson.D{{Key: "_id", Value: int64(2)}, {Key: "status", Value: "new"}, {Key: "total", Value: 3.0}},
		bson.D{{Key: "_id", Value: int64(3)}, {Key: "status", Value: "paid"}, {Key: "total", Value: 7.25}},
	))

	conf := Config{
		ConnectionString: mongoContainer.URI,
		Database:         "shop",
		Collection:       "orders",
		Filter:           `{"status": "paid"}`,
		BatchSize:        1,
	}
	conf.applyDefaults()
	require.NoError(t, conf.Validate())

	client, err := NewClient(zap.NewNop(), conf, "avropipe-test")
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	out := target.NewLocalTarget(filepath.Join(t.TempDir(), "orders.avro"))
	exporter := NewExporter(client, avro.NewFormat(), out, zap.NewNop())

	// When
	err = exporter.Run(ctx)

	// Then
	require.NoError(t, err)
	r, err := out.OpenReader(avro.NewFormat())
	require.NoError(t, err)
	defer r.Close()
	recs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, map[string]any{"_id": int64(1), "status": "paid", "total": 10.5}, recs[0].Map())
	assert.Equal(t, int64(3), recs[1].Map()["_id"])
}
