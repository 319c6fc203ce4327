package kafka

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	// Arrange
	v := viper.New()
	v.Set("kafka.brokers", "kafka:9092")
	v.Set("kafka.topic", "orders")
	v.Set("kafka.framing", "confluent")
	v.Set("kafka.schema-registry.url", "http://registry:8081")

	// Act
	cfg, err := newConfig(v)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "avropipe", cfg.ClientID)
	assert.Equal(t, FramingConfluent, cfg.Framing)
	assert.Equal(t, "http://registry:8081", cfg.SchemaRegistry.URL)
	assert.Equal(t, 15*time.Second, cfg.FlushTimeout)
	assert.Equal(t, uint64(5), cfg.MaxRetries)
	assert.Equal(t, 30, cfg.ReadinessTimeoutSeconds)
}

func TestModuleOptions_TopicOverride(t *testing.T) {
	// Arrange
	o := &moduleOptions{}
	WithConfig(Config{Brokers: "kafka:9092", Topic: "orders"})(o)
	WithTopic("refunds")(o)

	// Act
	cfg, err := o.load(viper.New())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "refunds", cfg.Topic)
	assert.Equal(t, FramingSingleObject, cfg.Framing)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{Brokers: "b", Topic: "t", Framing: FramingSingleObject}},
		{name: "missing brokers", cfg: Config{Topic: "t", Framing: FramingSingleObject}, wantErr: "brokers is required"},
		{name: "missing topic", cfg: Config{Brokers: "b", Framing: FramingSingleObject}, wantErr: "topic is required"},
		{name: "unknown framing", cfg: Config{Brokers: "b", Topic: "t", Framing: "raw"}, wantErr: `unknown framing "raw"`},
		{name: "confluent without registry", cfg: Config{Brokers: "b", Topic: "t", Framing: FramingConfluent}, wantErr: "schema-registry.url"},
		{name: "readiness out of range", cfg: Config{Brokers: "b", Topic: "t", Framing: FramingSingleObject, ReadinessTimeoutSeconds: 601}, wantErr: "readiness-timeout-seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
