package mongo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Config is the "mongo" configuration section.
type Config struct {
	ConnectionString string `mapstructure:"connection-string"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	ReplicaSet       string `mapstructure:"replica-set"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Database         string `mapstructure:"database"`
	Collection       string `mapstructure:"collection"`
	DirectConnection bool   `mapstructure:"direct-connection"`

	// Filter is an extended JSON query document, e.g. {"status": "paid"}.
	Filter    string `mapstructure:"filter"`
	BatchSize int32  `mapstructure:"batch-size"`

	ConnectTimeout      time.Duration `mapstructure:"connect-timeout"`
	ServerSelectTimeout time.Duration `mapstructure:"server-select-timeout"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout"`
}

func newConfig(v *viper.Viper) (Config, error) {
	return (&moduleOptions{}).load(v)
}

func (c *Config) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 500
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ServerSelectTimeout == 0 {
		c.ServerSelectTimeout = 30 * time.Second
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.ConnectionString == "" && (c.Host == "" || c.Port == 0) {
		errs = append(errs, errors.New("either connection-string or host and port must be set"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if c.Collection == "" {
		errs = append(errs, errors.New("collection is required"))
	}
	if c.BatchSize < 0 {
		errs = append(errs, errors.New("batch-size must not be negative"))
	}
	if _, err := c.filter(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) filter() (bson.D, error) {
	if strings.TrimSpace(c.Filter) == "" {
		return bson.D{}, nil
	}
	var filter bson.D
	if err := bson.UnmarshalExtJSON([]byte(c.Filter), false, &filter); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return filter, nil
}

// URI returns ConnectionString, or a URI assembled from the host fields.
func (c Config) URI() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}

	auth := ""
	if c.Username != "" {
		auth = fmt.Sprintf("%s:%s@", c.Username, c.Password)
	}
	uri := fmt.Sprintf("mongodb://%s%s:%d/%s", auth, c.Host, c.Port, c.Database)

	var params []string
	if c.ReplicaSet != "" {
		params = append(params, "replicaSet="+c.ReplicaSet)
	}
	if c.DirectConnection {
		params = append(params, "directConnection=true")
	}
	if len(params) > 0 {
		uri += "?" + strings.Join(params, "&")
	}
	return uri
}
