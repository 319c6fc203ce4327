package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/core"
	"github.com/Sokol111/avropipe/pkg/core/worker"
	"github.com/Sokol111/avropipe/pkg/observability"
	"github.com/Sokol111/avropipe/pkg/sink/kafka"
	"github.com/Sokol111/avropipe/pkg/source/mongo"
	"github.com/Sokol111/avropipe/pkg/target"
)

const readyTimeout = 2 * time.Minute

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out, collection string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a MongoDB collection into an Avro file",
		Long: `Export a MongoDB collection into an Avro file.

The connection, database, filter and schema come from the "mongo" and
"avro" configuration sections. Documents that do not fit the schema are
skipped and logged.

Example:
  avropipe export --config config.yaml --out orders.avro --collection orders`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mongoOpts []mongo.Option
			if collection != "" {
				mongoOpts = append(mongoOpts, mongo.WithCollection(collection))
			}
			return opts.runApp(cmd.Context(),
				fx.Supply(target.NewLocalTarget(out)),
				mongo.NewExporterModule(mongoOpts...),
				fx.Invoke(worker.Register[*mongo.Exporter]("export", worker.WithReady(readyTimeout), worker.WithShutdown())),
			)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Avro output file (required)")
	cmd.Flags().StringVar(&collection, "collection", "", "Collection to export (overrides mongo.collection)")

	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var in, topic string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the records of an Avro file to Kafka",
		Long: `Publish the records of an Avro file to Kafka.

Brokers, framing and the schema registry come from the "kafka"
configuration section. The command fails on the first record that is not
delivered.

Example:
  avropipe publish --config config.yaml --in orders.avro --topic orders`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var kafkaOpts []kafka.Option
			if topic != "" {
				kafkaOpts = append(kafkaOpts, kafka.WithTopic(topic))
			}
			return opts.runApp(cmd.Context(), publishModule(in, kafkaOpts...))
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Avro input file (required)")
	cmd.Flags().StringVar(&topic, "topic", "", "Destination topic (overrides kafka.topic)")

	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func publishModule(in string, opts ...kafka.Option) fx.Option {
	return fx.Options(
		fx.Supply(target.NewLocalTarget(in)),
		kafka.NewPublisherModule(opts...),
		fx.Invoke(worker.Register[*kafka.Publisher]("publish", worker.WithReady(readyTimeout), worker.WithShutdown())),
	)
}

func (o *rootOptions) coreOptions() []core.Option {
	var coreOpts []core.Option
	if o.configFile != "" {
		coreOpts = append(coreOpts, core.WithConfigFile(o.configFile))
	}
	if o.verbose {
		coreOpts = append(coreOpts, core.WithLoggerConfig(o.loggerConfig()))
	}
	return coreOpts
}

// runApp starts an application around the given worker options and blocks
// until the worker shuts it down or ctx is canceled.
func (o *rootOptions) runApp(ctx context.Context, workerOpts ...fx.Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return execute(ctx, append([]fx.Option{core.NewCoreModule(o.coreOptions()...)}, workerOpts...)...)
}

func execute(ctx context.Context, opts ...fx.Option) error {
	result := &worker.Result{}
	app := fx.New(
		fx.Options(opts...),
		observability.NewObservabilityModule(),
		avro.NewFormatModule(),
		fx.Supply(result),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	var sig fx.ShutdownSignal
	select {
	case sig = <-app.Wait():
	case <-ctx.Done():
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	stopErr := app.Stop(stopCtx)

	if err := result.Err(); err != nil {
		return err
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("exited with code %d", sig.ExitCode)
	}
	return stopErr
}
