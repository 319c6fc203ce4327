package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/recordjson"
	"github.com/Sokol111/avropipe/pkg/target"
)

var errNoRecords = errors.New("input holds no records")

func newCatCmd(opts *rootOptions) *cobra.Command {
	var (
		limit      int
		showSchema bool
	)

	cmd := &cobra.Command{
		Use:   "cat FILE",
		Short: "Print the records of an Avro file as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runCat(cmd.OutOrStdout(), args[0], limit, showSchema, log)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", -1, "Print at most N records (negative prints all)")
	cmd.Flags().BoolVar(&showSchema, "schema", false, "Print the writer schema before the records")

	return cmd
}

func runCat(out io.Writer, path string, limit int, showSchema bool, log *zap.Logger) error {
	format := avro.NewFormat(avro.WithReaderOptions(avro.WithReaderLogger(log)))
	r, err := target.NewLocalTarget(path).OpenReader(format)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	if showSchema && r.Schema() != nil {
		doc, err := r.Schema().JSON()
		if err != nil {
			return fmt.Errorf("failed to render schema: %w", err)
		}
		if _, err := fmt.Fprintln(out, string(doc)); err != nil {
			return err
		}
	}

	w := recordjson.NewWriter(out)
	for limit < 0 || r.Count() < int64(limit) {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func newSchemaCmd() *cobra.Command {
	var canonical bool

	cmd := &cobra.Command{
		Use:   "schema FILE",
		Short: "Print the writer schema of an Avro file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd.OutOrStdout(), args[0], canonical)
		},
	}

	cmd.Flags().BoolVar(&canonical, "canonical", false, "Print the parsing canonical form")

	return cmd
}

func runSchema(out io.Writer, path string, canonical bool) error {
	r, err := target.NewLocalTarget(path).OpenReader(avro.NewFormat())
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	if r.Schema() == nil {
		return errNoRecords
	}
	return printSchema(out, r.Schema(), canonical)
}

func printSchema(out io.Writer, s *avro.Schema, canonical bool) error {
	doc := s.String()
	if !canonical {
		raw, err := s.JSON()
		if err != nil {
			return fmt.Errorf("failed to render schema: %w", err)
		}
		doc = string(raw)
	}
	_, err := fmt.Fprintln(out, doc)
	return err
}

type inferFlags struct {
	name      string
	namespace string
}

func (f *inferFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", avro.DefaultRecordName, "Record name of an inferred schema")
	cmd.Flags().StringVar(&f.namespace, "namespace", "", "Namespace of an inferred schema")
}

func (f *inferFlags) options() []avro.InferOption {
	return []avro.InferOption{avro.WithRecordName(f.name), avro.WithNamespace(f.namespace)}
}

func newInferCmd() *cobra.Command {
	var flags inferFlags

	cmd := &cobra.Command{
		Use:   "infer [FILE]",
		Short: "Infer a schema from the first record of a JSON lines file",
		Long: `Infer a schema from the first record of a JSON lines file.

Reads standard input when FILE is omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closeIn()
			return runInfer(cmd.OutOrStdout(), in, flags.options())
		},
	}

	flags.register(cmd)

	return cmd
}

func runInfer(out io.Writer, in io.Reader, opts []avro.InferOption) error {
	rec, err := recordjson.NewReader(in).Next()
	if errors.Is(err, io.EOF) {
		return errNoRecords
	}
	if err != nil {
		return err
	}
	s, err := avro.InferSchema(rec, opts...)
	if err != nil {
		return err
	}
	return printSchema(out, s, false)
}

func newConvertCmd(opts *rootOptions) *cobra.Command {
	var (
		in, out, schemaFile, codec string
		flags                      inferFlags
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Write JSON lines into an Avro container file",
		Long: `Write JSON lines into an Avro container file.

Without --schema the schema is inferred from the first record and every
later record must match it. The output only appears once every record was
written.

Example:
  avropipe convert --in orders.jsonl --out orders.avro --codec deflate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			format, err := convertFormat(schemaFile, codec, flags.options(), log)
			if err != nil {
				return err
			}

			src, closeIn, err := openInput(cmd, []string{in})
			if err != nil {
				return err
			}
			defer closeIn()

			n, err := runConvert(src, target.NewLocalTarget(out), format)
			if err != nil {
				return err
			}
			log.Info("conversion finished", zap.String("output", out), zap.Int64("records", n))
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "-", "JSON lines input (- reads standard input)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Avro output file (required)")
	cmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "Schema file (.avsc); inferred when omitted")
	cmd.Flags().StringVar(&codec, "codec", "null", "Block codec: null, deflate, snappy or zstandard")
	flags.register(cmd)

	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func convertFormat(schemaFile, codecName string, inferOpts []avro.InferOption, log *zap.Logger) (*avro.Format, error) {
	codec, err := avro.ParseCodec(codecName)
	if err != nil {
		return nil, err
	}

	formatOpts := []avro.FormatOption{avro.WithWriterOptions(
		avro.WithCodec(codec),
		avro.WithInference(inferOpts...),
		avro.WithWriterLogger(log),
	)}
	if schemaFile != "" {
		s, err := avro.LoadSchemaFile(schemaFile)
		if err != nil {
			return nil, err
		}
		formatOpts = append(formatOpts, avro.WithSchema(s))
	}
	return avro.NewFormat(formatOpts...), nil
}

// runConvert writes every record of in to out. On failure nothing is
// left at the output path.
func runConvert(in io.Reader, out *target.LocalTarget, format *avro.Format) (int64, error) {
	src := recordjson.NewReader(in)
	if err := target.CheckCompatible(src, format); err != nil {
		return 0, err
	}

	w, file, err := out.CreateWriter(format)
	if err != nil {
		return 0, err
	}

	for rec, err := range src.All() {
		if err == nil {
			err = w.Write(rec)
		}
		if err != nil {
			return 0, errors.Join(fmt.Errorf("record %d: %w", w.Count()+1, err), file.Discard())
		}
	}

	if !w.Bound() {
		return 0, errors.Join(errNoRecords, file.Discard(), w.Close())
	}
	if err := w.Close(); err != nil {
		return 0, errors.Join(err, file.Discard())
	}
	return w.Count(), nil
}

// openInput opens args[0], or standard input when it is missing or "-".
func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" || args[0] == "" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	return f, func() { _ = f.Close() }, nil
}
