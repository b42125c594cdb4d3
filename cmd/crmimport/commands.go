package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/config"
	"github.com/David-Botos/crm-import/pkg/connector"
	"github.com/David-Botos/crm-import/pkg/converter"
	"github.com/David-Botos/crm-import/pkg/importer"
	"github.com/David-Botos/crm-import/pkg/ingest"
	"github.com/David-Botos/crm-import/pkg/logging"
	"github.com/David-Botos/crm-import/pkg/model"
	"github.com/David-Botos/crm-import/pkg/store"
)

// importFlags are shared by every import subcommand
type importFlags struct {
	envFile      string
	driver       string
	sqlitePath   string
	logLevel     string
	logFormat    string
	source       string
	mappingFile  string
	skipFirstRow bool
	keep         bool
	verify       bool
	showMetrics  bool
}

func newRootCmd() *cobra.Command {
	flags := &importFlags{}

	root := &cobra.Command{
		Use:   "crmimport",
		Short: "Bulk-import CRM records from delimited files",
		Long: `crmimport reads a CSV file and stores every row as a contact, opportunity
or project, creating and linking tags along the way.

Examples:
  crmimport contacts export.csv --source capsule
  crmimport opportunities deals.csv --mapping deals.yaml --skip-first-row
  crmimport projects projects.csv --source capsule --keep --verify`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env", "", "Env file to load instead of ./.env")
	pf.StringVar(&flags.driver, "db-driver", "", "Storage driver (sqlite|postgres), overrides DB_DRIVER")
	pf.StringVar(&flags.sqlitePath, "sqlite-path", "", "SQLite database file, overrides SQLITE_PATH")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level, overrides LOG_LEVEL")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format (json|console), overrides LOG_FORMAT")
	pf.StringVar(&flags.source, "source", string(converter.SourceCustom), "Column layout (capsule|custom)")
	pf.StringVar(&flags.mappingFile, "mapping", "", "YAML or JSON field-to-column mapping for custom sources")
	pf.BoolVar(&flags.skipFirstRow, "skip-first-row", false, "Discard the first data row")
	pf.BoolVar(&flags.keep, "keep", false, "Keep the input file after a completed import")
	pf.BoolVar(&flags.verify, "verify", false, "Print a storage verification report after importing")
	pf.BoolVar(&flags.showMetrics, "metrics", false, "Print the run metrics report to stderr")

	for _, kind := range model.Kinds() {
		root.AddCommand(newImportCmd(kind, flags))
	}
	return root
}

func newImportCmd(kind model.Kind, flags *importFlags) *cobra.Command {
	md, _ := kind.Metadata()
	return &cobra.Command{
		Use:   md.Table + " FILE",
		Short: fmt.Sprintf("Import %s from a CSV file", md.Table),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), kind, args[0], flags)
		},
	}
}

func loadConfig(flags *importFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.envFile != "" {
		cfg, err = config.LoadConfigFile(flags.envFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	if flags.driver != "" {
		if err := cfg.UseDriver(config.Driver(flags.driver)); err != nil {
			return nil, err
		}
	}
	if flags.sqlitePath != "" {
		if cfg.SQLite == nil {
			return nil, errors.New("--sqlite-path requires the sqlite driver")
		}
		cfg.SQLite.Path = flags.sqlitePath
	}

	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.LogFormat = flags.logFormat
	}
	return cfg, cfg.Validate()
}

func loadMapping(path string) (converter.Mapping, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open mapping")
	}
	defer f.Close()
	return converter.LoadMapping(f)
}

func runImport(ctx context.Context, stdout, stderr io.Writer, kind model.Kind, path string, flags *importFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logging.Install(logger)()
	defer logger.Sync()

	source, err := converter.ParseSource(flags.source)
	if err != nil {
		return err
	}
	mapping, err := loadMapping(flags.mappingFile)
	if err != nil {
		return err
	}

	conn, err := connector.NewConnectorFactory(cfg, logger).Create(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.Validate(ctx); err != nil {
		return err
	}

	st, err := store.New(conn.DB(), conn.DriverName(), logger)
	if err != nil {
		return err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	upload, err := ingest.OpenUpload(path)
	if err != nil {
		return err
	}
	defer upload.Close()

	var input io.Reader = upload
	if flags.keep {
		// Hide Remove so the importer leaves the file in place
		input = struct{ io.Reader }{upload}
	}

	im := importer.New(st, logger, importer.Options{
		QueueCapacity: cfg.QueueCapacity,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	})
	result, metrics, err := im.ImportWithMetrics(ctx, importer.Request{
		Kind:         kind,
		Source:       source,
		SkipFirstRow: flags.skipFirstRow,
		Mapping:      mapping,
		Input:        input,
	})
	if flags.showMetrics && metrics != nil {
		fmt.Fprint(stderr, metrics.Report())
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode result")
	}
	fmt.Fprintln(stdout, string(out))

	if flags.verify {
		report, err := st.Verify(ctx, kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "%s: %d stored, %d tag links, %d integrity issues\n",
			kind, report.EntityCount, report.LinkCount, len(report.IntegrityIssues))
		for _, issue := range report.IntegrityIssues {
			logger.Warn("Integrity issue",
				zap.String("type", issue.IssueType),
				zap.String("description", issue.Description),
				zap.Int64("rows", issue.AffectedRows))
		}
	}
	return nil
}
