package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	"github.com/spec-kit/ticket-analytics/internal/config"
	"github.com/spec-kit/ticket-analytics/internal/ingest"
	"github.com/spec-kit/ticket-analytics/internal/observability"
)

// Version is set at build time via ldflags.
var Version = "dev"

type options struct {
	verbose       bool
	rulesFile     string
	encoding      string
	unknownBreach string
}

// toolkit is what every subcommand needs once flags are parsed.
type toolkit struct {
	logger     *zap.Logger
	normalizer *ingest.Normalizer
	engine     *analytics.Engine
	encoding   string
}

func (o *options) toolkit() (*toolkit, error) {
	rules, err := config.LoadRules(o.rulesFile)
	if err != nil {
		return nil, err
	}
	if o.encoding != "" {
		if _, ok := ingest.CanonicalEncoding(o.encoding); !ok {
			return nil, fmt.Errorf("unknown encoding %q", o.encoding)
		}
	}
	switch analytics.BreachPolicy(o.unknownBreach) {
	case analytics.UnknownAsCompliant, analytics.UnknownAsBreached:
	default:
		return nil, fmt.Errorf("--unknown-breach must be %q or %q", analytics.UnknownAsCompliant, analytics.UnknownAsBreached)
	}
	return &toolkit{
		logger:     observability.NewCLILogger(o.verbose),
		normalizer: ingest.NewNormalizer(rules.IngestOptions()),
		engine:     analytics.NewEngine(rules.Policy(o.unknownBreach)),
		encoding:   o.encoding,
	}, nil
}

// NewRootCommand builds the ticketctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:     "ticketctl",
		Short:   "Offline analysis of GLPI ticket exports",
		Version: Version,
		Long: `ticketctl runs the same normalization and analytics as the API server against
local CSV exports, without a database or cache.`,
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")
	flags.StringVar(&opts.rulesFile, "rules", "", "YAML file overriding aliases, vocabularies and estimates")
	flags.StringVar(&opts.encoding, "encoding", "", "encoding to try before the configured order")
	flags.StringVar(&opts.unknownBreach, "unknown-breach", string(analytics.UnknownAsCompliant),
		"how incidents without a breach flag count toward SLA (compliant or breached)")

	root.AddCommand(
		newAnalyzeCommand(opts),
		newValidateCommand(opts),
		newExportCommand(opts),
		newSampleCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
