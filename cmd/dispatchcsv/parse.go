package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/dispatch/internal/config"
	"github.com/JonMunkholm/dispatch/internal/core"
	"github.com/JonMunkholm/dispatch/internal/dispatch"
	"github.com/JonMunkholm/dispatch/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// exitCodeRowErrors is returned by --fail-on-error when rows were rejected.
const exitCodeRowErrors = 2

type parseOptions struct {
	existing    string
	format      string
	columns     string
	delimiter   string
	strictTime  bool
	noSniff     bool
	failOnError bool
	maxSize     int64
	logLevel    string
}

func newParseCmd() *cobra.Command {
	opts := parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a report and print the result",
		Long: `Parse reads the report at <file>, or standard input when <file> is "-",
and prints the parse result as JSON or YAML. Logs and the summary line go to
standard error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.existing, "existing", "", "File of order ids already on the board, one per line")
	f.StringVarP(&opts.format, "format", "f", "json", "Output format: json or yaml")
	f.StringVar(&opts.columns, "columns", "fixed", "Column layout: fixed or header")
	f.StringVar(&opts.delimiter, "delimiter", "auto", "Cell separator: auto, comma, tab or semicolon")
	f.BoolVar(&opts.strictTime, "strict-time", false, "Reject rows without a usable delivery time")
	f.BoolVar(&opts.noSniff, "no-sniff", false, "Do not recover empty address or time cells from other columns")
	f.BoolVar(&opts.failOnError, "fail-on-error", false, "Exit with status 2 when any row is rejected")
	f.Int64Var(&opts.maxSize, "max-size", core.DefaultMaxReportSize, "Maximum report size in bytes")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	return cmd
}

func runParse(cmd *cobra.Command, path string, opts parseOptions) error {
	encode, err := encoderFor(opts.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), opts.logLevel, "text")

	var existing []string
	if opts.existing != "" {
		if existing, err = readOrderIDs(opts.existing); err != nil {
			return err
		}
	}

	name, r := path, cmd.InOrStdin()
	if path == "-" {
		name = ""
	} else {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open report: %w", err)
		}
		defer file.Close()
		r = file
	}

	text, kind, err := core.ReadReport(name, r, opts.maxSize)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	delimiter := (&config.ImportConfig{Delimiter: opts.delimiter}).DelimiterRune()
	if kind == core.ReportWorkbook {
		delimiter = ','
	}

	parser := dispatch.New(
		dispatch.WithResolver(dispatch.ResolverByName(opts.columns)),
		dispatch.WithDelimiter(delimiter),
		dispatch.WithRequireDeliveryTime(opts.strictTime),
		dispatch.WithContentSniffing(!opts.noSniff),
		dispatch.WithLogger(logger),
	)
	result := parser.Parse(text, existing)

	if err := encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d rows, %d deliveries, %d errors, %d warnings, %d duplicates\n",
		path, result.TotalRows, len(result.Deliveries), len(result.Errors),
		len(result.Warnings), len(result.Duplicates))

	if opts.failOnError && result.HasErrors() {
		return &exitError{code: exitCodeRowErrors}
	}
	return nil
}

func encoderFor(format string, w io.Writer) (func(dispatch.ParseResult) error, error) {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return func(r dispatch.ParseResult) error { return enc.Encode(r) }, nil
	case "yaml", "yml":
		return func(r dispatch.ParseResult) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(r); err != nil {
				return err
			}
			return enc.Close()
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: expected json or yaml", format)
	}
}

// readOrderIDs reads one order id per line. Blank lines and lines starting
// with # are skipped.
func readOrderIDs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open existing ids: %w", err)
	}
	defer file.Close()

	var ids []string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read existing ids: %w", err)
	}
	return ids, nil
}
