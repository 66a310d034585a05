// Command benchsweep runs a benchmark target across a parameter matrix
// and collects one structured result per variant.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/deixis/benchsweep"
	"github.com/deixis/benchsweep/internal/config"
	"github.com/deixis/benchsweep/internal/logging"
	benchmcp "github.com/deixis/benchsweep/internal/mcp"
	"github.com/deixis/benchsweep/internal/report"
	"github.com/deixis/benchsweep/internal/result"
	"github.com/deixis/benchsweep/internal/workflow"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("benchsweep: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "plan":
		err = planMain(args)
	case "run":
		err = runMain(args)
	case "show":
		err = showMain(args)
	case "list":
		err = listMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(benchsweep.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "benchsweep: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: benchsweep <command> [flags]

Commands:
  plan        List the variants of the matrix and the command each one runs
  run         Run every variant in order and write the CSV report
  show        Print a stored sweep as CSV, JSON, or one row in detail
  list        List stored sweeps, newest first
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "benchsweep <command> -h" for command-specific flags.`)
}

// --- plan ---

func planMain(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	configFlag := fs.String("config", "", "config file (default: "+config.FileName+" found upward from the working directory)")
	jsonFlag := fs.Bool("json", false, "output the plan as JSON")
	_ = fs.Parse(args)

	loaded, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}

	plan, err := workflow.New(loaded).Plan()
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	if *jsonFlag {
		return writeJSON(os.Stdout, plan)
	}
	for _, pv := range plan {
		fmt.Printf("%4d  %s\n      %s\n", pv.Index, pv.Variant, strings.Join(pv.Argv, " "))
	}
	fmt.Printf("\n%d variants\n", len(plan))
	return nil
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFlag := fs.String("config", "", "config file (default: "+config.FileName+" found upward from the working directory)")
	outFlag := fs.String("o", "", "CSV output path, - for stdout (default: output from config)")
	limitFlag := fs.Int("limit", 0, "run at most this many variants")
	offsetFlag := fs.Int("offset", 0, "skip this many variants")
	dwellFlag := fs.Duration("dwell", 0, "override configured dwell (e.g. 5s)")
	keepPartial := fs.Bool("keep-partial", false, "write the CSV for completed rows when the sweep aborts")
	jsonFlag := fs.Bool("json", false, "print the sweep as JSON instead of progress lines")
	verboseFlag := fs.Bool("v", false, "verbose logging")
	logFormat := fs.String("log-format", "text", "log format: text or json")
	_ = fs.Parse(args)

	initLogging(*verboseFlag, *logFormat)

	if *limitFlag < 0 || *offsetFlag < 0 {
		return errors.New("run: -limit and -offset must not be negative")
	}

	loaded, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	if *dwellFlag > 0 {
		loaded.Config.RawDwell = dwellFlag.String()
	}

	store, closeStore, err := openStore(loaded)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := workflow.SweepOptions{Offset: *offsetFlag, Limit: *limitFlag}
	if !*jsonFlag {
		opts.OnRow = func(r report.Row, planned int) {
			fmt.Print(formatRowCLI(r, planned))
		}
	}

	s, runErr := workflow.New(loaded).Sweep(ctx, opts)
	if s == nil {
		return fmt.Errorf("run: %w", runErr)
	}
	if err := store.Save(s); err != nil {
		log.Printf("saving sweep %s: %v", s.ID, err)
	}

	if *jsonFlag {
		if err := writeJSON(os.Stdout, s); err != nil {
			return err
		}
	}
	if runErr != nil && !*keepPartial {
		return fmt.Errorf("run: %w (sweep %s)", runErr, s.ID)
	}

	if len(s.Rows) == 0 {
		fmt.Println("no results")
	} else {
		out := *outFlag
		if out == "" {
			out = loaded.Resolve(loaded.Config.OutputPath())
		}
		if err := writeCSVFile(out, s); err != nil {
			return err
		}
		if out != "-" && !*jsonFlag {
			sum := s.Summary()
			fmt.Printf("\nwrote %d rows (%d ok) to %s\nsweep %s\n", sum.Rows, sum.OK, out, s.ID)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run: %w (sweep %s)", runErr, s.ID)
	}
	return nil
}

func formatRowCLI(r report.Row, planned int) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	w("  [%d/%d] %-40s %s", r.Index+1, planned, r.Variant, r.Status)
	if r.Escalated {
		w(" (killed)")
	}
	w("\n")
	if r.Status != report.OK {
		w("         %s\n", r.Detail)
	}
	return string(b)
}

// writeCSVFile writes s as CSV to path, or to stdout when path is "-".
// The file is only created once the report is known to be non-empty.
func writeCSVFile(path string, s *report.Sweep) error {
	if path == "-" {
		return report.WriteCSV(os.Stdout, s)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(f, s); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// --- show ---

func showMain(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configFlag := fs.String("config", "", "config file locating the store")
	jsonFlag := fs.Bool("json", false, "print the stored sweep as JSON")
	rowFlag := fs.Int("row", -1, "print one row in detail")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: benchsweep show [-json] [-row N] <sweep-id>")
	}

	loaded, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(loaded)
	if err != nil {
		return err
	}
	defer closeStore()

	s, err := store.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	switch {
	case *jsonFlag:
		return writeJSON(os.Stdout, s)
	case *rowFlag >= 0:
		r, err := s.Row(*rowFlag)
		if err != nil {
			return err
		}
		fmt.Print(formatRowDetail(r))
		return nil
	}

	if err := report.WriteCSV(os.Stdout, s); errors.Is(err, report.ErrNoResults) {
		fmt.Println("no results")
	} else if err != nil {
		return err
	}
	return nil
}

func formatRowDetail(r *report.Row) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	w("row %d: %s\n", r.Index, r.Variant)
	w("  command:   %s\n", strings.Join(r.Argv, " "))
	w("  status:    %s\n", r.Status)
	if r.Detail != "" {
		w("  detail:    %s\n", r.Detail)
	}
	w("  ready:     %t\n", r.Ready)
	w("  exit code: %d\n", r.ExitCode)
	w("  duration:  %s\n", r.Duration)
	if r.Escalated {
		w("  killed after ignoring the interrupt\n")
	}
	for _, e := range r.Flat() {
		w("  %s = %s\n", e.Key, result.Format(e.Value))
	}
	if r.Output != "" {
		w("\n%s\n", r.Output)
	}
	return string(b)
}

// --- list ---

func listMain(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configFlag := fs.String("config", "", "config file locating the store")
	_ = fs.Parse(args)

	loaded, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(loaded)
	if err != nil {
		return err
	}
	defer closeStore()

	sums, err := store.List()
	if err != nil {
		return err
	}
	for _, s := range sums {
		fmt.Println(s)
	}
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	configFlag := fs.String("config", "", "config file (default: "+config.FileName+" found upward from the working directory)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(benchmcp.Instructions)
		return nil
	}

	// stdout carries the protocol on stdio.
	initLogging(false, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return serve(ctx, *configFlag, *httpAddr)
}

func serve(ctx context.Context, configPath, httpAddr string) error {
	var eng *workflow.Engine
	var disk report.Store = report.NewDiskStore(config.DefaultStorePath)

	loaded, err := loadConfig(configPath)
	switch {
	case err == nil:
		eng = workflow.New(loaded)
		st, closeStore, err := openStore(loaded)
		if err != nil {
			return err
		}
		defer closeStore()
		disk = st
	case errors.Is(err, config.ErrNotFound):
		log.Printf("no %s found; waiting for a client root or a config argument", config.FileName)
	default:
		return err
	}

	store := report.NewLRUStore(5, disk)
	server := benchmcp.NewServer(eng, store, benchmcp.WithLogger(logging.New("mcp")))

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

func initLogging(verbose bool, format string) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, format, os.Stderr)
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return loaded, nil
}

// openStore opens the sweep store named by the config. The returned func
// releases it.
func openStore(loaded *config.LoadResult) (report.Store, func(), error) {
	cfg := loaded.Config
	path := loaded.Resolve(cfg.StorePath())

	switch cfg.StoreDriver() {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, err
		}
		st, err := report.OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return report.NewDiskStore(path), func() {}, nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
