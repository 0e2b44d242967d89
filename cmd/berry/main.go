// Command berry inspects and edits a berrydb database from the shell.
//
//	berry --db ./data put greeting hello
//	berry --db ./data get greeting
//	berry --db ./data scan --reverse --limit 10
//	printf 'put a 1\ndelete b\n' | berry --db ./data batch
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/eigerco/berrydb/internal/config"
	"github.com/eigerco/berrydb/pkg/log"
	"github.com/eigerco/berrydb/pkg/store"
)

const usage = `usage: berry [flags] <command> [args]

commands:
  get <key>              print the value stored under key
  put <key> <value>      store value under key
  delete <key>           remove key
  exists <key>           report whether key may exist
  mget <key>...          print the values of several keys
  scan                   print every entry in key order
  batch                  apply "put <key> <value>" / "delete <key>" lines from stdin atomically
  stats                  count keys and bytes

flags:
`

// errUsage marks command line mistakes; they exit with status 2.
var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, pflag.ErrHelp):
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "berry:", err)
		os.Exit(1)
	}
}

type cli struct {
	hex     bool
	reverse bool
	limit   int
	stdin   io.Reader
	stdout  io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	fs := pflag.NewFlagSet("berry", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	var (
		configPath = fs.StringP("config", "c", "", "path to a TOML config file")
		dbPath     = fs.StringP("db", "d", "", "database directory")
		engine     = fs.StringP("engine", "e", "", "storage engine: pebble, leveldb or rocksdb")
		readOnly   = fs.Bool("readonly", false, "open the database read-only")
		noSync     = fs.Bool("no-sync", false, "do not sync writes to disk")
		logLevel   = fs.String("log-level", "", "log level (debug, info, warn, error)")
		logFormat  = fs.String("log-format", "", "log format: console or json")
		c          = cli{stdin: stdin, stdout: stdout}
	)
	fs.BoolVarP(&c.hex, "hex", "x", false, "keys and values are hex encoded on input and output")
	fs.BoolVarP(&c.reverse, "reverse", "r", false, "scan in reverse key order")
	fs.IntVarP(&c.limit, "limit", "n", 0, "stop a scan after this many entries (0 means no limit)")

	if err = fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if fs.Changed("db") {
		cfg.Database.Path = *dbPath
	}
	if fs.Changed("engine") {
		cfg.Database.Engine = *engine
	}
	if fs.Changed("readonly") {
		cfg.Database.ReadOnly = *readOnly
	}
	if fs.Changed("no-sync") {
		cfg.Database.Sync = !*noSync
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = *logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := initLogging(cfg.Log, stderr); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, cmdArgs := rest[0], rest[1:]

	if readOnlyCommand(cmd) && !fs.Changed("readonly") && !cfg.Database.InMemory {
		cfg.Database.ReadOnly = true
	}

	opts, err := cfg.StoreOptions()
	if err != nil {
		return err
	}
	opts = append(opts, store.WithLogger(log.CLI))

	h, err := store.Open(cfg.Database.Path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	log.CLI.Debug().Str("command", cmd).Str("path", h.Path()).Str("engine", string(h.Engine())).Msg("running")

	return c.dispatch(h, cmd, cmdArgs)
}

func initLogging(cfg config.Log, out io.Writer) error {
	level, err := log.ParseLogLevel(cfg.Level)
	if err != nil {
		return err
	}
	format, err := log.ParseLoggerType(cfg.Format)
	if err != nil {
		return err
	}
	log.Init(log.Options{LogLevel: level, Type: format, Out: out})
	return nil
}

// readOnlyCommand reports whether cmd never writes. Such commands open the
// database read-only unless --readonly is given explicitly.
func readOnlyCommand(cmd string) bool {
	switch cmd {
	case "get", "exists", "mget", "scan", "stats":
		return true
	}
	return false
}

func (c cli) dispatch(h *store.Handle, cmd string, args []string) error {
	switch cmd {
	case "get":
		return c.get(h, args)
	case "put":
		return c.put(h, args)
	case "delete":
		return c.delete(h, args)
	case "exists":
		return c.exists(h, args)
	case "mget":
		return c.mget(h, args)
	case "scan":
		return c.scan(h, args)
	case "batch":
		return c.batch(h, args)
	case "stats":
		return c.stats(h, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}
