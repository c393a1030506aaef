// Command varchain computes the derived variables of exercise documents.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"nickandperla.net/varchain/internal/config"
	"nickandperla.net/varchain/internal/escape"
	"nickandperla.net/varchain/pkg/varchain"
)

// EnvFile is read for defaults before flags are parsed.
const EnvFile = ".env"

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// options are the parsed command line.
type options struct {
	cfg    config.Config
	expr   string
	sets   []string // id=value
	checks []string // id=response
	list   bool
	json   bool
	reset  bool
	check  varchain.CheckOptions
}

func (o *options) acts() bool {
	return o.expr != "" || len(o.checks) > 0 || o.list || o.json
}

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(os.Stderr, exitErr.Message)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// parse processes command-line arguments over the defaults in cfg. The
// boolean reports whether the program should exit cleanly.
func parse(args []string, output io.Writer, cfg config.Config) (*options, bool, error) {
	flagSet := flag.NewFlagSet("varchain", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
varchain - computes the derived variables of exercise documents.

Usage:
  varchain [options] [DOCUMENT...]

Arguments:
  DOCUMENT
    Path to a .hcl file or a directory containing .hcl files.

Without -e, -check, -list or -json an interactive prompt is started.

Options:
`)
		flagSet.PrintDefaults()
	}

	o := &options{cfg: cfg}
	var docs []string
	flagSet.Func("doc", "Document file or directory (repeatable).", func(s string) error {
		docs = append(docs, s)
		return nil
	})
	flagSet.Func("set", "Answer a control, as id=value (repeatable).", func(s string) error {
		if !strings.Contains(s, "=") {
			return fmt.Errorf("want id=value, got %q", s)
		}
		o.sets = append(o.sets, s)
		return nil
	})
	flagSet.Func("check", "Check a response, as id=response (repeatable).", func(s string) error {
		if !strings.Contains(s, "=") {
			return fmt.Errorf("want id=response, got %q", s)
		}
		o.checks = append(o.checks, s)
		return nil
	})
	flagSet.StringVar(&o.expr, "e", "", "Evaluate a source expression.")
	flagSet.BoolVar(&o.list, "list", false, "Print every variable value.")
	flagSet.BoolVar(&o.json, "json", false, "Print every variable value as a JSON object.")
	flagSet.BoolVar(&o.reset, "reset", false, "Start a new attempt, discarding stored answers.")
	flagSet.BoolVar(&o.check.CaseSensitive, "case-sensitive", false, "Compare text responses case-sensitively.")
	flagSet.BoolVar(&o.check.FoldWhitespace, "fold-whitespace", false, "Trim responses and collapse runs of whitespace before comparing.")
	flagSet.BoolVar(&o.check.Pattern, "pattern", false, "Treat expected answers as regular expressions.")
	flagSet.StringVar(&o.cfg.DBPath, "db", cfg.DBPath, "SQLite database path. Empty keeps attempts in memory.")
	flagSet.StringVar(&o.cfg.Attempt, "attempt", cfg.Attempt, "Attempt id.")
	flagSet.Int64Var(&o.cfg.Seed, "seed", cfg.Seed, "Random seed. 0 reuses the stored seed or picks one.")
	flagSet.BoolVar(&o.cfg.NoStdlib, "no-stdlib", cfg.NoStdlib, "Disable the prelude constants.")
	flagSet.StringVar(&o.cfg.LogLevel, "log-level", cfg.LogLevel, "Logging level: 'debug', 'info', 'warn', 'error'.")
	flagSet.StringVar(&o.cfg.LogFormat, "log-format", cfg.LogFormat, "Log output format: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	docs = append(docs, flagSet.Args()...)
	if len(docs) > 0 {
		o.cfg.Documents = docs
	}
	o.cfg.LogLevel = strings.ToLower(o.cfg.LogLevel)
	o.cfg.LogFormat = strings.ToLower(o.cfg.LogFormat)
	if err := o.cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return o, false, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(EnvFile)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	o, exit, err := parse(args, stderr, cfg)
	if err != nil || exit {
		return err
	}

	logger := newLogger(o.cfg.LogLevel, o.cfg.LogFormat, stderr)
	opts := []varchain.Option{
		varchain.WithAttempt(o.cfg.Attempt),
		varchain.WithLogger(logger),
		varchain.WithChecker(o.check),
	}
	if len(o.cfg.Documents) > 0 {
		opts = append(opts, varchain.WithDocument(o.cfg.Documents...))
	}
	if o.cfg.Seed != 0 {
		opts = append(opts, varchain.WithSeed(o.cfg.Seed))
	}
	if o.cfg.NoStdlib {
		opts = append(opts, varchain.WithNoStdlib())
	}
	if o.cfg.DBPath != "" {
		opts = append(opts, varchain.WithSQLiteStore(o.cfg.DBPath))
	} else {
		opts = append(opts, varchain.WithMemoryStore())
	}

	session, err := varchain.New(opts...)
	if err != nil {
		return err
	}
	defer session.Close()

	if o.reset {
		if err := session.Reset(); err != nil {
			return err
		}
	}
	for _, s := range o.sets {
		id, value, _ := strings.Cut(s, "=")
		if err := session.SetAnswer(id, value); err != nil {
			return err
		}
	}

	if !o.acts() {
		return runREPL(session, stdin, stdout)
	}

	if o.expr != "" {
		result, err := session.Eval(o.expr)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, result)
	}

	wrong := 0
	for _, c := range o.checks {
		id, response, _ := strings.Cut(c, "=")
		verdict, err := session.Check(id, response)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, formatVerdict(id, verdict))
		if !verdict.Correct {
			wrong++
		}
	}

	if o.list {
		if err := printValues(session, stdout); err != nil {
			return err
		}
	}
	if o.json {
		out, err := session.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(out))
	}

	if wrong > 0 {
		return &ExitError{Code: 1}
	}
	return nil
}

func formatVerdict(id string, v varchain.Verdict) string {
	if v.Correct {
		return fmt.Sprintf("%s: correct (%s)", id, v.Mode)
	}
	return fmt.Sprintf("%s: incorrect (%s)", id, v.Mode)
}

// printValues writes every variable in declaration order, quoted as a
// chain literal. Variables that fail are reported in place and the first
// error is returned.
func printValues(s *varchain.Session, w io.Writer) error {
	var first error
	for _, id := range s.VariableIDs() {
		v, err := s.Value(id)
		if err != nil {
			fmt.Fprintf(w, "%s: error: %v\n", id, err)
			if first == nil {
				first = err
			}
			continue
		}
		fmt.Fprintf(w, "%s = \"%s\"\n", id, escape.Encode(v))
	}
	return first
}
