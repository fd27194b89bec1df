package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/document"
	mcpserver "github.com/gnana997/detachr/pkg/mcp"
	"github.com/gnana997/detachr/pkg/msglog"
	"github.com/gnana997/detachr/pkg/scanner"
	"github.com/gnana997/detachr/pkg/session"
	"github.com/gnana997/detachr/pkg/util"
	"github.com/gnana997/detachr/pkg/variables"
	"github.com/gnana997/detachr/pkg/watch"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	cfgFile string
	cfg     *Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "detachr",
		Short: "Find and detach design-variable bindings",
		Long: `detachr scans the selection of a design document snapshot for properties
bound to design variables and replaces each binding with the literal value
the variable currently resolves to.

It runs one-shot (scan, detach) or as a long-lived session speaking JSON
lines (serve) or MCP (mcp) over stdio.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: .detachr/config.yaml)")
	pf.StringP("document", "d", "", "document snapshot (JSON)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")
	pf.String("message-log", "", "append handled messages to this JSONL file")
	pf.StringP("output", "o", "", "output format (text|json)")
	pf.StringSlice("font-dir", nil, "directory searched for font files (repeatable)")
	pf.StringSlice("exclude", nil, "skip nodes whose name path matches this doublestar pattern")
	pf.Bool("dedupe", true, "report each (node, property) pair once")
	pf.Int("cache-size", 0, "number of resolved variable values kept")
	pf.Bool("write-back", false, "save the document after a live detach that changed it")

	_ = root.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputText, OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		a.newScanCommand(),
		a.newDetachCommand(),
		a.newServeCommand(),
		a.newMCPCommand(),
		newInitCommand(),
		newSetupCommand(),
		newVersionCommand(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, used, err := LoadConfig(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	a.logger = util.NewLogger(lc)
	util.SetDefault(a.logger)
	if used != "" {
		a.logger.Debug("using config file", "path", used)
	}
	return nil
}

// openSession loads the configured document and wraps it in a session.
// The returned func releases the session and the message log.
func (a *app) openSession() (*session.Session, *msglog.Logger, func(), error) {
	if a.cfg.Document == "" {
		return nil, nil, nil, errors.New("no document: pass --document or set document in the config file")
	}
	doc, err := a.loadDocument(a.cfg.Document)
	if err != nil {
		return nil, nil, nil, err
	}
	audit, err := msglog.NewLogger(a.cfg.MessageLog)
	if err != nil {
		return nil, nil, nil, err
	}

	scfg := session.Config{
		Scanner:    scanner.Config{Dedupe: a.cfg.Dedupe, Exclude: a.cfg.Exclude},
		FontDirs:   a.cfg.FontDirs,
		Logger:     a.logger,
		MessageLog: audit,
	}
	if a.cfg.WriteBack {
		scfg.WriteBack = a.cfg.Document
	}
	sess, err := session.New(doc, scfg)
	if err != nil {
		_ = audit.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		sess.Close()
		if err := audit.Close(); err != nil {
			a.logger.Warn("failed to close message log", "error", err)
		}
	}
	return sess, audit, cleanup, nil
}

func (a *app) loadDocument(path string) (*document.Document, error) {
	return document.Load(path, document.LoadOptions{
		Store:  variables.StoreConfig{CacheSize: a.cfg.CacheSize},
		Logger: a.logger,
	})
}

// startWatch reloads the session whenever the document file changes. It
// returns a no-op stop func when watching is disabled.
func (a *app) startWatch(ctx context.Context, sess *session.Session) (func(), error) {
	if !a.cfg.Watch {
		return func() {}, nil
	}
	w, err := watch.New(a.cfg.Document, func(path string) {
		doc, err := a.loadDocument(path)
		if err != nil {
			a.logger.Warn("reload failed; keeping previous document", "path", path, "error", err)
			return
		}
		if err := sess.Reload(ctx, doc); err != nil {
			a.logger.Warn("reload failed", "path", path, "error", err)
		}
	}, watch.Options{DebounceMs: a.cfg.DebounceMs}, a.logger)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	a.logger.Info("watching document", "path", a.cfg.Document)
	return func() {
		if err := w.Stop(); err != nil {
			a.logger.Warn("failed to stop watcher", "error", err)
		}
	}, nil
}

func (a *app) newScanCommand() *cobra.Command {
	var selection []string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the variable bindings in the selection",
		Long: `List every variable binding in the current selection, or on the whole
current page when nothing is selected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, _, cleanup, err := a.openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			if len(selection) > 0 {
				if err := sess.SetSelection(ctx, selection); err != nil {
					return err
				}
			}
			res, err := sess.Scan(ctx)
			if err != nil {
				return err
			}
			return newRenderer(cmd.OutOrStdout(), a.cfg.Output).Scan(res)
		},
	}
	cmd.Flags().StringSliceVar(&selection, "select", nil, "node ids to select before scanning")
	return cmd
}

func (a *app) newDetachCommand() *cobra.Command {
	var (
		selection []string
		types     []string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "detach",
		Short: "Replace variable bindings with their resolved values",
		Long: `Scan the selection and detach every binding in the chosen categories,
writing the resolved literal in place of the variable. With --dry-run
nothing is changed and the would-be detaches are reported.

Pass --write-back to save the detached document over the input file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := detachOptions(types, dryRun)
			if err != nil {
				return err
			}
			sess, _, cleanup, err := a.openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			if len(selection) > 0 {
				if err := sess.SetSelection(ctx, selection); err != nil {
					return err
				}
			}
			scan, err := sess.Scan(ctx)
			if err != nil {
				return err
			}
			if sess.DynamicPage() {
				a.logger.Warn(session.DynamicPageWarning)
			}
			res, err := sess.Detach(ctx, scan.Bindings, opts)
			if err != nil {
				return err
			}
			if !res.DryRun && !a.cfg.WriteBack && len(res.Detached) > 0 {
				a.logger.Warn("detached values were not saved; pass --write-back to persist them")
			}
			return newRenderer(cmd.OutOrStdout(), a.cfg.Output).Detach(res)
		},
	}
	cmd.Flags().StringSliceVar(&selection, "select", nil, "node ids to select before detaching")
	cmd.Flags().StringSliceVar(&types, "types", []string{"color", "text", "number", "other"}, "categories to detach")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be detached without changing anything")
	return cmd
}

// detachOptions turns category names into options.
func detachOptions(types []string, dryRun bool) (binding.DetachOptions, error) {
	opts := binding.DetachOptions{DryRun: dryRun}
	for _, name := range types {
		t, err := binding.ParseVariableType(name)
		if err != nil {
			return opts, fmt.Errorf("--types: %w", err)
		}
		opts.Enable(t)
	}
	return opts, nil
}

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a session speaking JSON lines over stdio",
		Long: `Run a long-lived session. Each stdin line is one request envelope
({"type": "scan"}, {"type": "detach", "payload": {...}}, {"type": "close"});
responses and selection-change pushes are written to stdout one per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, _, cleanup, err := a.openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			stop, err := a.startWatch(ctx, sess)
			if err != nil {
				return err
			}
			defer stop()

			a.logger.Info("session started", "session", sess.ID(), "document", a.cfg.Document)
			return session.Serve(ctx, sess, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	addWatchFlags(cmd)
	return cmd
}

func (a *app) newMCPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run a session as an MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, audit, cleanup, err := a.openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			stop, err := a.startWatch(cmd.Context(), sess)
			if err != nil {
				return err
			}
			defer stop()

			a.logger.Info("mcp server started", "session", sess.ID(), "document", a.cfg.Document)
			return mcpserver.NewServer(sess, audit, a.logger).ServeStdio()
		},
	}
	addWatchFlags(cmd)
	return cmd
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("watch", false, "rescan and push results when the document file changes")
	cmd.Flags().Int("debounce-ms", 0, "delay before reacting to a burst of file changes")
}

func newInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [document]",
		Short: "Write a default .detachr/config.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := DefaultConfig()
			if len(args) == 1 {
				cfg.Document = args[0]
			}
			path := filepath.Join(configDir, configName)
			if err := writeConfig(path, cfg, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// writeConfig renders cfg as YAML at path. An existing file is kept
// unless force is set.
func writeConfig(path string, cfg Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "detachr %s (commit %s)\n", Version, GitCommit)
		},
	}
}
