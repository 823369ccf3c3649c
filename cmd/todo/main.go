// Package main implements the todo CLI.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"todo-tracker/app"
	"todo-tracker/config"
	"todo-tracker/store"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "todo",
	Short:        "A personal task tracker with a trash and JSON export",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if isInteractive() {
			return runTUI(cmd, args)
		}
		return runList(cmd, args)
	},
}

type globalOptions struct {
	configPath string
	backend    string
	dir        string
}

var globals globalOptions

func init() {
	addGlobalFlags(rootCmd.PersistentFlags(), &globals)
	addListFlags(rootCmd.Flags())
}

func addGlobalFlags(fs *pflag.FlagSet, opts *globalOptions) {
	fs.StringVar(&opts.configPath, "config", "", "path to config.toml (default ~/.config/todo-tracker/config.toml)")
	fs.StringVar(&opts.backend, "backend", "", "storage backend: file, sqlite or memory")
	fs.StringVar(&opts.dir, "dir", "", "storage directory (overrides config and $"+config.DirEnv+")")
}

// session is an opened service together with the resources backing it.
type session struct {
	svc     *app.Service
	cfg     *config.Config
	backend store.Backend
	logFile *os.File
}

func (s *session) Close() {
	_ = s.backend.Close()
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}

// openSession loads configuration, applies flag overrides and opens storage.
// When logToFile is set, persistence failures are written to todo.log in the
// storage directory instead of stderr.
func openSession(cmd *cobra.Command, logToFile bool) (*session, error) {
	cfg, err := config.Load(globals.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("backend") {
		cfg.Storage.Backend = globals.backend
	}
	if cmd.Flags().Changed("dir") {
		cfg.Storage.Dir = globals.dir
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	var out io.Writer = cmd.ErrOrStderr()
	if logToFile {
		out = io.Discard
		if cfg.Storage.Backend != config.BackendMemory {
			if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
			f, err := os.OpenFile(filepath.Join(cfg.Storage.Dir, "todo.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file: %w", err)
			}
			s.logFile = f
			out = f
		}
	}
	logger := log.New(out, "todo: ", log.LstdFlags)

	backend, err := store.Open(cfg.Storage, logger)
	if err != nil {
		if s.logFile != nil {
			_ = s.logFile.Close()
		}
		return nil, err
	}
	s.backend = backend
	s.svc = app.NewService(backend, app.WithLogger(logger))
	return s, nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
