package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/tasklist/internal/adapters/restapi"
	"github.com/evanschultz/tasklist/internal/app"
	"github.com/evanschultz/tasklist/internal/config"
	"github.com/evanschultz/tasklist/internal/domain"
	"github.com/evanschultz/tasklist/internal/output"
	"github.com/evanschultz/tasklist/internal/platform"
	"github.com/evanschultz/tasklist/internal/tui"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// rootOptions holds persistent flag values.
type rootOptions struct {
	configPath string
	apiURL     string
	appName    string
	devMode    bool
	stderr     io.Writer
}

// session is the wired runtime for one command.
type session struct {
	cfg        config.Config
	configPath string
	logger     *runtimeLogger
	ctrl       *app.Controller
}

// newRootCmd builds the command tree.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stderr: stderr}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TASKLIST_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("TASKLIST_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "tasklist",
		Short:         "Manage tasks on a remote task API",
		Long:          "tasklist mirrors a remote task collection. Without a subcommand it opens the interactive list.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return opts.runTUI()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "task API base URL (overrides config)")
	root.PersistentFlags().StringVar(&opts.appName, "app", defaultApp, "application name for config/log path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev) and file logging")

	root.AddCommand(
		newListCmd(opts, stdout),
		newAddCmd(opts, stdout),
		newEditCmd(opts, stdout),
		newRemoveCmd(opts, stdout),
		newPathsCmd(opts, stdout),
		newInitCmd(opts, stdout),
	)
	return root
}

// newListCmd prints the collection.
func newListCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	var (
		format string
		style  string
		width  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in server order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open("list")
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.ctrl.Load(cmd.Context()); err != nil {
				return userError(err)
			}
			timeOpts := output.TimeOptions{
				DateFormat: s.cfg.UI.DateFormat,
				Relative:   s.cfg.UI.RelativeTimes,
			}
			tasks := s.ctrl.Tasks()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "plain":
				output.WritePlain(stdout, tasks, timeOpts)
				return nil
			case "markdown", "md":
				renderer := &output.MarkdownRenderer{Style: style}
				rendered, err := renderer.Render(output.Markdown(tasks, timeOpts), width)
				if err != nil {
					return fmt.Errorf("render markdown: %w", err)
				}
				_, err = io.WriteString(stdout, rendered)
				return err
			default:
				return fmt.Errorf("unsupported format %q (want plain or markdown)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "plain", "output format: plain or markdown")
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style for markdown output")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width for markdown output")
	return cmd
}

// newAddCmd creates one task.
func newAddCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open("add")
			if err != nil {
				return err
			}
			defer s.close()

			title := strings.Join(args, " ")
			if err := s.ctrl.Create(cmd.Context(), title); err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintf(stdout, "created %q\n", domain.NormalizeTitle(title))
			return nil
		},
	}
}

// newEditCmd replaces one task title.
func newEditCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <title...>",
		Short: "Rename a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open("edit")
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.ctrl.Load(cmd.Context()); err != nil {
				return userError(err)
			}
			id := args[0]
			patch := domain.TitlePatch(strings.Join(args[1:], " "))
			if err := s.ctrl.Update(cmd.Context(), id, patch); err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintf(stdout, "updated %s\n", id)
			return nil
		},
	}
}

// newRemoveCmd deletes one task.
func newRemoveCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open("rm")
			if err != nil {
				return err
			}
			defer s.close()

			id := args[0]
			if err := s.ctrl.Remove(cmd.Context(), id); err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintf(stdout, "deleted %s\n", id)
			return nil
		},
	}
}

// newPathsCmd prints resolved locations.
func newPathsCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show resolved config and log paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", opts.resolveConfigPath(paths))
			_, _ = fmt.Fprintf(stdout, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

// newInitCmd writes a default config file.
func newInitCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			configPath := opts.resolveConfigPath(paths)
			written, err := config.WriteDefault(configPath, config.Default())
			if err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
			if written {
				_, _ = fmt.Fprintf(stdout, "wrote %s\n", configPath)
			} else {
				_, _ = fmt.Fprintf(stdout, "config already exists: %s\n", configPath)
			}
			return nil
		},
	}
}

// runTUI starts the interactive list.
func (o *rootOptions) runTUI() error {
	s, err := o.open("tui")
	if err != nil {
		return err
	}
	defer s.close()

	m := tui.NewModel(
		s.ctrl,
		tui.WithKeyConfig(toTUIKeyConfig(s.cfg.Keys)),
		tui.WithDateFormat(s.cfg.UI.DateFormat),
		tui.WithRelativeTimes(s.cfg.UI.RelativeTimes),
	)
	s.logger.Info("starting tui program loop", "config_path", s.configPath)
	if _, err := programFactory(m).Run(); err != nil {
		s.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	s.logger.Info("command flow complete", "command", "tui")
	return nil
}

// paths resolves per-user locations for the selected app name.
func (o *rootOptions) paths() (platform.Paths, error) {
	return platform.Resolve(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// resolveConfigPath applies flag > env > default precedence.
func (o *rootOptions) resolveConfigPath(paths platform.Paths) string {
	if path := strings.TrimSpace(o.configPath); path != "" {
		return path
	}
	if envPath := strings.TrimSpace(os.Getenv("TASKLIST_CONFIG")); envPath != "" {
		return envPath
	}
	return paths.ConfigPath
}

// open loads config and wires logger, client and controller for one command.
func (o *rootOptions) open(command string) (*session, error) {
	paths, err := o.paths()
	if err != nil {
		return nil, err
	}
	configPath := o.resolveConfigPath(paths)
	cfg, err := config.Load(configPath, config.Default())
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if apiURL := o.resolveAPIURL(); apiURL != "" {
		cfg.API.BaseURL = apiURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("api override: %w", err)
		}
	}

	settings, err := resolveLoggerSettings(cfg.Logging, paths, o.appName, o.devMode, time.Now())
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger, err := newRuntimeLogger(o.stderr, settings)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	// The list owns the terminal; events still reach the dev file.
	logger.MuteConsole(command == "tui")
	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "log_dir", paths.LogDir)
	if devPath := logger.FilePath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	timeout, err := cfg.APITimeout()
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	client, err := restapi.NewClient(cfg.API.BaseURL,
		restapi.WithTimeout(timeout),
		restapi.WithLogger(logger),
	)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("configure api client: %w", err)
	}
	logger.Info("api client ready", "base_url", client.BaseURL(), "timeout", timeout)

	ctrl := app.NewController(client, logger, app.Options{
		SurfaceDeleteErrors: cfg.UI.SurfaceDeleteErrors,
	})
	return &session{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		ctrl:       ctrl,
	}, nil
}

// resolveAPIURL applies flag > env precedence for the API base.
func (o *rootOptions) resolveAPIURL() string {
	if apiURL := strings.TrimSpace(o.apiURL); apiURL != "" {
		return apiURL
	}
	return strings.TrimSpace(os.Getenv("TASKLIST_API_URL"))
}

// close releases session resources.
func (s *session) close() {
	if err := s.logger.Close(); err != nil {
		s.logger.Warn("close dev log file", "err", err)
	}
}

// userError surfaces the banner message for controller failures.
func userError(err error) error {
	var reqErr *app.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s: %w", reqErr.Message, reqErr.Err)
	}
	return err
}

// toTUIKeyConfig maps persisted key overrides into model options.
func toTUIKeyConfig(keys config.KeyConfig) tui.KeyConfig {
	return tui.KeyConfig{
		Add:     keys.Add,
		Edit:    keys.Edit,
		Delete:  keys.Delete,
		Reload:  keys.Reload,
		Yank:    keys.Yank,
		Dismiss: keys.Dismiss,
	}
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
