package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/catalog"
	mcpcli "github.com/sammcj/mcp-office/internal/cli"
	"github.com/sammcj/mcp-office/internal/config"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/server"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const (
	// DefaultMemoryLimit is the default soft memory limit for the Go runtime (2GB)
	DefaultMemoryLimit = 2 * 1024 * 1024 * 1024
)

// parseLogLevel parses the LOG_LEVEL environment variable. Defaults to WarnLevel.
func parseLogLevel() logrus.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

// setMemoryLimit configures the Go runtime memory limit
func setMemoryLimit() {
	var memLimit int64 = DefaultMemoryLimit
	if v := os.Getenv("MCP_OFFICE_MEMORY_LIMIT"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			memLimit = parsed
		}
	}
	debug.SetMemoryLimit(memLimit)
}

func main() {
	setMemoryLimit()

	// a missing .env is fine
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdout carries protocol frames only, so nothing is logged until the log file is open
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := &cli.Command{
		Name:    "mcp-office",
		Usage:   "MCP server for creating and editing Office documents, mail, calendars and PDFs",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output-dir",
				Usage:   "Base directory for relative file names (default: working directory)",
				Sources: cli.EnvVars("MCP_OFFICE_OUTPUT_DIR"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML config file (default: ~/.mcp-office/config.yaml)",
				Sources: cli.EnvVars("MCP_OFFICE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "policy",
				Usage:   "Path to the YAML file access policy (default: ~/.mcp-office/policy.yaml)",
				Sources: cli.EnvVars("MCP_OFFICE_POLICY"),
			},
			&cli.StringFlag{
				Name:    "disabled-tools",
				Usage:   "Comma separated tool names to leave out",
				Sources: cli.EnvVars("DISABLED_TOOLS"),
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Log file (default: ~/.mcp-office/logs/mcp-office.log)",
				Sources: cli.EnvVars("MCP_OFFICE_LOG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("mcp-office version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			{
				Name:  "tools",
				Usage: "List the tools the server exposes",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the tool descriptors as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return listTools(cmd, logger)
				},
			},
			{
				Name:      "call",
				Usage:     "Run a single tool without starting the server",
				ArgsUsage: "[--json] <tool> [--param value ...] ['{json arguments}']",
				// tool parameters are parsed against the tool's own schema
				SkipFlagParsing: true,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return callTool(ctx, cmd, logger)
				},
			},
			{
				Name:      "describe",
				Usage:     "Show the parameters of a tool",
				ArgsUsage: "<tool>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the tool descriptor as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					runner, err := newRunner(cmd, logger, cmd.Bool("json"))
					if err != nil {
						return err
					}
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: mcp-office describe <tool>")
					}
					return runner.Describe(cmd.Args().First())
				},
			},
			{
				Name:  "policy-validate",
				Usage: "Check a file access policy for errors",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return validatePolicy(cmd)
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx, cmd, logger)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.WithError(err).Error("Exited with an error")
		_, _ = fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies flags
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := cmd.String("output-dir"); dir != "" {
		cfg.OutputDir = dir
	}
	if path := cmd.String("policy"); path != "" {
		cfg.PolicyPath = path
	}
	if cmd.IsSet("disabled-tools") {
		cfg.DisabledTools = registry.ParseDisabled(cmd.String("disabled-tools"))
	}
	return cfg, nil
}

// configureLogging points the logger at the log file, or discards output
// when the file cannot be opened
func configureLogging(logger *logrus.Logger, path string) (io.Closer, error) {
	if path == "" {
		path = filepath.Join(config.LogDir(), "mcp-office.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(file)
	logger.WithField("level", logger.GetLevel().String()).Debug("Logging configured")
	return file, nil
}

func serve(ctx context.Context, cmd *cli.Command, logger *logrus.Logger) error {
	if logFile, err := configureLogging(logger, cmd.String("log-file")); err == nil {
		defer func() { _ = logFile.Close() }()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"version":    Version,
		"output_dir": cfg.OutputDir,
		"policy":     cfg.PolicyPath,
	}).Info("Starting mcp-office")

	policy, err := security.LoadPolicy(cfg.PolicyPath, logger)
	if err != nil {
		return err
	}
	if err := policy.Watch(ctx, cfg.PolicyPath); err != nil {
		logger.WithError(err).Debug("Policy hot reload unavailable")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	reg, _, err := buildCatalog(cfg, policy, logger)
	if err != nil {
		return err
	}

	errorLog, err := tools.NewErrorLogger(logger, cfg.LogToolErrors, filepath.Join(config.LogDir(), "tool-errors.log"))
	if err != nil {
		logger.WithError(err).Warn("Failed to initialise tool error logger")
	}
	defer func() { _ = errorLog.Close() }()

	dispatcher, err := server.NewDispatcher(reg, logger,
		mcp.Implementation{Name: "mcp-office", Version: Version},
		server.WithErrorLogger(errorLog),
	)
	if err != nil {
		return err
	}

	transport := server.NewTransport(os.Stdin, os.Stdout, dispatcher, logger, server.WithMaxLineBytes(cfg.MaxInputBytes))
	logger.WithField("tools", reg.Len()).Debug("Serving on stdio")
	err = transport.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Shutting down on signal")
		return nil
	}
	if err == nil {
		logger.Debug("End of input, shutting down")
	}
	return err
}

func mailOptions(cfg *config.Config, policy *security.Policy) email.Options {
	return email.Options{
		SMTP: email.SMTP{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			StartTLS: cfg.SMTP.StartTLS,
		},
		RatePerMinute: cfg.MailRatePerMinute,
		Timeout:       cfg.NetworkTimeout,
		Policy:        policy,
	}
}

// buildCatalog registers every enabled tool against the configured output
// directory and policy
func buildCatalog(cfg *config.Config, policy *security.Policy, logger *logrus.Logger) (*registry.Registry, []catalog.Family, error) {
	store := output.NewStore(cfg.OutputDir, filepath.Join(config.HomeDir(), "locks"), policy, logger)
	reg := registry.New(logger, cfg.DisabledTools...)
	families, err := catalog.Register(reg, store, logger, mailOptions(cfg, policy))
	if err != nil {
		return nil, nil, err
	}
	return reg, families, nil
}

func newRunner(cmd *cli.Command, logger *logrus.Logger, asJSON bool) (*mcpcli.Runner, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	policy, err := security.LoadPolicy(cfg.PolicyPath, logger)
	if err != nil {
		return nil, err
	}
	reg, _, err := buildCatalog(cfg, policy, logger)
	if err != nil {
		return nil, err
	}
	dispatcher, err := server.NewDispatcher(reg, logger, mcp.Implementation{Name: "mcp-office", Version: Version})
	if err != nil {
		return nil, err
	}
	format := mcpcli.OutputText
	if asJSON {
		format = mcpcli.OutputJSON
	}
	return mcpcli.NewRunner(reg, dispatcher, os.Stdout, format), nil
}

// callTool runs one tool and prints its result
func callTool(ctx context.Context, cmd *cli.Command, logger *logrus.Logger) error {
	args := cmd.Args().Slice()
	asJSON := len(args) > 0 && args[0] == "--json"
	if asJSON {
		args = args[1:]
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: mcp-office call [--json] <tool> [--param value ...]")
	}
	runner, err := newRunner(cmd, logger, asJSON)
	if err != nil {
		return err
	}
	return runner.Run(ctx, args[0], args[1:])
}

// listTools prints the catalog grouped by family
func listTools(cmd *cli.Command, logger *logrus.Logger) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	policy, err := security.LoadPolicy(cfg.PolicyPath, logger)
	if err != nil {
		return err
	}
	reg, families, err := buildCatalog(cfg, policy, logger)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reg.List())
	}

	heading := color.New(color.FgCyan, color.Bold).SprintFunc()
	name := color.New(color.FgGreen).SprintFunc()
	upper := cases.Upper(language.English)
	for _, family := range families {
		if len(family.Tools) == 0 {
			continue
		}
		fmt.Printf("%s (%d)\n", heading(upper.String(family.Name)), len(family.Tools))
		for _, toolName := range family.Tools {
			tool, _ := reg.Get(toolName)
			desc, _, _ := strings.Cut(tool.Definition().Description, ". ")
			fmt.Printf("  %-36s %s\n", name(toolName), desc)
		}
		fmt.Println()
	}
	fmt.Printf("%d tools\n", reg.Len())
	return nil
}

// validatePolicy loads the policy file and reports whether it is usable
func validatePolicy(cmd *cli.Command) error {
	path := cmd.String("policy")
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.PolicyPath
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no policy at %s: %w", path, err)
	}
	if _, err := security.LoadPolicy(path, nil); err != nil {
		color.Red("✗ %v", err)
		return err
	}
	color.Green("✓ %s is valid", path)
	return nil
}
