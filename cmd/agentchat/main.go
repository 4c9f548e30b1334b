package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"agentchat/internal/config"
	"agentchat/internal/session"
	"agentchat/internal/tui"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "agentchat [document.pdf]",
	Short: "Chat with a document using a tool-calling agent",
	Long: "agentchat indexes one document and answers questions about it with an LLM agent " +
		"that can search the web, search the document and have its answers groundedness-checked.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (default ./config.yaml or ~/.config/agentchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "agentchat:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if len(args) == 1 {
		cfg.Document.Path = args[0]
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := initLogger(cfg.Log); err != nil {
		return err
	}
	log.Info().Str("config", cfgPath).Msg("loaded configuration")

	if strings.TrimSpace(cfg.Document.Path) == "" {
		return errors.New("no document given: pass a path or set document.path in the config")
	}
	if err := config.RequireEnv(cfg.RequiredEnv()...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	app, err := assemble(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}

	l := session.New(cfg.Session.MaxMessages)
	log.Info().Str("session", l.ID()).Str("document", cfg.Document.Path).Msg("session started")

	m := tui.New(ctx, app.pipeline, l, app.index.Summary())
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "chat interface failed")
	}
	return nil
}

// initLogger sends logs to a rotating file; the terminal belongs to the TUI.
func initLogger(cfg config.LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		NoColor: true,
		Out: &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		},
	})
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}
