package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oskli/tinyrtc/internal/client"
	"github.com/oskli/tinyrtc/internal/config"
	"github.com/oskli/tinyrtc/internal/log"
	"github.com/oskli/tinyrtc/internal/proto"
	"github.com/oskli/tinyrtc/internal/webapi"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		room       string
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "tinyrtc",
		Short:         "Connect to a chat room and follow its event stream",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), room, configPath, overrides)
		},
	}

	cmd.Flags().StringVarP(&room, "room", "r", "", "room name to join")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&overrides.Nickname, "nick", "n", "", "nickname to use")
	cmd.Flags().StringVar(&overrides.Account, "account", "", "account name for login")
	cmd.Flags().StringVar(&overrides.Password, "password", "", "account password")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&overrides.Debug, "debug", false, "enable debug output")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd.SetContext(ctx)
	cobra.OnFinalize(stop)

	return cmd
}

func run(ctx context.Context, room, configPath string, overrides config.Config) error {
	// Credentials may live in a local .env during development.
	_ = godotenv.Load()

	bootstrap := log.New(overrides.LogLevel)
	cfg, _, err := config.Load(bootstrap, configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(overrides)
	if cfg.Debug && cfg.LogLevel != "debug" {
		cfg.LogLevel = "debug"
	}
	logger := log.New(cfg.LogLevel)

	if room == "" {
		room = prompt("Enter room name: ")
		if room == "" {
			return errors.New("a room name is required")
		}
	}

	api := webapi.New(cfg.BaseURL, *logger)

	if cfg.Account != "" && cfg.Password != "" {
		account := webapi.NewAccount(cfg.Account, cfg.Password, api)
		if err := account.Login(ctx); err != nil {
			return fmt.Errorf("login as %s: %w", cfg.Account, err)
		}
		logger.Info().Str("account", cfg.Account).Msg("logged in")
	}

	deps := client.Deps{API: api, Logger: *logger}
	if cfg.SolveCaptchas && cfg.AntiCaptchaKey != "" {
		deps.Solver = webapi.NewAntiCaptcha(cfg.AntiCaptchaKey, "", *logger)
	}

	cl := client.New(room, cfg, deps)
	if err := cl.Connect(ctx); err != nil {
		return err
	}
	defer cl.Disconnect()

	err = cl.Run(ctx)
	var closeErr *proto.CloseError
	if errors.As(err, &closeErr) {
		logger.Warn().Int("code", closeErr.Code).Msg(closeErr.Error())
		return nil
	}
	return err
}

func prompt(label string) string {
	fmt.Print(label)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
