package main

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"photoflow/internal/client"
)

// commandContext carries the lazily-built API client shared by subcommands.
type commandContext struct {
	serverFlag  *string
	verboseFlag *bool

	api    *client.Client
	logger zerolog.Logger
}

func newCommandContext(serverFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{serverFlag: serverFlag, verboseFlag: verboseFlag}
}

func (c *commandContext) ensureClient() (*client.Client, error) {
	if c.api != nil {
		return c.api, nil
	}

	level := zerolog.WarnLevel
	if c.verboseFlag != nil && *c.verboseFlag {
		level = zerolog.DebugLevel
	}
	c.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	baseURL := strings.TrimSpace(*c.serverFlag)
	if baseURL == "" {
		baseURL = os.Getenv("PHOTOFLOW_SERVER")
	}
	if baseURL == "" {
		return nil, errors.New("server address required: pass --server or set PHOTOFLOW_SERVER")
	}

	api, err := client.New(client.Options{BaseURL: baseURL, Logger: &c.logger})
	if err != nil {
		return nil, err
	}
	c.api = api
	return api, nil
}

func newRootCommand() *cobra.Command {
	var serverFlag string
	var verboseFlag bool

	ctx := newCommandContext(&serverFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:           "photoflow",
		Short:         "Batch photo analysis and enhancement client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "Collaborator API base URL")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newEnhanceCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newPresetsCommand())

	return rootCmd
}
