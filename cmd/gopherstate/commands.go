package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/RealZimboGuy/gopherstate/internal/config"
	"github.com/RealZimboGuy/gopherstate/internal/definitions"
	"github.com/RealZimboGuy/gopherstate/internal/engine"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "gopherstate",
		Short:        "Workflow state machine engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := config.LoadConfigFile(configFile); err != nil {
					return fmt.Errorf("loading config %s: %w", configFile, err)
				}
			}
			gopherstate.SetupLogger()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file with GSTATE_* keys")

	root.AddCommand(newServeCmd(), newValidateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := gopherstate.Start(ctx, nil); err != nil {
				slog.Error("Engine exited with error", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("port", "", "HTTP port (GSTATE_ENGINE_SERVER_WEB_PORT)")
	cmd.Flags().String("database-type", "", "MEMORY, POSTGRES, MYSQL or SQLLITE (GSTATE_DATABASE_TYPE)")

	settings := config.Settings()
	_ = settings.BindPFlag(config.ENGINE_SERVER_WEB_PORT, cmd.Flags().Lookup("port"))
	_ = settings.BindPFlag(config.DATABASE_TYPE, cmd.Flags().Lookup("database-type"))
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.yaml|file.json>",
		Short: "Check a workflow definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := definitions.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := engine.ValidateDefinition(def); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d states, %d actions\n", args[0], len(def.States), len(def.Actions))
			return nil
		},
	}
}
