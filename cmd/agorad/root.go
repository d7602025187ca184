package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agora-market/agora/config"
	"github.com/agora-market/agora/internal/api"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// NewRootCmd builds the agorad command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "agorad",
		Short: "Agora marketplace settlement daemon",
		Long: `agorad runs the Agora settlement engine: providers register service
listings, buyers lock funds in escrow against them, and completed work is
settled atomically with the provider's reputation update.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	rootCmd.AddCommand(
		newStartCmd(&configPath),
		newConfigCmd(&configPath),
		newTokenCmd(&configPath),
		newVersionCmd(),
	)
	return rootCmd
}

func newConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			out, err := cfg.Dump()
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	}
}

func newTokenCmd(configPath *string) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token",
		Long: `Issues a signed admin bearer token for the /v1/admin endpoints.
Requires api.jwt_secret to be set: a daemon started without one generates a
random secret and will not accept tokens issued here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.API.JWTSecret == "" {
				return fmt.Errorf("api.jwt_secret is not configured")
			}
			token, err := api.NewAuthManager(cfg.API.JWTSecret).IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject (recorded as the admin caller)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agorad version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
}
