package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"parking/internal/adapter/token"
	"parking/internal/config"
	"parking/internal/domain"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed bearer token for a role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		roleName, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		role, err := domain.ParseRole(roleName)
		if err != nil {
			return err
		}
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is required to issue tokens")
		}

		raw, err := token.NewHMAC(cfg.JWTSecret).Issue(role, ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), raw)
		return err
	},
}

func init() {
	tokenCmd.Flags().String("role", "", "role claim: admin, manager or system")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime; 0 never expires")
	_ = tokenCmd.MarkFlagRequired("role")
	rootCmd.AddCommand(tokenCmd)
}
