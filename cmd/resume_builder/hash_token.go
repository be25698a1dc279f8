package main

import (
	"fmt"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/spf13/cobra"
)

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Hash an access token with bcrypt",
	Long: `Print the bcrypt hash of an access token. The hash can be used as PROXY_TOKEN or
RESUME_API_TOKEN so the clear token is not stored in configuration. BCRYPT_COST sets the cost.`,
	Args: cobra.ExactArgs(1),
	RunE: runHashToken,
}

func init() {
	rootCmd.AddCommand(hashTokenCmd)
}

func runHashToken(cmd *cobra.Command, args []string) error {
	tokenConfig, err := config.NewTokenConfig()
	if err != nil {
		return err
	}

	hash, err := tokenConfig.HashToken(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}
