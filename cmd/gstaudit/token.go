package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"gstaudit/internal/service"
)

var tokenCmd = &cobra.Command{
	Use:   "token SUBJECT",
	Short: "Issue an API bearer token",
	Long: `Sign a bearer token for SUBJECT with GSTAUDIT_JWT_SECRET. The token is
valid for GSTAUDIT_JWT_TOKEN_EXPIRY.`,
	Example: `  gstaudit token erp-connector`,
	Args:    cobra.ExactArgs(1),
	RunE:    runToken,
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key KEY",
	Short: "Hash an API key for GSTAUDIT_AUTH_API_KEY_HASHES",
	Args:  cobra.ExactArgs(1),
	RunE:  runHashKey,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashKeyCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tok, err := service.NewAuthService(cfg.JWT, nil).IssueToken(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", tok.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"))
	return nil
}

func runHashKey(cmd *cobra.Command, args []string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}
