package main

import (
	"fmt"
	"os"

	"twinconsole/internal/config"
	"twinconsole/internal/logger"
	"twinconsole/internal/middleware"
	"twinconsole/internal/services"

	"github.com/spf13/cobra"
)

var tokenOperator string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator token",
	Long:  "token signs an operator JWT for the control endpoints and the /ws push channel.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !middleware.NewInputValidator().ValidateOperatorName(tokenOperator) {
			return fmt.Errorf("invalid operator name %q", tokenOperator)
		}

		// keep stdout for the token itself
		logger.SetOutput(os.Stderr, logger.Info)

		cfg, err := config.Load(config.FindConfigFile(configPath))
		if err != nil {
			return err
		}
		auth, err := services.NewAuthService(cfg.Auth.Secret, cfg.Auth.SecretFile, cfg.Auth.TokenExpiry)
		if err != nil {
			return err
		}

		token, expires, err := auth.GenerateToken(tokenOperator)
		if err != nil {
			return err
		}
		middleware.NewSecurityLogger().LogTokenGenerated("cli", tokenOperator)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, token)
		fmt.Fprintf(out, "# expires %s\n", expires.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(out, "# ws://%s/ws?token=%s\n", cfg.Server.Addr, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenOperator, "operator", "o", "", "operator name (letters, digits, - _ . @)")
	tokenCmd.MarkFlagRequired("operator")
}
