package main

import (
	"fmt"

	"figures/internal/configuration"
	h "figures/internal/helpers"
	"figures/internal/models"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var readOnly bool
	var expiry int
	cmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Mint an API token for a host platform user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}

			var user models.User
			if err = db.WithContext(cmd.Context()).Where("username = ?", args[0]).First(&user).Error; err != nil {
				return fmt.Errorf("user %q: %w", args[0], err)
			}
			if !user.IsActive {
				return fmt.Errorf("user %q is inactive", args[0])
			}

			audience := configuration.AudienceAccessToken
			if readOnly {
				audience = configuration.AudienceReadOnlyToken
			}
			token, err := h.NewHostUserToken(loaded.App.JWTSecret, &user, audience, expiry)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Restrict the token to read-only endpoints")
	cmd.Flags().IntVar(&expiry, "expiry", configuration.AccessTokenExpiry, "Token lifetime in minutes")
	return cmd
}
