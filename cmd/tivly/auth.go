package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tivly/tivly-cli/internal/auth"
	"github.com/tivly/tivly-cli/internal/render"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store an API token for this machine",
		Long: `Paste a personal API token from your account settings page.
The token is stored with user-only permissions and read on every
connection, so re-running login takes effect immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("API token").
						Description("Found under Settings → API tokens").
						EchoMode(huh.EchoModePassword).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return fmt.Errorf("token cannot be empty")
							}
							return nil
						}).
						Value(&token),
				),
			).WithTheme(formTheme())

			if err := form.Run(); err != nil {
				return err
			}

			if err := auth.Save(strings.TrimSpace(token)); err != nil {
				return fmt.Errorf("store token: %w", err)
			}

			fmt.Println(render.StyleSuccess.Render("Logged in."))
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.Clear(); err != nil {
				return fmt.Errorf("remove token: %w", err)
			}
			fmt.Println(render.StyleMuted.Render("Logged out."))
			return nil
		},
	}
}
