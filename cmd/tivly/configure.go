package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tivly/tivly-cli/internal/config"
	"github.com/tivly/tivly-cli/internal/render"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg := config.LoadOrDefault()

	notifications := cfg.Notifications.Enabled
	protocolEnabled := cfg.Protocol.Enabled

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API URL").
				Description("Backend endpoint").
				Value(&cfg.Server.APIURL),
			huh.NewInput().
				Title("Language").
				Description("ISO-639-1 code, e.g. sv or en; empty for auto-detect").
				Value(&cfg.Transcription.Language),
			huh.NewConfirm().
				Title("Desktop notifications").
				Value(&notifications),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Protocol generation").
				Description("Generate meeting protocols from transcripts with OpenAI").
				Value(&protocolEnabled),
			huh.NewInput().
				Title("OpenAI API key").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Protocol.APIKey),
			huh.NewInput().
				Title("Chat model").
				Value(&cfg.Protocol.Model),
		),
	).WithTheme(formTheme())

	if err := form.Run(); err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	cfg.Notifications.Enabled = notifications
	cfg.Protocol.Enabled = protocolEnabled

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(render.StyleSuccess.Render("Configuration saved."))
	return nil
}

func formTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(render.ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(render.ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(render.ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(render.ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(render.ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(render.ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(render.ColorSubtle)

	return t
}
