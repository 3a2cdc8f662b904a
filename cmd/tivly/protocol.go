package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tivly/tivly-cli/internal/api"
	"github.com/tivly/tivly-cli/internal/auth"
	"github.com/tivly/tivly-cli/internal/config"
	"github.com/tivly/tivly-cli/internal/protocol"
	"github.com/tivly/tivly-cli/internal/render"
)

func protocolCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "protocol <job-id>",
		Short: "Generate a meeting protocol from a finished transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			cfg := config.LoadOrDefault()

			if cfg.Protocol.APIKey == "" {
				return fmt.Errorf("no protocol API key configured, run `tivly configure`")
			}
			if model == "" {
				model = cfg.Protocol.Model
			}

			client := api.NewClient(cfg.Server.APIURL, auth.Load)
			status, err := client.JobStatus(cmd.Context(), jobID)
			if err != nil {
				return fmt.Errorf("fetch job: %w", err)
			}
			if !status.Complete() {
				return fmt.Errorf("job %s is not finished yet (status %s)", jobID, status.Status)
			}

			gen, err := protocol.NewGenerator(protocol.Config{
				APIKey:   cfg.Protocol.APIKey,
				Model:    model,
				Language: cfg.Transcription.Language,
			})
			if err != nil {
				return err
			}

			speakers := make([]string, 0, len(status.Matches))
			for _, m := range status.Matches {
				name := m.Speaker
				if display, ok := status.SpeakerNames[m.Speaker]; ok && display != "" {
					name = display
				}
				speakers = append(speakers, name)
			}

			fmt.Println(render.StyleMuted.Render("generating protocol…"))

			text, err := gen.Generate(cmd.Context(), status.Transcript, speakers)
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Println(text)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Override the configured chat model")

	return cmd
}
