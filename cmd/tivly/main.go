package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tivly/tivly-cli/internal/api"
	"github.com/tivly/tivly-cli/internal/auth"
	"github.com/tivly/tivly-cli/internal/config"
	"github.com/tivly/tivly-cli/internal/notify"
	"github.com/tivly/tivly-cli/internal/poller"
	"github.com/tivly/tivly-cli/internal/render"
	"github.com/tivly/tivly-cli/internal/stream"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tivly",
	Short: "Meeting transcription from your terminal",
}

func init() {
	rootCmd.AddCommand(
		watchCmd(),
		followCmd(),
		streamCmd(),
		protocolCmd(),
		loginCmd(),
		logoutCmd(),
		configureCmd(),
		versionCmd(),
	)
}

func notifier(cfg *config.Config, flag bool) notify.Notifier {
	if flag || cfg.Notifications.Enabled {
		return notify.Desktop{}
	}
	return notify.Nop{}
}

func watchCmd() *cobra.Command {
	var desktopNotify bool

	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Poll a transcription job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			cfg := config.LoadOrDefault()
			n := notifier(cfg, desktopNotify)

			client := api.NewClient(cfg.Server.APIURL, auth.Load)

			done := make(chan error, 1)
			p := poller.New(client, poller.Callbacks{
				OnStatus: func(s api.JobStatus) {
					fmt.Println(render.StatusLine(s))
				},
				OnCompleted: func(r poller.Result) {
					fmt.Println()
					fmt.Println(render.RenderResult(r))
					n.TranscriptReady(jobID)
					done <- nil
				},
				OnFailed: func(msg string) {
					n.Failed(msg)
					done <- fmt.Errorf("%s", msg)
				},
			})

			p.Watch(jobID)
			defer p.Stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-done:
				return err
			case <-sig:
				fmt.Println("\ninterrupted")
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&desktopNotify, "notify", false, "Send a desktop notification when the job finishes")

	return cmd
}

func followCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <job-id>",
		Short: "Follow a job's live transcription stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			cfg := config.LoadOrDefault()

			if _, err := auth.Load(); err != nil {
				return fmt.Errorf("not logged in, run `tivly login` first")
			}

			screen := render.NewScreen()
			done := make(chan error, 1)

			r := stream.New(cfg.StreamBase(), auth.Load, stream.Callbacks{
				OnCompleted: func(transcript string) {
					done <- nil
				},
				OnFailed: func(payload []byte) {
					done <- fmt.Errorf("transcription failed")
				},
			})
			defer r.Close()

			r.SetJob(jobID, true)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

			ticker := time.NewTicker(200 * time.Millisecond)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					screen.Paint(render.RenderSnapshot(r.Snapshot()))
				case err := <-done:
					screen.Paint(render.RenderSnapshot(r.Snapshot()))
					return err
				case <-sig:
					fmt.Println("\ninterrupted")
					return nil
				}
			}
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("tivly", version)
		},
	}
}
