package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tivly/tivly-cli/internal/audio"
	"github.com/tivly/tivly-cli/internal/auth"
	"github.com/tivly/tivly-cli/internal/config"
	"github.com/tivly/tivly-cli/internal/realtime"
	"github.com/tivly/tivly-cli/internal/render"
)

func streamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream <job-id>",
		Short: "Stream microphone audio for live transcription",
		Long: `Captures microphone audio and streams it to the transcription
backend over a websocket. Press enter to pause/resume capture, ctrl+c
or q to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]

			if err := audio.CheckPipeWireAvailable(cmd.Context()); err != nil {
				return err
			}

			manager, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := manager.StartWatching(ctx); err != nil {
				return fmt.Errorf("watch config: %w", err)
			}
			defer manager.Stop()

			cfg := manager.GetConfig()

			captureConfig := audio.CaptureConfig{
				SampleRate:        cfg.Recording.SampleRate,
				Channels:          cfg.Recording.Channels,
				Format:            cfg.Recording.Format,
				BufferSize:        cfg.Recording.BufferSize,
				Device:            cfg.Recording.Device,
				ChannelBufferSize: cfg.Recording.ChannelBufferSize,
			}

			screen := render.NewScreen()
			done := make(chan string, 1)

			s := realtime.New(cfg.WSBase(), auth.Load, cfg.Recording.SampleRate, realtime.Callbacks{
				OnTranscript: func(full string) {
					screen.Paint(render.StyleBox.Render(full))
				},
				OnDone: func(final string) {
					done <- final
				},
				OnError: func(msg string) {
					fmt.Fprintln(os.Stderr, render.StyleError.Render(msg))
				},
			})

			if err := s.Connect(ctx, jobID, audio.NewRecorder(captureConfig)); err != nil {
				return err
			}
			defer s.Close()

			fmt.Println(render.StyleMuted.Render("streaming… enter=pause/resume, q=stop"))

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

			keys := make(chan string)
			go func() {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					keys <- strings.TrimSpace(scanner.Text())
				}
				close(keys)
			}()

			paused := false
			for {
				select {
				case <-sig:
					if err := s.Stop(); err != nil {
						return err
					}
					printFinal(s.Transcript())
					return nil

				case final := <-done:
					printFinal(final)
					return nil

				case key, ok := <-keys:
					switch {
					case !ok || key == "q":
						if err := s.Stop(); err != nil {
							return err
						}
						printFinal(s.Transcript())
						return nil
					case key == "":
						if paused {
							if err := s.Resume(audio.NewRecorder(captureConfig)); err != nil {
								fmt.Fprintln(os.Stderr, render.StyleError.Render(err.Error()))
								continue
							}
							paused = false
							fmt.Println(render.StyleMuted.Render("resumed"))
						} else {
							s.Pause()
							paused = true
							fmt.Println(render.StyleMuted.Render("paused"))
						}
					}
				}
			}
		},
	}
}

func printFinal(transcript string) {
	fmt.Println()
	fmt.Println(render.StyleHeader.Render("Transcript"))
	fmt.Println(transcript)
}
