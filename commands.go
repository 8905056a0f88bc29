package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/soocke/lipread-go/app"
	"github.com/soocke/lipread-go/domain/history"
	"github.com/soocke/lipread-go/domain/recognition"
)

func newHeadlessCmd() *cobra.Command {
	var (
		image   string
		verbose bool
		noHTTP  bool
		idle    bool
	)
	cmd := &cobra.Command{
		Use:   "headless",
		Short: "Run the pipeline without a window",
		Long: `Runs the sampling pipeline and prints captions to the terminal. The HTTP
API (http_addr) and the MQTT sink (mqtt_broker) receive every result and
status. Stops on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, flush, err := setup()
			if err != nil {
				return err
			}
			defer flush()
			c, err := app.BuildContainer(cfg, logger, app.Options{ImagePath: image})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h := app.NewHeadless(c, app.HeadlessOptions{
				ConfigPath: cfgPath,
				Out:        cmd.OutOrStdout(),
				Verbose:    verbose,
				NoHTTP:     noHTTP,
				Idle:       idle,
			})
			return h.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "read frames from an image file instead of the screen")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every status change")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "do not serve the HTTP API")
	cmd.Flags().BoolVar(&idle, "idle", false, "wait for POST /start before sampling")
	return cmd
}

func newVideoCmd() *cobra.Command {
	var (
		speak    bool
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "video <path>",
		Short: "Read lips in a recorded video",
		Long: `Uploads a video to the recognition service, translates the recognized
text and prints both. --from auto guesses the spoken language from the text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, flush, err := setup()
			if err != nil {
				return err
			}
			defer flush()
			if !speak {
				cfg.SpeechEngine = "none"
			}
			c, err := app.BuildContainer(cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer c.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := c.ProcessVideo(ctx, args[0], app.VideoOptions{Source: from, Target: to, Speak: speak})
			if err != nil {
				return err
			}
			if res.Original == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no speech recognized")
				return nil
			}
			t := newTable("", "TEXT")
			t.Row(res.Source, res.Original)
			t.Row(res.Target, res.Translated)
			t.Row("conf", fmt.Sprintf("%.0f%%", res.Confidence*100))
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&speak, "speak", false, "speak the translation")
	cmd.Flags().StringVar(&from, "from", "", "spoken language, or auto (default from config)")
	cmd.Flags().StringVar(&to, "to", "", "translation target (default from config)")
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List voices of the configured speech engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, flush, err := setup()
			if err != nil {
				return err
			}
			defer flush()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			voices, pick, ok, err := app.Voices(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if len(voices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no voices reported by", cfg.SpeechEngine)
				return nil
			}
			t := newTable("", "ID", "NAME", "LANGUAGE", "GENDER")
			for _, v := range voices {
				mark := ""
				if ok && v.ID == pick.ID {
					mark = "*"
				}
				t.Row(mark, v.ID, v.Name, v.Language, string(v.Gender))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		wipe  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print or clear stored captions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, flush, err := setup()
			if err != nil {
				return err
			}
			defer flush()
			store, err := history.Open(cfg.HistoryPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := cmd.Context()
			if wipe {
				if err := store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
				return nil
			}
			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			t := newTable("TIME", "ORIGINAL", "TRANSLATED", "CONF", "LANG")
			for _, e := range entries {
				t.Row(
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.Original,
					e.Translated,
					fmt.Sprintf("%.0f%%", e.Confidence*100),
					e.Source+"→"+e.Target,
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	cmd.Flags().BoolVar(&wipe, "clear", false, "delete all entries")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the recognition service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, flush, err := setup()
			if err != nil {
				return err
			}
			defer flush()
			hc := recognition.DefaultHTTPConfig()
			if cfg.RecognizerURL != "" {
				hc.BaseURL = cfg.RecognizerURL
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := recognition.NewHTTPRecognizer(hc, logger).Health(ctx); err != nil {
				return fmt.Errorf("recognizer %s: %w", hc.BaseURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recognizer %s: online\n", hc.BaseURL)
			return nil
		},
	}
}
