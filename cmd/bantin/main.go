package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/minhngoc/bantin/internal/config"
	"github.com/minhngoc/bantin/internal/digest"
	"github.com/minhngoc/bantin/internal/mail"
	"github.com/minhngoc/bantin/internal/pipeline"
	"github.com/minhngoc/bantin/internal/schedule"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "bantin",
	Short:   "Daily Vietnamese news digest",
	Long:    "Bantin fetches Vietnamese news sources, keeps today's articles, sorts them into topics, and emails a short morning digest.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bantin", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/bantin/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure sources, topics, and SMTP delivery.")
		return nil
	},
}

// --- run command ---

var (
	runDate string
	dryRun  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the digest and email it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := resolveDate(runDate)
		if err != nil {
			return err
		}

		result := pipeline.New(cfg).Run(context.Background(), ref)
		printSteps(result)
		printReport(result)

		if dryRun {
			printDigest(result.Digest)
			fmt.Println("\nDry run: no email sent.")
			return nil
		}
		return deliver(context.Background(), result.Digest)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "Build the digest for this day (YYYY-MM-DD, default today)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the digest instead of emailing it")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the digest every day on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		job := func(now time.Time) {
			result := pipeline.New(cfg).Run(ctx, now)
			if err := deliver(ctx, result.Digest); err != nil {
				log.Printf("Delivery failed: %v", err)
			}
		}

		sched, err := schedule.New(cfg.Schedule, cfg.Location(), job)
		if err != nil {
			return err
		}

		sched.Start()
		fmt.Printf("Scheduler running (%s, %s). Press Ctrl+C to stop.\n", cfg.Schedule, cfg.Timezone)
		<-ctx.Done()
		fmt.Println("\nStopping scheduler...")
		sched.Stop()
		return nil
	},
}

// --- preview command ---

var previewOut string

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Build the digest and write the email HTML to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := time.Now().In(cfg.Location())
		result := pipeline.New(cfg).Run(context.Background(), ref)

		builder, err := mail.NewBuilder()
		if err != nil {
			return err
		}
		if err := builder.WritePreview(result.Digest, previewOut); err != nil {
			return err
		}
		fmt.Printf("Open %s in a browser to inspect the email.\n", previewOut)
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "email_preview.html", "Where to write the preview HTML")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and schedule status",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := cfg.Location()
		now := time.Now().In(loc)
		fmt.Printf("Today: %s (%s)\n\n", now.Format("02/01/2006"), cfg.Timezone)

		fmt.Println("Sources:")
		fmt.Printf("  Feeds: %d\n", len(cfg.Sources.Feeds))
		fmt.Printf("  Scraped pages: %d\n", len(cfg.Sources.Scrape))

		fmt.Println("\nRules:")
		fmt.Printf("  Topics: %s\n", strings.Join(cfg.Rules.CategoryOrder(), " > "))
		fmt.Printf("  Negative keywords: %d\n", len(cfg.Rules.Negative))

		fmt.Println("\nDigest:")
		fmt.Printf("  Articles per email: %d\n", cfg.Digest.Size)
		fmt.Printf("  Summary length: %d characters\n", cfg.Digest.SummaryLength)

		fmt.Println("\nDelivery:")
		if cfg.SMTP.Ready() && len(cfg.Recipients) > 0 {
			fmt.Printf("  SMTP: %s:%d\n", cfg.SMTP.Host, cfg.SMTP.Port)
			fmt.Printf("  Recipients: %d\n", len(cfg.Recipients))
		} else {
			fmt.Println("  SMTP: not configured (emails are skipped)")
		}

		next, err := schedule.NextAfter(cfg.Schedule, loc, now)
		if err != nil {
			return err
		}
		fmt.Printf("\nSchedule: %s, next run at %s\n", cfg.Schedule, next.Format("15:04 02/01/2006"))
		return nil
	},
}

// resolveDate turns --date into a reference time in the configured
// timezone, defaulting to now.
func resolveDate(date string) (time.Time, error) {
	if date == "" {
		return time.Now().In(cfg.Location()), nil
	}
	ref, err := time.ParseInLocation("2006-01-02", date, cfg.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
	}
	return ref, nil
}

func printSteps(result *pipeline.Result) {
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
		fmt.Printf("  %s\n", step.Summary)
	}
}

func printReport(result *pipeline.Result) {
	fmt.Println("\nSource report:")
	for _, oc := range result.Fetch.Outcomes {
		if oc.Reason != "" {
			fmt.Printf("  %s: %s (%s)\n", oc.Source, oc.Status, oc.Reason)
		} else {
			fmt.Printf("  %s: %s, %d articles\n", oc.Source, oc.Status, oc.Articles)
		}
	}
}

func printDigest(d *digest.Digest) {
	fmt.Printf("\nDigest for %s:\n", d.Date.Format("02/01/2006"))
	if d.Empty() {
		fmt.Println("  (no matching news)")
		return
	}
	for i, a := range d.Articles {
		fmt.Printf("  %d. [%s] %s\n", i+1, a.Category, a.Title)
		fmt.Printf("     %s | %s\n", a.Source, a.Published.Format("15:04, 02/01/2006"))
		fmt.Printf("     %s\n", a.Link)
	}
}

// deliver renders and emails the digest. Without SMTP settings the run
// still succeeds; delivery is simply skipped.
func deliver(ctx context.Context, d *digest.Digest) error {
	if !cfg.SMTP.Ready() || len(cfg.Recipients) == 0 {
		log.Println("SMTP not configured, skipping email delivery")
		return nil
	}

	builder, err := mail.NewBuilder()
	if err != nil {
		return err
	}
	body, err := builder.Render(d)
	if err != nil {
		return err
	}
	return mail.NewSender(cfg.SMTP, cfg.Recipients).Send(ctx, builder.Subject(d.Date), body)
}
