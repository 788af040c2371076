package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"standup-tracker/internal/adapters/summarizer"
	"standup-tracker/internal/calendar"
	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/config"
	"standup-tracker/internal/usecase/report"
	"standup-tracker/internal/usecase/schedule"
)

type reportService interface {
	Generate(ctx context.Context, week domain.WeekRange, opts report.GenerateOptions) (report.Outcome, error)
	Regenerate(ctx context.Context, reportID string, instructions string) (domain.WeeklyReport, error)
	Get(ctx context.Context, id string) (domain.WeeklyReport, error)
}

// connector открывает конвейер отчётов. Возвращаемая функция освобождает ресурсы.
type connector func(ctx context.Context) (reportService, func(), error)

type cli struct {
	cfg     config.AppConfig
	connect connector
	now     func() time.Time
	root    *cobra.Command
}

func newCLI(cfg config.AppConfig, connect connector) *cli {
	c := &cli{cfg: cfg, connect: connect, now: time.Now}
	c.root = &cobra.Command{
		Use:           "reportctl",
		Short:         "Operate weekly standup reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.root.AddCommand(c.generateCmd())
	c.root.AddCommand(c.regenerateCmd())
	c.root.AddCommand(c.exportCmd())
	c.root.AddCommand(c.nextTriggerCmd())
	return c
}

func (c *cli) execute(ctx context.Context, args []string, out io.Writer) error {
	c.root.SetArgs(args)
	c.root.SetOut(out)
	c.root.SetErr(out)
	return c.root.ExecuteContext(ctx)
}

func (c *cli) calendar() (*calendar.Calendar, error) {
	return calendar.New(c.cfg.ReferenceTZ)
}

func (c *cli) generateCmd() *cobra.Command {
	var (
		week         string
		force        bool
		basic        bool
		instructions string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the report for a week",
		Long: `Build and store the weekly report for the Monday..Sunday week containing --week.

Without --week the current week in the reference timezone is used.
An existing report for the week is kept unless --force is set.`,
		Example: `  reportctl generate
  reportctl generate --week=2025-01-08 --force
  reportctl generate --week=2025-01-08 --basic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cal, err := c.calendar()
			if err != nil {
				return err
			}
			day := c.now()
			if strings.TrimSpace(week) != "" {
				day, err = cal.ParseDate(week)
				if err != nil {
					return fmt.Errorf("--week: %w", err)
				}
			}
			target := cal.WeekContaining(day)

			svc, closeFn, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			outcome, err := svc.Generate(cmd.Context(), target, report.GenerateOptions{
				Source:       domain.ReportSourceManual,
				Force:        force,
				UseAI:        !basic,
				Instructions: instructions,
			})
			if err != nil {
				return fmt.Errorf("generating report: %w", err)
			}
			out := cmd.OutOrStdout()
			if outcome.Skipped {
				fmt.Fprintf(out, "week %s skipped (%s)", target, outcome.SkipReason)
				if outcome.Report.ID != "" {
					fmt.Fprintf(out, ", existing report %s", outcome.Report.ID)
				}
				fmt.Fprintln(out)
				return nil
			}
			r := outcome.Report
			fmt.Fprintf(out, "report %s generated for week %s: %d updates, %d members\n", r.ID, r.Week, r.TotalUpdates, r.UniqueMembers)
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "Any date (YYYY-MM-DD) inside the target week")
	cmd.Flags().BoolVar(&force, "force", false, "Build even if a report for the week exists")
	cmd.Flags().BoolVar(&basic, "basic", false, "Use the basic summarizer instead of the AI one")
	cmd.Flags().StringVar(&instructions, "instructions", "", "Custom instructions for the AI summary")
	return cmd
}

func (c *cli) regenerateCmd() *cobra.Command {
	var instructions string
	cmd := &cobra.Command{
		Use:   "regenerate <report-id>",
		Short: "Re-run the AI summary of a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			r, err := svc.Regenerate(cmd.Context(), args[0], instructions)
			if err != nil {
				return fmt.Errorf("regenerating report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report %s summary regenerated for week %s\n", r.ID, r.Week)
			return nil
		},
	}
	cmd.Flags().StringVar(&instructions, "instructions", "", "Custom instructions for the AI summary")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <report-id>",
		Short: "Export report entries as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			r, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading report: %w", err)
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return report.WriteCSV(w, r, summarizer.StripHTML)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write CSV to a file instead of stdout")
	return cmd
}

func (c *cli) nextTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-trigger",
		Short: "Show whether the scheduled trigger matches now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cal, err := c.calendar()
			if err != nil {
				return err
			}
			trigger, err := calendar.ParseTrigger(c.cfg.Report.TriggerDay, c.cfg.Report.TriggerTime)
			if err != nil {
				return err
			}
			s := schedule.NewScheduler(schedule.Config{Trigger: trigger}, nil, cal, zerolog.Nop())
			fmt.Fprintln(cmd.OutOrStdout(), s.Describe(c.now()))
			return nil
		},
	}
}
