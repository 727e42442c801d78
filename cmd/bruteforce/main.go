// Command bruteforce drives the replace dialogs of a running autoreplace
// server with random actions and checks every view it gets back for broken
// invariants. Each attempt plays one session; the last session id is kept in
// .session so a run can be resumed with --continue.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
)

const sessionFile = ".session"

// RunOptions controls one attempt
type RunOptions struct {
	MaxSteps int
	Delay    time.Duration
	Verbose  bool
}

// Report summarises one attempt
type Report struct {
	Steps      int
	Rejected   int
	Ticks      int
	Applied    int
	Violations []string
}

// Run plays one session from its train dialog until MaxSteps, checking the
// view after every step. It stops early on transport errors.
func Run(ctx context.Context, c *Client, strategy *RandomStrategy, opts RunOptions) (*Report, error) {
	report := &Report{}

	cat := catalog.Train
	view, err := c.OpenDialog(ctx, cat, catalog.DefaultGroup)
	if err != nil {
		return report, fmt.Errorf("open dialog: %w", err)
	}
	check := func(step Step, v *replace.View) {
		for _, msg := range CheckView(v, cat) {
			report.Violations = append(report.Violations, fmt.Sprintf("step %d (%s): %s", report.Steps, step, msg))
		}
	}
	check(Step{Kind: StepSwitchDialog, Category: cat}, view)

	for report.Steps < opts.MaxSteps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Steps++

		step := strategy.Next(view)
		if opts.Verbose {
			log.Debug().Int("step", report.Steps).Stringer("do", step).Msg("step")
		}

		err := perform(ctx, c, strategy, step, &cat, report)
		switch {
		case err == nil:
		case IsRejected(err):
			report.Rejected++
		default:
			return report, fmt.Errorf("step %d (%s): %w", report.Steps, step, err)
		}

		// always redraw: world events and ticks change the dialog indirectly
		view, err = c.GetView(ctx, cat)
		if err != nil {
			return report, fmt.Errorf("step %d: redraw: %w", report.Steps, err)
		}
		check(step, view)

		if opts.Delay > 0 {
			time.Sleep(opts.Delay)
		}
	}
	return report, nil
}

func perform(ctx context.Context, c *Client, strategy *RandomStrategy, step Step, cat *catalog.Category, report *Report) error {
	switch step.Kind {
	case StepAction:
		_, err := c.Act(ctx, *cat, step.Action)
		return err
	case StepTick:
		res, err := c.Tick(ctx)
		if err != nil {
			return err
		}
		report.Ticks++
		report.Applied += res.Executed
		return nil
	case StepSwitchDialog:
		if _, err := c.OpenDialog(ctx, step.Category, catalog.DefaultGroup); err != nil {
			return err
		}
		*cat = step.Category
		return nil
	}

	engines, err := c.Engines(ctx, *cat)
	if err != nil || len(engines) == 0 {
		return err
	}
	e := engines[strategy.Pick(len(engines))]

	switch step.Kind {
	case StepBuy:
		return c.Buy(ctx, e.ID, 1+strategy.Pick(3))
	case StepSell:
		return c.Sell(ctx, e.ID, 1)
	case StepRetire:
		return c.SetBuildable(ctx, e.ID, false)
	case StepIntroduce:
		return c.SetBuildable(ctx, e.ID, true)
	default:
		return fmt.Errorf("unknown step %s", step.Kind)
	}
}

// resumeOrCreate continues a saved session when possible
func resumeOrCreate(ctx context.Context, c *Client, resume, scenario string) error {
	if resume != "" {
		c.sessionID = resume
		_, err := c.GetSession(ctx)
		if err == nil {
			log.Info().Str("session", resume).Msg("Resuming session")
			return nil
		}
		log.Warn().Err(err).Msg("Failed to resume session (may be expired), creating a new one")
	}

	info, err := c.CreateSession(ctx, scenario)
	if err != nil {
		return err
	}
	log.Info().Str("session", info.ID).Str("scenario", info.ScenarioName).Msg("Session created")
	if err := os.WriteFile(sessionFile, []byte(info.ID), 0644); err != nil {
		log.Warn().Err(err).Msg("Failed to save session ID")
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "bruteforce",
		Usage: "drive replace dialogs with random actions and check invariants",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "server URL"},
			&cli.StringFlag{Name: "scenario", Usage: "scenario for new sessions"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by ID"},
			&cli.IntFlag{Name: "max-steps", Value: 2000, Usage: "steps per attempt"},
			&cli.IntFlag{Name: "attempts", Value: 5, Usage: "number of sessions to play"},
			&cli.IntFlag{Name: "seed", Value: int(time.Now().UnixNano() & 0x7fffffff), Usage: "random seed"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between steps"},
			&cli.BoolFlag{Name: "v", Usage: "log every step"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Info().Str("url", cmd.String("url")).Int("seed", cmd.Int("seed")).Msg("Connecting to autoreplace server")
			client := NewClient(cmd.String("url"))
			strategy := NewRandomStrategy(uint64(cmd.Int("seed")))

			resume := cmd.String("continue")
			if resume == "" {
				if data, err := os.ReadFile(sessionFile); err == nil {
					resume = string(bytes.TrimSpace(data))
				}
			}

			var violations int
			for attempt := 1; attempt <= cmd.Int("attempts"); attempt++ {
				if err := resumeOrCreate(ctx, client, resume, cmd.String("scenario")); err != nil {
					return err
				}
				resume = ""

				report, err := Run(ctx, client, strategy, RunOptions{
					MaxSteps: cmd.Int("max-steps"),
					Delay:    cmd.Duration("delay"),
					Verbose:  cmd.Bool("v"),
				})
				log.Info().
					Int("attempt", attempt).
					Int("steps", report.Steps).
					Int("rejected", report.Rejected).
					Int("ticks", report.Ticks).
					Int("applied", report.Applied).
					Int("violations", len(report.Violations)).
					Msg("Attempt finished")
				for _, v := range report.Violations {
					log.Error().Str("session", client.sessionID).Msg(v)
				}
				violations += len(report.Violations)
				if err != nil {
					return err
				}
			}

			if violations > 0 {
				return cli.Exit(fmt.Sprintf("%d invariant violations", violations), 1)
			}
			log.Info().Msg("No invariant violations")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bruteforce failed")
	}
}
