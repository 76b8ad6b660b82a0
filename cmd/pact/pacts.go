package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pulsepact/internal/domain"
	"pulsepact/internal/engine"
	"pulsepact/internal/pact"
	"pulsepact/internal/stats"
)

func listCmd() *cobra.Command {
	var q stats.Query
	var variant, sort string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Variant = domain.Variant(variant)
			q.Sort = stats.SortOrder(sort)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListPacts(ctx, q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				money, err := e.Formatter(ctx)
				if err != nil {
					return err
				}
				tw := newTable(table.Row{"ID", "Title", "Type", "Status", "Staked", "Target", "Progress", "Deadline"})
				for _, p := range items {
					tw.AppendRow(table.Row{
						p.ID, p.Title, p.Variant, p.Status,
						money(p.StakedAmount), money(p.TargetAmount),
						fmt.Sprintf("%s%%", p.DisplayProgress().Round(0)),
						p.Deadline,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "match title or description")
	cmd.Flags().StringVar(&variant, "type", "", "type filter (solo, duo, cause, borrow)")
	cmd.Flags().StringVar(&q.Status, "status", "", "status filter (active, completed, failed)")
	cmd.Flags().StringVar(&sort, "sort", "", "newest, oldest, amount-high, amount-low, progress-high, progress-low")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a pact with its countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.GetPact(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				money, err := e.Formatter(ctx)
				if err != nil {
					return err
				}
				p := d.Pact
				tw := newTable(table.Row{"Field", "Value"})
				tw.AppendRows([]table.Row{
					{"ID", p.ID},
					{"Title", p.Title},
					{"Description", p.Description},
					{"Type", p.Variant},
					{"Status", p.Status},
					{"Staked", money(p.StakedAmount)},
					{"Target", money(p.TargetAmount)},
					{"Progress", fmt.Sprintf("%s%%", p.DisplayProgress().Round(1))},
					{"Deadline", p.Deadline},
					{"Time left", timeLeft(d.TimeLeft)},
					{"Created", ago(p.CreatedAt)},
				})
				switch {
				case p.Solo != nil:
					tw.AppendRow(table.Row{"Category", p.Solo.Category})
				case p.Duo != nil:
					tw.AppendRow(table.Row{"Partner", p.Duo.PartnerAddress})
					tw.AppendRow(table.Row{"Split", fmt.Sprintf("%d/%d", p.Duo.SplitRatio, 100-p.Duo.SplitRatio)})
				case p.Cause != nil:
					tw.AppendRow(table.Row{"Cause address", p.Cause.CauseAddress})
					tw.AppendRow(table.Row{"Public", p.Cause.PubliclyVisible})
				case p.Borrow != nil:
					tw.AppendRow(table.Row{"Lender", p.Borrow.LenderAddress})
					tw.AppendRow(table.Row{"Interest", p.Borrow.InterestRate.String() + "%"})
					tw.AppendRow(table.Row{"Collateral", money(p.Borrow.CollateralAmount)})
					tw.AppendRow(table.Row{"Repayment", fmt.Sprintf("%s %s", money(p.Borrow.TotalRepayment), p.Borrow.RepaymentSchedule)})
				}
				for _, c := range p.Contributors {
					tw.AppendRow(table.Row{"Contributor", fmt.Sprintf("%s %s", c.Address, money(c.Amount))})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func createCmd() *cobra.Command {
	var d pact.Draft
	var variant, target, stake string
	var category string
	var partner string
	var split int
	var causeAddress string
	var public bool
	var lender, interest, collateral, schedule string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pact",
		Long:  "Creates a pact and debits the initial stake from the wallet. Pass the terms flags matching --type.",
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Variant = domain.Variant(variant)
			var err error
			if d.TargetAmount, err = parseAmount(target); err != nil {
				return err
			}
			if stake != "" {
				if d.InitialStake, err = parseAmount(stake); err != nil {
					return err
				}
			}
			switch d.Variant {
			case domain.VariantSolo:
				d.Solo = &domain.SoloTerms{Category: category}
			case domain.VariantDuo:
				d.Duo = &domain.DuoTerms{PartnerAddress: partner, SplitRatio: split}
			case domain.VariantCause:
				d.Cause = &domain.CauseTerms{CauseAddress: causeAddress, PubliclyVisible: public}
			case domain.VariantBorrow:
				terms := &domain.BorrowTerms{LenderAddress: lender, RepaymentSchedule: domain.Cadence(schedule)}
				if terms.InterestRate, err = parseAmount(interest); err != nil {
					return err
				}
				if collateral != "" {
					if terms.CollateralAmount, err = parseAmount(collateral); err != nil {
						return err
					}
				}
				d.Borrow = terms
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreatePact(ctx, d)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("Created %s pact %s (%s)\n", p.Variant, p.ID, p.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&d.Title, "title", "", "pact title")
	cmd.Flags().StringVar(&d.Description, "description", "", "what the pact is for")
	cmd.Flags().StringVar(&variant, "type", "solo", "solo, duo, cause or borrow")
	cmd.Flags().StringVar(&target, "target", "", "target amount in ADA")
	cmd.Flags().StringVar(&stake, "stake", "", "initial stake in ADA")
	cmd.Flags().StringVar(&d.Deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "solo: category")
	cmd.Flags().StringVar(&partner, "partner", "", "duo: partner address")
	cmd.Flags().IntVar(&split, "split", 50, "duo: your share in percent")
	cmd.Flags().StringVar(&causeAddress, "cause-address", "", "cause: receiving address")
	cmd.Flags().BoolVar(&public, "public", true, "cause: accept public contributions (--public=false to disable)")
	cmd.Flags().StringVar(&lender, "lender", "", "borrow: lender address")
	cmd.Flags().StringVar(&interest, "interest", "0", "borrow: interest rate in percent")
	cmd.Flags().StringVar(&collateral, "collateral", "", "borrow: collateral amount in ADA")
	cmd.Flags().StringVar(&schedule, "schedule", "monthly", "borrow: weekly, biweekly or monthly")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func stakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stake <id> <amount>",
		Short: "Stake ADA from the wallet on a pact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Stake(ctx, args[0], amount)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				money, err := e.Formatter(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Staked %s on %q; balance %s\n", money(res.Applied), res.Pact.Title, money(res.Balance))
				return nil
			})
		},
	}
}

func completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a pact completed and collect the reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Complete(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				money, err := e.Formatter(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Completed %q, reward %s; balance %s\n", res.Pact.Title, money(res.Reward), money(res.Balance))
				return nil
			})
		},
	}
}

func failCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fail <id>",
		Short: "Mark a pact failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Fail(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("Marked %q as failed\n", p.Title)
				return nil
			})
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace all pacts with the demo set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ResetPacts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				fmt.Printf("Reset to %d demo pacts\n", len(items))
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Portfolio statistics and achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.Stats(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(r)
				}
				money, err := e.Formatter(ctx)
				if err != nil {
					return err
				}
				s := r.Summary
				fmt.Printf("Pacts: %d (%d active, %d completed, %d failed)\n", s.Total, s.Active, s.Completed, s.Failed)
				fmt.Printf("Staked: %s of %s (%.1f%%)\n", money(s.TotalStaked), money(s.TotalGoal), s.OverallProgress)
				fmt.Printf("Reputation: %d (%s)\n", s.Reputation, s.ReputationLevel)

				tw := newTable(table.Row{"Type", "Count", "Active", "Completed", "Failed", "Staked", "Success"})
				for _, v := range s.Variants {
					tw.AppendRow(table.Row{v.Variant, v.Count, v.Active, v.Completed, v.Failed, money(v.Staked), fmt.Sprintf("%.0f%%", v.SuccessRate)})
				}
				tw.Render()

				aw := newTable(table.Row{"Achievement", "Progress", "Done"})
				for _, a := range r.Achievements {
					aw.AppendRow(table.Row{a.Name, fmt.Sprintf("%.0f%%", a.Progress), a.Completed})
				}
				aw.Render()
				return nil
			})
		},
	}
}

func timeLeft(t stats.TimeLeft) string {
	if t.Expired {
		return "expired"
	}
	return fmt.Sprintf("%dd %dh %dm", t.Days, t.Hours, t.Minutes)
}
