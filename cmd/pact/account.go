package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pulsepact/internal/currency"
	"pulsepact/internal/domain"
	"pulsepact/internal/engine"
)

func walletCmd() *cobra.Command {
	w := &cobra.Command{
		Use:   "wallet",
		Short: "Demo wallet",
	}
	w.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wallet, err := e.Wallet(ctx)
				if err != nil {
					return err
				}
				return printBalance(ctx, e, wallet)
			})
		},
	})
	w.AddCommand(&cobra.Command{
		Use:   "add-funds [amount]",
		Short: "Add demo funds (configured amount by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount := decimal.Zero
			if len(args) == 1 {
				var err error
				if amount, err = parseAmount(args[0]); err != nil {
					return err
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wallet, err := e.AddFunds(ctx, amount)
				if err != nil {
					return err
				}
				return printBalance(ctx, e, wallet)
			})
		},
	})
	return w
}

func printBalance(ctx context.Context, e engine.Engine, w domain.Wallet) error {
	if viper.GetBool("json") {
		return printJSON(w)
	}
	money, err := e.Formatter(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Balance: %s\n", money(w.Balance))
	return nil
}

func notifyCmd() *cobra.Command {
	n := &cobra.Command{
		Use:     "notify",
		Aliases: []string{"notifications"},
		Short:   "Notifications",
	}
	n.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, unread, err := e.Notifications(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"items": items, "unread": unread})
				}
				tw := newTable(table.Row{"ID", "", "Type", "Title", "Message", "When"})
				for _, item := range items {
					mark := "*"
					if item.Read {
						mark = ""
					}
					tw.AppendRow(table.Row{item.ID, mark, item.Type, item.Title, item.Message, ago(item.Timestamp)})
				}
				tw.Render()
				fmt.Printf("%d unread\n", unread)
				return nil
			})
		},
	})
	n.AddCommand(&cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.MarkNotificationRead(ctx, args[0])
			})
		},
	})
	n.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.MarkAllNotificationsRead(ctx)
			})
		},
	})
	n.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.ClearNotifications(ctx)
			})
		},
	})
	return n
}

func streakCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "streak",
		Short: "Daily engagement streak",
	}
	show := func(st domain.Streak) error {
		if viper.GetBool("json") {
			return printJSON(st)
		}
		last := st.LastCheckIn
		if last == "" {
			last = "never"
		}
		fmt.Printf("Streak: %d days (last check-in %s)\n", st.Count, last)
		return nil
	}
	s.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				st, err := e.Streak(ctx)
				if err != nil {
					return err
				}
				return show(st)
			})
		},
	})
	s.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Run the daily check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				st, err := e.CheckStreak(ctx)
				if err != nil {
					return err
				}
				return show(st)
			})
		},
	})
	s.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset the streak to zero",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.ResetStreak(ctx)
			})
		},
	})
	return s
}

func currencyCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "currency",
		Short: "Display currency (ADA or NGN)",
	}
	show := func(p domain.CurrencyPreference) error {
		if viper.GetBool("json") {
			return printJSON(p)
		}
		fmt.Printf("Currency: %s (1 ADA = %s)\n", p.Unit, currency.FormatIn(domain.CurrencyNGN, decimal.NewFromInt(1), p.ExchangeRate))
		return nil
	}
	c.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the preference",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Currency(ctx)
				if err != nil {
					return err
				}
				return show(p)
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between ADA and NGN",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.ToggleCurrency(ctx)
				if err != nil {
					return err
				}
				return show(p)
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "rate <ngn-per-ada>",
		Short: "Set the exchange rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.SetExchangeRate(ctx, rate)
				if err != nil {
					return err
				}
				return show(p)
			})
		},
	})
	return c
}

func ago(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}
