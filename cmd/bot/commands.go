package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/internal/monitor"
	"StockSentinel/internal/notifier"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll during market hours and serve the chat menu (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}
}

func runDaemon(parent context.Context) error {
	a, err := setup(true)
	if err != nil {
		return err
	}
	defer a.close()
	return serve(parent, a, a.monitor().Run)
}

// serve runs loop next to the chat bot until a signal arrives or an admin asks
// for a restart, in which case the process re-executes itself.
func serve(parent context.Context, a *app, loop func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var restart atomic.Bool
	if err := a.bind(func() {
		restart.Store(true)
		cancel()
	}); err != nil {
		log.Warn().Err(err).Msg("register bot commands")
	}

	go a.tg.Start()
	log.Info().Msg("telegram polling started")

	err := loop(ctx)
	a.tg.Stop()

	if restart.Load() {
		log.Info().Msg("restarting")
		a.close()
		return reexec()
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}

// reexec replaces the process with a fresh copy of the current executable.
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", exe, err)
	}
	return nil
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Poll once and exit (skipped on weekends)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true)
			if err != nil {
				return err
			}
			defer a.close()
			return a.monitor().RunOnce(cmd.Context())
		},
	}
}

func newCronCmd() *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Poll on a cron schedule instead of a fixed interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true)
			if err != nil {
				return err
			}
			defer a.close()

			if spec == "" {
				spec = a.cfg.Schedule.Cron
			}
			m := a.monitor()
			return serve(cmd.Context(), a, func(ctx context.Context) error {
				c, err := m.Schedule(ctx, spec)
				if err != nil {
					return err
				}
				<-ctx.Done()
				<-c.Stop().Done()
				return ctx.Err()
			})
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "cron spec with seconds (default schedule.cron)")
	return cmd
}

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test message to every recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true)
			if err != nil {
				return err
			}
			defer a.close()

			ids, err := a.cfg.ChatIDs()
			if err != nil {
				return err
			}
			to := monitor.Recipients(model.Alert{Audience: model.AudienceAll}, ids, a.state.Snapshot())
			if len(to) == 0 {
				return fmt.Errorf("no recipients: set telegram.chat_id or /start the bot")
			}
			sent := a.tg.Broadcast(cmd.Context(), to, notifier.FormatTestMessage(a.instrument(), time.Now()))
			if sent == 0 {
				return fmt.Errorf("test message was not delivered to any of %d chats", len(to))
			}
			fmt.Printf("test message sent to %d/%d chats\n", sent, len(to))
			return nil
		},
	}
}

func newPriceCmd() *cobra.Command {
	var orderBook bool
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Print the current quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false)
			if err != nil {
				return err
			}
			defer a.close()

			q, err := a.fetcher.FetchQuote(cmd.Context())
			if err != nil {
				return err
			}
			printQuote(os.Stdout, a.instrument(), q)

			if orderBook {
				ob, err := a.fetcher.FetchOrderBook(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println()
				printOrderBook(os.Stdout, ob)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&orderBook, "orderbook", false, "also print the order book")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear today's tracking so the next poll starts a new day",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.state.ResetDay(); err != nil {
				return err
			}
			fmt.Println("day state cleared")
			return nil
		},
	}
}

func printQuote(w io.Writer, in notifier.Instrument, q *model.Quote) {
	fmt.Fprintf(w, "%s (%s) %s\n\n", in.Name, in.Code, q.Timestamp.Format("2006-01-02 15:04:05"))

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Field", "Value"}),
	)
	table.Append([]string{"Current", humanize.Comma(q.Current)})
	table.Append([]string{"Change", fmt.Sprintf("%+.2f%%", q.ChangeRate)})
	table.Append([]string{"Open", humanize.Comma(q.Open)})
	table.Append([]string{"High", humanize.Comma(q.High)})
	table.Append([]string{"Low", humanize.Comma(q.Low)})
	table.Append([]string{"Prev close", humanize.Comma(q.PrevClose)})
	table.Append([]string{"Volume", humanize.Comma(q.Volume)})
	table.Render()
}

func printOrderBook(w io.Writer, ob *model.OrderBook) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Side", "Price", "Quantity"}),
	)
	for i := len(ob.Asks) - 1; i >= 0; i-- {
		table.Append([]string{"ask", humanize.Comma(ob.Asks[i].Price), humanize.Comma(ob.Asks[i].Quantity)})
	}
	for _, l := range ob.Bids {
		table.Append([]string{"bid", humanize.Comma(l.Price), humanize.Comma(l.Quantity)})
	}
	table.Render()
	fmt.Fprintf(w, "total ask %s / total bid %s\n", humanize.Comma(ob.TotalAsk), humanize.Comma(ob.TotalBid))
}
