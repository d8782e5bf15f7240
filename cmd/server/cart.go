package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/recipecart/backend/internal/domain"
	"github.com/spf13/cobra"
)

type cartCmd struct {
	storefront string
}

func newCartCommand() *cobra.Command {
	c := &cartCmd{}

	cmd := &cobra.Command{
		Use:   "cart <items.json>",
		Short: "Add a list of products to the cart and exit",
		Long: `Reads a JSON array of {"asin", "quantity", "url"} entries ("-" for stdin),
adds each one to the storefront cart in order, and prints the run report.`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}
	cmd.Flags().StringVar(&c.storefront, "storefront", domain.StorefrontAmazon, "storefront to prefer when picking a tab (amazon, fresh, wholefoods)")

	return cmd
}

func (c *cartCmd) run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	entries, err := readEntries(in)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.runs.Run(ctx, entries, c.storefront)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Error != "" {
		return fmt.Errorf("cart run failed: %s", report.Error)
	}
	return nil
}

// readEntries decodes the cart queue file
func readEntries(r io.Reader) ([]domain.CartQueueEntry, error) {
	var entries []domain.CartQueueEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode cart entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrEmptyCart
	}
	return entries, nil
}
