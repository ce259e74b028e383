package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/envelope"
	"github.com/satchel-app/satchel/internal/ui"
)

var ledgerCmd = &cobra.Command{
	Use:     "ledger",
	GroupID: "data",
	Short:   "Track spending",
}

var ledgerAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Record a ledger entry",
	Long: `Record an amount in the ledger. Expenses are negative; use the
--expense flag rather than a leading minus sign:

  satchel ledger add 12.50 --expense --category food --memo "lunch"
  satchel ledger add 2500 --category salary --on "last monday"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		memo, _ := cmd.Flags().GetString("memo")
		onStr, _ := cmd.Flags().GetString("on")
		expense, _ := cmd.Flags().GetBool("expense")

		cents, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		if expense && cents > 0 {
			cents = -cents
		}

		date := time.Now().UTC()
		if onStr != "" {
			date, err = parseNaturalTime(onStr)
			if err != nil {
				return err
			}
		}

		var entry envelope.LedgerEntry
		err = updateRecord(func(p *envelope.Payload) error {
			now := time.Now().UTC()
			entry = envelope.LedgerEntry{
				ID:          envelope.NewLedgerID(),
				AmountCents: cents,
				Category:    category,
				Memo:        memo,
				Date:        date,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			p.Ledger = append(p.Ledger, entry)
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s Recorded %s", ui.RenderPass("✓"), formatCents(cents))
		if category != "" {
			fmt.Printf(" (%s)", category)
		}
		fmt.Println()
		return nil
	},
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries with a running total",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		payload, err := a.loadPayload(context.Background())
		if err != nil {
			return err
		}

		var total int64
		var shown int
		for _, entry := range payload.Ledger {
			if category != "" && entry.Category != category {
				continue
			}
			shown++
			total += entry.AmountCents

			amount := formatCents(entry.AmountCents)
			if entry.AmountCents < 0 {
				amount = ui.RenderFail(amount)
			} else {
				amount = ui.RenderPass(amount)
			}
			line := fmt.Sprintf("%s  %10s", entry.Date.Local().Format("2006-01-02"), amount)
			if entry.Category != "" {
				line += "  " + entry.Category
			}
			if entry.Memo != "" {
				line += "  " + ui.RenderFaint(entry.Memo)
			}
			fmt.Println(line)
		}

		if shown == 0 {
			fmt.Println("No ledger entries. Add one with: satchel ledger add <amount>")
			return nil
		}

		fmt.Printf("\nTotal: %s across %d entries\n", formatCents(total), shown)
		return nil
	},
}

// parseAmount converts a decimal dollar string ("-12.50") to cents.
func parseAmount(s string) (int64, error) {
	clean := strings.TrimPrefix(strings.ReplaceAll(s, ",", ""), "$")
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := int64(value * 100)
	if value > 0 {
		cents = int64(value*100 + 0.5)
	} else if value < 0 {
		cents = int64(value*100 - 0.5)
	}
	return cents, nil
}

// formatCents renders cents as dollars.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func init() {
	ledgerAddCmd.Flags().BoolP("expense", "e", false, "record as an expense (negative amount)")
	ledgerAddCmd.Flags().StringP("category", "c", "", "entry category")
	ledgerAddCmd.Flags().StringP("memo", "m", "", "short description")
	ledgerAddCmd.Flags().String("on", "", "entry date in natural language (default today)")

	ledgerListCmd.Flags().StringP("category", "c", "", "only entries in this category")

	ledgerCmd.AddCommand(ledgerAddCmd, ledgerListCmd)
	rootCmd.AddCommand(ledgerCmd)
}
