package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ardjee/forms/internal/matcher"
)

var matchFlags struct {
	address  string
	postcode string
	city     string
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Show how an address scores against imported installations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		m := matcher.New(st, matcher.WithThreshold(cfg.Matching.SimilarityThreshold))
		candidates, err := m.Candidates(ctx, matchFlags.address, matchFlags.postcode, matchFlags.city)
		if err != nil {
			return eris.Wrap(err, "lookup installations")
		}

		out := cmd.OutOrStdout()
		if len(candidates) == 0 {
			fmt.Fprintf(out, "no installations in %s %s\n",
				matcher.NormalizePostalCode(matchFlags.postcode), matcher.NormalizeCity(matchFlags.city))
			return nil
		}

		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Score", "Adres", "Installatie", ""})
		for _, c := range matcher.Ranked(candidates) {
			mark := ""
			if c.Score >= m.Threshold() {
				mark = "ok"
			}
			table.Append([]string{
				strconv.FormatFloat(c.Score, 'f', 3, 64),
				c.Record.Address,
				c.Record.Description,
				mark,
			})
		}
		table.Render()

		if match := m.FindMatch(ctx, matchFlags.address, matchFlags.postcode, matchFlags.city); match != nil {
			fmt.Fprintf(out, "match: %s\n", match.Description)
		} else {
			fmt.Fprintf(out, "no match at threshold %.2f\n", m.Threshold())
		}
		return nil
	},
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchFlags.address, "address", "", "street and house number (required)")
	f.StringVar(&matchFlags.postcode, "postcode", "", "postal code (required)")
	f.StringVar(&matchFlags.city, "city", "", "city (required)")
	_ = matchCmd.MarkFlagRequired("address")
	_ = matchCmd.MarkFlagRequired("postcode")
	_ = matchCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(matchCmd)
}
