package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/tariff"
)

var priceFlags struct {
	contractType string
	frequency    int
	tier         string
	monitoring   bool
	distance     string
	powerBand    string
	units        int
	stored       float64
	newFrequency int
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Compute the monthly price of a contract",
	Long:  "Prices a contract from the tariff catalog. With --new-frequency the price is recomputed for a frequency change, using --stored-price for contract types without a tariff table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ct := model.ContractType(priceFlags.contractType)
		if !ct.Valid() {
			return eris.Errorf("unknown contract type %q", priceFlags.contractType)
		}

		calc, err := initCalculator()
		if err != nil {
			return err
		}

		c := model.Contract{
			Type: ct,
			Appliance: model.Appliance{
				PowerBand:   priceFlags.powerBand,
				IndoorUnits: priceFlags.units,
			},
			Subscription: model.Subscription{
				Frequency:    model.Frequency(priceFlags.frequency),
				Tier:         model.Tier(priceFlags.tier),
				Monitoring:   priceFlags.monitoring,
				DistanceBand: model.DistanceBand(priceFlags.distance),
			},
		}
		if priceFlags.stored > 0 {
			c.SetPrice(priceFlags.stored, true)
		}

		out := cmd.OutOrStdout()
		if priceFlags.newFrequency > 0 {
			amount, ok := calc.Recompute(c, model.Frequency(priceFlags.newFrequency))
			fmt.Fprintln(out, tariff.FormatMonthly(amount, ok))
			return nil
		}

		if q, ok := calc.Quote(c); ok {
			renderQuote(out, q)
			return nil
		}
		amount, ok := calc.MonthlyPrice(c)
		fmt.Fprintln(out, tariff.FormatMonthly(amount, ok))
		return nil
	},
}

func renderQuote(w io.Writer, q tariff.Quote) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Component", "Bedrag"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append([]string{"Basistarief", tariff.FormatEUR(q.Base)})
	table.Append([]string{"Monitoring", tariff.FormatEUR(q.Monitoring)})
	table.Append([]string{"Afstandstoeslag", tariff.FormatEUR(q.Distance)})
	table.SetFooter([]string{"Per maand", tariff.FormatEUR(q.Total)})
	table.Render()
}

func init() {
	f := priceCmd.Flags()
	f.StringVar(&priceFlags.contractType, "type", "", "contract type, e.g. cv-ketel (required)")
	f.IntVar(&priceFlags.frequency, "frequency", 12, "maintenance interval in months (12, 18 or 24)")
	f.StringVar(&priceFlags.tier, "tier", string(model.TierMaintenance), "subscription tier (onderhoud or service-plus)")
	f.BoolVar(&priceFlags.monitoring, "monitoring", false, "include the monitoring add-on")
	f.StringVar(&priceFlags.distance, "distance", "", "distance band (0-15km, 15-30km or 31-50km)")
	f.StringVar(&priceFlags.powerBand, "power-band", "", "cv-ketel power band (tot-45kw or 45-70kw)")
	f.IntVar(&priceFlags.units, "units", 0, "airco indoor units (1-4)")
	f.Float64Var(&priceFlags.stored, "stored-price", 0, "current monthly price, for recomputing types without a tariff table")
	f.IntVar(&priceFlags.newFrequency, "new-frequency", 0, "recompute the price for this interval")
	_ = priceCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(priceCmd)
}
