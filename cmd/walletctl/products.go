package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"growth-wallet/internal/config"
	"growth-wallet/internal/domain"
)

func newProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the product catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := config.LoadCatalog(catalogFile)
			if err != nil {
				return err
			}
			return printProducts(cmd.OutOrStdout(), products)
		},
	}
}

func printProducts(w io.Writer, products []domain.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tBASE PRICE\tMATERIAL\tMARKETING\tWEEKLY SALES")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			p.ID, p.Name, p.Category,
			humanize.Commaf(p.BasePrice),
			humanize.Commaf(p.MaterialCost),
			humanize.Commaf(p.InitialMarketingCost),
			p.OpeningSales(),
		)
	}
	return tw.Flush()
}
