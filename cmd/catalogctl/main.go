// catalogctl is a small CLI client for the catalogd HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dreamware/catalogd/internal/api"
	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/coordinator"
)

var serverURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Client for the catalogd product catalog",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "catalogd base URL")

	rootCmd.AddCommand(
		signInCmd(),
		signOutCmd(),
		listCmd(),
		addCmd(),
		updateCmd(),
		deleteCmd(),
		reassignCmd(),
		searchCmd(),
		shardsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signInCmd() *cobra.Command {
	var label, role string
	cmd := &cobra.Command{
		Use:   "signin <caller-id>",
		Short: "Start a session; shard subscriptions open on success",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SignInRequest{CallerID: args[0], Label: label, Role: catalog.Role(role)}
			return api.PostJSON(context.Background(), serverURL+"/session", req, nil)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "display label for the caller")
	cmd.Flags().StringVar(&role, "role", string(catalog.RoleOwner), "caller role: guest, owner or admin")
	return cmd
}

func signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the session; all shard subscriptions are torn down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return api.DeleteJSON(context.Background(), serverURL+"/session", nil)
		},
	}
}

func listCmd() *cobra.Command {
	var filtered bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the aggregated product view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var view api.ViewResponse
			if err := api.GetJSON(context.Background(), serverURL+"/products", &view); err != nil {
				return err
			}
			products := view.Products
			if filtered {
				products = view.Filtered
			}
			printProducts(products)
			return nil
		},
	}
	cmd.Flags().BoolVar(&filtered, "filtered", false, "print the filtered view instead of the full one")
	return cmd
}

func addCmd() *cobra.Command {
	var name string
	var code int64
	var price float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product; the shard is chosen by the placement function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.CreateProductRequest{Product: coordinator.NewProduct{Name: name, Code: code, Price: price}}
			var resp api.ProductResponse
			if err := api.PostJSON(context.Background(), serverURL+"/products", req, &resp); err != nil {
				return err
			}
			fmt.Printf("created %s in %s\n", resp.Product.ID, resp.Product.ShardID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().Int64Var(&code, "code", 0, "product code (partition key)")
	cmd.Flags().Float64Var(&price, "price", 0, "product price")
	return cmd
}

func updateCmd() *cobra.Command {
	var shardID, name string
	var price float64
	cmd := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Patch a product's name and/or price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := catalog.Patch{}
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("price") {
				patch.Price = &price
			}
			req := api.UpdateProductRequest{ShardID: shardID, Patch: patch}
			url := serverURL + "/products/" + args[0]
			return api.PatchJSON(context.Background(), url, req, nil)
		},
	}
	cmd.Flags().StringVar(&shardID, "shard", "", "owning shard ID (from the view)")
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().Float64Var(&price, "price", 0, "new price")
	return cmd
}

func deleteCmd() *cobra.Command {
	var shardID string
	cmd := &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Delete a product and its shard-map entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/products/%s?shard=%s", serverURL, args[0], shardID)
			return api.DeleteJSON(context.Background(), url, nil)
		},
	}
	cmd.Flags().StringVar(&shardID, "shard", "", "owning shard ID")
	return cmd
}

func reassignCmd() *cobra.Command {
	var shardID, ownerID, ownerLabel string
	cmd := &cobra.Command{
		Use:   "reassign <product-id>",
		Short: "Transfer a record to a new owner (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.ReassignOwnerRequest{ShardID: shardID, OwnerID: ownerID, OwnerLabel: ownerLabel}
			url := serverURL + "/products/" + args[0] + "/owner"
			return api.PostJSON(context.Background(), url, req, nil)
		},
	}
	cmd.Flags().StringVar(&shardID, "shard", "", "owning shard ID")
	cmd.Flags().StringVar(&ownerID, "owner", "", "new owner ID")
	cmd.Flags().StringVar(&ownerLabel, "owner-label", "", "new owner label")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Set the search term for the filtered view",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			req := struct {
				Term string `json:"term"`
			}{Term: term}
			return api.PostJSON(context.Background(), serverURL+"/search", req, nil)
		},
	}
}

func shardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shards",
		Short: "Print shard metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Shards []struct {
					ID       string `json:"id"`
					State    string `json:"state"`
					DocCount int    `json:"doc_count"`
				} `json:"shards"`
			}
			if err := api.GetJSON(context.Background(), serverURL+"/shards", &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SHARD\tSTATE\tDOCS")
			for _, s := range resp.Shards {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.State, s.DocCount)
			}
			return tw.Flush()
		},
	}
}

func printProducts(products []catalog.Product) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCODE\tPRICE\tOWNER\tSHARD")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t%s\n", p.ID, p.Name, p.Code, p.Price, p.OwnerLabel, p.ShardID)
	}
	_ = tw.Flush()
}
