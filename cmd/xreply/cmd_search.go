package main

import (
	"fmt"
	"io"

	"xreply/internal/pipeline"
	"xreply/internal/types"

	"github.com/spf13/cobra"
)

var (
	searchLimit    int
	searchKeywords []string
	searchAny      bool
	searchMode     string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search X and queue reply proposals",
	Long: `Runs one search with the saved session, keeps posts whose author bio
contains a selection keyword, drafts replies and stores them as pending
proposals.

Examples:
  xreply search "AI agents"
  xreply search "SaaS" --limit 10 --keywords CEO,Founder
  xreply search "startup" --any --mode top`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum proposals to create (default: selection.limit)")
	searchCmd.Flags().StringSliceVarP(&searchKeywords, "keywords", "k", nil, "Bio keywords (default: selection.keywords)")
	searchCmd.Flags().BoolVar(&searchAny, "any", false, "Accept every author regardless of bio")
	searchCmd.Flags().StringVar(&searchMode, "mode", "", "Result ordering: recent or top (default: search.mode)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	req := pipeline.SearchRequest{
		Query:    joinArgs(args),
		Limit:    searchLimit,
		Keywords: searchKeywords,
		Mode:     types.SearchMode(searchMode),
	}
	if searchAny {
		req.Keywords = []string{}
	}

	return withApp(func(a *app) error {
		created, err := a.svc.Search(ctx, req)
		if err != nil {
			return err
		}
		printCreated(cmd.OutOrStdout(), created)
		return nil
	})
}

func printCreated(w io.Writer, created []types.Proposal) {
	if len(created) == 0 {
		fmt.Fprintln(w, "No matching posts found.")
		return
	}
	fmt.Fprintf(w, "Created %d proposal(s):\n", len(created))
	renderProposals(w, created)
}
