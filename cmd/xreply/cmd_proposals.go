package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"xreply/internal/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listJSON   bool
	editText   string
)

var proposalsCmd = &cobra.Command{
	Use:     "proposals",
	Aliases: []string{"p"},
	Short:   "Review and act on queued reply proposals",
}

var proposalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List proposals in creation order",
	RunE:  runProposalsList,
}

var proposalsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalsShow,
}

var proposalsEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Replace the reply text of a proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalsEdit,
}

var proposalsApproveCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Mark a proposal approved",
	Args:  cobra.ExactArgs(1),
	RunE:  statusCommand(types.StatusApproved),
}

var proposalsSkipCmd = &cobra.Command{
	Use:   "skip [id]",
	Short: "Mark a proposal skipped",
	Args:  cobra.ExactArgs(1),
	RunE:  statusCommand(types.StatusSkipped),
}

var proposalsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalsDelete,
}

var proposalsExecuteCmd = &cobra.Command{
	Use:   "execute [id]",
	Short: "Post the reply and like the original post",
	Long: `Opens the saved browser session, posts the proposal's reply text under the
original post, likes it and marks the proposal executed. Skipped and executed
proposals are refused.`,
	Args: cobra.ExactArgs(1),
	RunE: runProposalsExecute,
}

func init() {
	proposalsListCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only show proposals with this status")
	proposalsListCmd.Flags().BoolVar(&listJSON, "json", false, "Print raw JSON")
	proposalsEditCmd.Flags().StringVarP(&editText, "text", "t", "", "New reply text (required)")
	_ = proposalsEditCmd.MarkFlagRequired("text")

	proposalsCmd.AddCommand(proposalsListCmd)
	proposalsCmd.AddCommand(proposalsShowCmd)
	proposalsCmd.AddCommand(proposalsEditCmd)
	proposalsCmd.AddCommand(proposalsApproveCmd)
	proposalsCmd.AddCommand(proposalsSkipCmd)
	proposalsCmd.AddCommand(proposalsDeleteCmd)
	proposalsCmd.AddCommand(proposalsExecuteCmd)
}

func runProposalsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	filter := types.Status(listStatus)
	if filter != "" && !filter.Valid() {
		return fmt.Errorf("unknown status %q", listStatus)
	}

	return withApp(func(a *app) error {
		all, err := a.svc.List(ctx)
		if err != nil {
			return err
		}
		shown := make([]types.Proposal, 0, len(all))
		for _, p := range all {
			if filter == "" || p.Status == filter {
				shown = append(shown, p)
			}
		}

		out := cmd.OutOrStdout()
		if listJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(shown)
		}
		if len(shown) == 0 {
			fmt.Fprintln(out, "No proposals.")
			return nil
		}
		renderProposals(out, shown)
		return nil
	})
}

func runProposalsShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return withApp(func(a *app) error {
		p, err := a.svc.Get(ctx, args[0])
		if err != nil {
			return err
		}
		renderProposal(cmd.OutOrStdout(), p)
		return nil
	})
}

func runProposalsEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return withApp(func(a *app) error {
		p, err := a.svc.Update(ctx, args[0], types.TextPatch(editText))
		if err != nil {
			return err
		}
		renderProposal(cmd.OutOrStdout(), p)
		return nil
	})
}

func statusCommand(status types.Status) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		return withApp(func(a *app) error {
			p, err := a.svc.Update(ctx, args[0], types.StatusPatch(status))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", p.ID, statusBadge(p.Status))
			return nil
		})
	}
}

func runProposalsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return withApp(func(a *app) error {
		if err := a.svc.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

func runProposalsExecute(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return withApp(func(a *app) error {
		p, err := a.svc.Execute(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Replied to %s and liked %s\n", p.Post.AuthorHandle, p.Post.URL)
		return nil
	})
}

// Rendering

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(10)

	badgeStyles = map[types.Status]lipgloss.Style{
		types.StatusPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")),
		types.StatusApproved: lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6")),
		types.StatusSkipped:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		types.StatusExecuted: lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")),
	}
)

func statusBadge(s types.Status) string {
	style, ok := badgeStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render("● " + string(s))
}

func renderProposals(w io.Writer, ps []types.Proposal) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("ID", "STATUS", "AUTHOR", "REPLY", "CREATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, p := range ps {
		t.Row(
			p.ID,
			statusBadge(p.Status),
			fmt.Sprintf("%s %s", p.Post.Author, mutedStyle.Render(p.Post.AuthorHandle)),
			truncate(p.ReplyText, 40),
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderProposal(w io.Writer, p types.Proposal) {
	line := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), value)
	}
	line("id", p.ID)
	line("status", statusBadge(p.Status))
	line("author", fmt.Sprintf("%s %s", p.Post.Author, p.Post.AuthorHandle))
	line("bio", p.Post.AuthorProfile)
	line("post", p.Post.Text)
	line("url", p.Post.URL)
	line("reply", p.ReplyText)
	line("created", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	line("updated", p.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
}

// truncate shortens s to at most n runes on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
