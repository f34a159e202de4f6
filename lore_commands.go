package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lorecast/lorecast/internal/content"
	"github.com/lorecast/lorecast/internal/lore"
)

func newLoreCommand(ctx *commandContext) *cobra.Command {
	loreCmd := &cobra.Command{
		Use:   "lore",
		Short: "Manage lore entries in the local store",
	}

	loreCmd.AddCommand(newLoreListCommand(ctx))
	loreCmd.AddCommand(newLoreAddCommand(ctx))
	loreCmd.AddCommand(newLoreVoteCommand(ctx))
	loreCmd.AddCommand(newLoreCanonCommand(ctx))

	return loreCmd
}

func newLoreListCommand(ctx *commandContext) *cobra.Command {
	var canonOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List lore entries by score",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withStore(cfg, func(store *lore.Store) error {
				entries, err := store.List(cmd.Context(), lore.ListFilter{CanonOnly: canonOnly, Limit: limit})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No lore entries")
					return nil
				}
				fmt.Fprintln(out, renderLoreTable(entries))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&canonOnly, "canon", false, "Only show canon entries")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show")
	return cmd
}

func renderLoreTable(entries []lore.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID,
			content.TruncateString(e.Title, 40),
			strconv.Itoa(e.Score),
			yesNo(e.Canon),
			e.Author,
			e.CreatedAt.Format("2006-01-02"),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Score", "Canon", "Author", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func newLoreAddCommand(ctx *commandContext) *cobra.Command {
	var in lore.NewEntry

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a lore entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withStore(cfg, func(store *lore.Store) error {
				entry, err := store.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created lore entry %s (%s)\n", entry.ID, entry.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Entry title")
	cmd.Flags().StringVar(&in.Body, "body", "", "Entry text")
	cmd.Flags().StringVar(&in.Author, "author", "", "Author name")
	cmd.Flags().StringVar(&in.AuthorWallet, "wallet", "", "Author wallet address for tips")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newLoreVoteCommand(ctx *commandContext) *cobra.Command {
	var voter string
	var down bool

	cmd := &cobra.Command{
		Use:   "vote <id>",
		Short: "Vote on a lore entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			value := 1
			if down {
				value = -1
			}
			return withStore(cfg, func(store *lore.Store) error {
				entry, err := store.Vote(cmd.Context(), args[0], voter, value)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s score %d canon %s\n", entry.ID, entry.Score, yesNo(entry.Canon))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&voter, "voter", "", "Voter identity, one vote per voter")
	cmd.Flags().BoolVar(&down, "down", false, "Vote down instead of up")
	_ = cmd.MarkFlagRequired("voter")
	return cmd
}

func newLoreCanonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "canon <id>",
		Short: "Promote a lore entry to canon regardless of votes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withStore(cfg, func(store *lore.Store) error {
				entry, err := store.Canonize(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is canon\n", entry.ID)
				return nil
			})
		},
	}
}
