package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"feedqa/internal/formatter"
	"feedqa/internal/models"
)

var addCmd = &cobra.Command{
	Use:   "add <url> [url...]",
	Short: "Fetch, parse and store one or more feeds",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rd, err := current.Reader()
		if err != nil {
			return err
		}

		feeds, err := rd.AddFeeds(cmd.Context(), args...)

		for _, f := range feeds {
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s  %s (%d articles)\n", f.ID, f.Title, len(f.Articles))
		}

		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "❌ %v\n", err)

			return fmt.Errorf("%d of %d feeds failed", len(args)-len(feeds), len(args))
		}

		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored feeds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rd, err := current.Reader()
		if err != nil {
			return err
		}

		feeds, err := rd.Feeds(cmd.Context())
		if err != nil {
			return err
		}

		if len(feeds) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No feeds yet. Add one with: feedqa add <url>")

			return nil
		}

		fmt.Fprint(cmd.OutOrStdout(), formatter.FeedsTable(feeds))

		return nil
	},
}

var articlesCmd = &cobra.Command{
	Use:   "articles <feed-id>",
	Short: "List the articles of a stored feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rd, err := current.Reader()
		if err != nil {
			return err
		}

		feed, err := rd.Feed(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", feed.Title)
		fmt.Fprint(cmd.OutOrStdout(), formatter.ArticlesTable(feed))

		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <feed-id> <index>",
	Short: "Print one article as plain text",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[1])
		if err != nil {
			return err
		}

		rd, err := current.Reader()
		if err != nil {
			return err
		}

		article, err := rd.Article(cmd.Context(), args[0], index)
		if err != nil {
			return err
		}

		printArticle(cmd, article, rd.PlainText(article))

		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <feed-id>",
	Short: "Delete a stored feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rd, err := current.Reader()
		if err != nil {
			return err
		}

		if err := rd.RemoveFeed(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "🗑️  removed %s\n", args[0])

		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a local feed document without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := current.client.DetectFileFormat(args[0])
		if err != nil {
			return err
		}

		articles, err := current.client.ParseFile(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s feed, %d articles\n\n", format, len(articles))
		fmt.Fprint(cmd.OutOrStdout(), formatter.ArticlesTable(models.NewFeed("", args[0], articles, time.Now())))

		return nil
	},
}

var errBadIndex = errors.New("article index must be a non-negative integer")

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: %q", errBadIndex, s)
	}

	return index, nil
}

func printArticle(cmd *cobra.Command, a *models.Article, text string) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, a.Title)

	if a.Author != "" || a.PubDate != "" {
		fmt.Fprintf(out, "%s  %s\n", a.Author, a.PubDate)
	}

	if a.Link != "" {
		fmt.Fprintln(out, a.Link)
	}

	fmt.Fprintf(out, "\n%s\n", text)
}
