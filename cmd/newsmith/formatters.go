package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/pipeline"
)

// printAcquireResult prints an acquisition summary
func printAcquireResult(w io.Writer, result *pipeline.AcquireResult, format string) {
	if format == "json" {
		errs := make([]string, 0, len(result.Errors))
		for _, err := range result.Errors {
			errs = append(errs, err.Error())
		}
		printJSON(w, map[string]any{
			"run_id":      result.RunID,
			"found":       result.Found,
			"stored":      result.Stored,
			"skipped":     result.Skipped,
			"duplicates":  result.Duplicates,
			"failed":      result.Failed,
			"errors":      errs,
			"duration_ms": result.Duration.Milliseconds(),
		})
		return
	}

	fmt.Fprintln(w, "Acquisition completed:")
	fmt.Fprintf(w, "  Run: %s\n", result.RunID)
	fmt.Fprintf(w, "  Found: %d\n", result.Found)
	fmt.Fprintf(w, "  Stored: %d\n", result.Stored)
	fmt.Fprintf(w, "  Already stored: %d\n", result.Skipped)
	fmt.Fprintf(w, "  Duplicates: %d\n", result.Duplicates)
	fmt.Fprintf(w, "  Failed: %d\n", result.Failed)

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, err := range result.Errors {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}
}

// printRewriteResult prints a rewrite summary
func printRewriteResult(w io.Writer, result *pipeline.RewriteResult, format string) {
	if format == "json" {
		printJSON(w, map[string]any{
			"run_id":      result.RunID,
			"status":      result.Status,
			"source_id":   result.SourceID,
			"source_url":  result.SourceURL,
			"rewrite_id":  result.RewriteID,
			"references":  result.References,
			"duration_ms": result.Duration.Milliseconds(),
		})
		return
	}

	fmt.Fprintf(w, "Rewrite %s: %s\n", result.RunID, result.Status)
	if result.SourceID != "" {
		fmt.Fprintf(w, "  Source: %s (%s)\n", result.SourceID, result.SourceURL)
	}
	if result.RewriteID != "" {
		fmt.Fprintf(w, "  Rewrite: %s\n", result.RewriteID)
	}
	for i, ref := range result.References {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, ref)
	}
}

// printArticleTable prints articles in human-readable table format
func printArticleTable(w io.Writer, list []articles.Article) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No articles to display.")
		return
	}

	for _, article := range list {
		marker := " "
		switch {
		case article.Kind == articles.KindRewritten:
			marker = "R"
		case article.Processed:
			marker = "✓"
		}

		// Truncate title for display
		title := article.Title
		if len(title) > 70 {
			title = title[:67] + "..."
		}

		fmt.Fprintf(w, "%s %s\n", marker, title)
		fmt.Fprintf(w, "   %s | Stored: %s\n", article.Kind, article.CreatedAt.Format("2006-01-02 15:04"))
		if article.SourceURL != nil {
			fmt.Fprintf(w, "   URL: %s\n", *article.SourceURL)
		}
		if article.ParentID != nil {
			fmt.Fprintf(w, "   Source: %s\n", article.ParentID.String())
		}
		fmt.Fprintf(w, "   ID: %s\n", article.ID.String())
		fmt.Fprintln(w)
	}
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(w, "failed to encode summary: %v\n", err)
	}
}
