package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/dtiscope/internal/application/resolver"
	"github.com/turtacn/dtiscope/internal/application/session"
	"github.com/turtacn/dtiscope/internal/domain/selection"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/pkg/errors"
)

// SearchResult is the output of `dtiscope search`.
type SearchResult struct {
	Kind        selection.Kind         `json:"kind" yaml:"kind"`
	Query       string                 `json:"query" yaml:"query"`
	Suggestions []selection.Suggestion `json:"suggestions" yaml:"suggestions"`
}

func (r SearchResult) TableHeaders() []string { return []string{"#", "Name", "Accession"} }

func (r SearchResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Suggestions))
	for i, s := range r.Suggestions {
		rows = append(rows, []string{strconv.Itoa(i + 1), truncate(s.Label, 60), s.Accession})
	}
	return rows
}

func (r SearchResult) String() string {
	if len(r.Suggestions) == 0 {
		return fmt.Sprintf("No %s matches for %q.", r.Kind, r.Query)
	}
	var sb strings.Builder
	for i, s := range r.Suggestions {
		fmt.Fprintf(&sb, "%s %s\n", color.CyanString("%2d.", i+1), s.Display())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <drug|protein> <text>",
		Short: "List suggestions for a partial drug or protein name",
		Example: "  dtiscope search drug aspi\n" +
			"  dtiscope search protein hemoglobin --limit 3 -o table",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			return runSearch(cmd, kind, strings.Join(args[1:], " "), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum suggestions (default: resolver.max_suggestions)")
	return cmd
}

func runSearch(cmd *cobra.Command, kind selection.Kind, text string, limit int) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	a, err := cliCtx.App(ctx)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cliCtx.Config.Resolver.MaxSuggestions
	}
	src := sourceFor(a.SessionDeps(), kind)

	suggestions, err := src.Suggest(ctx, strings.TrimSpace(text), limit)
	if err != nil {
		return err
	}
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	cliCtx.Logger.Debug("search completed",
		logging.String(logging.FieldKind, kind.String()),
		logging.String(logging.FieldQuery, text),
		logging.Int("count", len(suggestions)))
	return PrintResult(cmd, SearchResult{Kind: kind, Query: text, Suggestions: suggestions})
}

func parseKindArg(s string) (selection.Kind, error) {
	kind, err := selection.ParseKind(s)
	if err != nil {
		return "", errors.New(errors.ErrCodeLookupKindUnsupported, "").WithDetail(s)
	}
	return kind, nil
}

func sourceFor(deps session.Deps, kind selection.Kind) resolver.Source {
	if kind == selection.KindProtein {
		return deps.ProteinSource
	}
	return deps.DrugSource
}

//Personal.AI order the ending
