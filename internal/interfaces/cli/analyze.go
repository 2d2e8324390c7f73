package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/turtacn/dtiscope/internal/application/session"
	"github.com/turtacn/dtiscope/internal/domain/selection"
	"github.com/turtacn/dtiscope/pkg/errors"
)

// AnalyzeResult is the output of `dtiscope analyze`.
type AnalyzeResult struct {
	Drug     selection.Selection `json:"drug" yaml:"drug"`
	Protein  selection.Selection `json:"protein" yaml:"protein"`
	Title    string              `json:"title" yaml:"title"`
	Result   string              `json:"result" yaml:"result"`
	Duration time.Duration       `json:"duration_ns" yaml:"duration"`
}

func (r AnalyzeResult) TableHeaders() []string {
	return []string{"Drug", "SMILES", "Protein", "Length", "Result"}
}

func (r AnalyzeResult) TableRows() [][]string {
	return [][]string{{
		r.Drug.Name,
		truncate(r.Drug.Payload, 40),
		joinNonEmpty(" ", r.Protein.Name, parenthesise(r.Protein.ID)),
		strconv.Itoa(len(r.Protein.Payload)),
		r.Result,
	}}
}

func (r AnalyzeResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Drug:    %s\n         %s\n", r.Drug.Name, truncate(r.Drug.Payload, 72))
	fmt.Fprintf(&sb, "Protein: %s\n         %d residues\n", joinNonEmpty(" ", r.Protein.Name, parenthesise(r.Protein.ID)), len(r.Protein.Payload))
	fmt.Fprintf(&sb, "\n%s\n%s", color.New(color.Bold).Sprint(r.Title), color.GreenString(r.Result))
	return sb.String()
}

func parenthesise(s string) string {
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}

type analyzeOptions struct {
	drug     string
	smiles   string
	protein  string
	sequence string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Resolve a drug and a protein and score their interaction",
		Example: "  dtiscope analyze --drug aspirin --protein P69905\n" +
			"  dtiscope analyze --smiles 'CC(=O)O' --sequence MVLSPADKTNVKAAW",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.drug, "drug", "", "drug name searched in PubChem (first match is used)")
	f.StringVar(&opts.smiles, "smiles", "", "custom compound SMILES")
	f.StringVar(&opts.protein, "protein", "", "protein name or accession searched in UniProt (first match is used)")
	f.StringVar(&opts.sequence, "sequence", "", "custom protein amino-acid sequence")
	cmd.MarkFlagsMutuallyExclusive("drug", "smiles")
	cmd.MarkFlagsMutuallyExclusive("protein", "sequence")
	cmd.MarkFlagsOneRequired("drug", "smiles")
	cmd.MarkFlagsOneRequired("protein", "sequence")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
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
	deps := a.SessionDeps()
	s := session.New("cli-"+uuid.NewString()[:8], deps)
	defer s.Close()

	drug, err := commitEntity(ctx, s, deps, selection.KindDrug, opts.drug, opts.smiles)
	if err != nil {
		return err
	}
	protein, err := commitEntity(ctx, s, deps, selection.KindProtein, opts.protein, opts.sequence)
	if err != nil {
		return err
	}

	out, err := s.Trigger().Run(ctx)
	if err != nil {
		return err
	}
	view := session.PresentResult(out.Text, true)
	return PrintResult(cmd, AnalyzeResult{
		Drug:     drug,
		Protein:  protein,
		Title:    view.Title,
		Result:   view.Text,
		Duration: out.Duration,
	})
}

// commitEntity drives the session's resolver for kind the way a user would:
// manual entry when raw is set, otherwise search and pick the first match.
func commitEntity(ctx context.Context, s *session.Session, deps session.Deps, kind selection.Kind, query, raw string) (selection.Selection, error) {
	res, err := s.Resolver(kind)
	if err != nil {
		return selection.Selection{}, err
	}

	if raw != "" {
		if res.Snapshot().Mode != selection.ModeManual {
			res.ToggleMode()
		}
		res.SetManualText(raw)
		sel, ok := res.SubmitManual()
		if !ok {
			return selection.Selection{}, errors.New(errors.ErrCodeBadRequest, "empty manual input").WithDetail(kind.String())
		}
		return sel, nil
	}

	suggestions, err := sourceFor(deps, kind).Suggest(ctx, strings.TrimSpace(query), deps.Resolver.MaxSuggestions)
	if err != nil {
		return selection.Selection{}, err
	}
	if len(suggestions) == 0 {
		return selection.Selection{}, errors.New(errors.ErrCodeDataSourceNotFound, "no "+kind.String()+" matches").WithDetail(query)
	}
	sel, _, err := res.Select(ctx, suggestions[0])
	if err != nil {
		return selection.Selection{}, err
	}
	if !sel.Resolved() {
		return selection.Selection{}, errors.New(errors.ErrCodeDataSourceNotFound, "could not resolve "+kind.String()).WithDetail(suggestions[0].Display())
	}
	return sel, nil
}

//Personal.AI order the ending
