package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/dtiscope/internal/domain/selection"
	"github.com/turtacn/dtiscope/pkg/errors"
)

// ResolveResult is the output of `dtiscope resolve`.
type ResolveResult struct {
	Kind    selection.Kind `json:"kind" yaml:"kind"`
	Key     string         `json:"key" yaml:"key"`
	Payload string         `json:"payload" yaml:"payload"`
	Length  int            `json:"length" yaml:"length"`
}

func (r ResolveResult) TableHeaders() []string { return []string{"Kind", "Key", "Length", "Payload"} }

func (r ResolveResult) TableRows() [][]string {
	return [][]string{{r.Kind.String(), r.Key, strconv.Itoa(r.Length), truncate(r.Payload, 60)}}
}

func (r ResolveResult) String() string {
	label := "SMILES"
	if r.Kind == selection.KindProtein {
		label = "Sequence"
	}
	return fmt.Sprintf("%s %s\n%s: %s", color.GreenString("Resolved"), r.Key, label, r.Payload)
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <drug|protein> <name|accession>",
		Short: "Resolve a drug name to SMILES or a UniProt accession to its sequence",
		Example: "  dtiscope resolve drug aspirin\n" +
			"  dtiscope resolve protein P69905",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			return runResolve(cmd, kind, strings.TrimSpace(strings.Join(args[1:], " ")))
		},
	}
}

func runResolve(cmd *cobra.Command, kind selection.Kind, key string) error {
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

	item := selection.Suggestion{Label: key}
	if kind == selection.KindProtein {
		item.Accession = strings.ToUpper(key)
	}
	payload, err := sourceFor(a.SessionDeps(), kind).Detail(ctx, item)
	if err != nil {
		return err
	}
	if payload == "" {
		return errors.New(errors.ErrCodeDataSourceNotFound, "").WithDetail(key)
	}
	return PrintResult(cmd, ResolveResult{Kind: kind, Key: item.Key(), Payload: payload, Length: len(payload)})
}

//Personal.AI order the ending
