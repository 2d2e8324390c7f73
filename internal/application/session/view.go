package session

import (
	"github.com/turtacn/dtiscope/internal/application/analysis"
	"github.com/turtacn/dtiscope/internal/application/resolver"
	"github.com/turtacn/dtiscope/internal/domain/selection"
)

// ResultTitle heads the analysis result panel.
const ResultTitle = "Analysis Result"

// ResultView is the rendered analysis result.
type ResultView struct {
	Title string `json:"title" yaml:"title"`
	Text  string `json:"text" yaml:"text"`
}

// PresentResult returns nil when no result is held.
func PresentResult(text string, ok bool) *ResultView {
	if !ok {
		return nil
	}
	return &ResultView{Title: ResultTitle, Text: text}
}

// EntityView pairs the committed selection with the resolver's input state.
type EntityView struct {
	Selection selection.Selection `json:"selection" yaml:"selection"`
	Input     resolver.State      `json:"input" yaml:"input"`
}

// View is the full client-facing snapshot of a session.
type View struct {
	ID       string          `json:"id" yaml:"id"`
	Version  uint64          `json:"version" yaml:"version"`
	Drug     EntityView      `json:"drug" yaml:"drug"`
	Protein  EntityView      `json:"protein" yaml:"protein"`
	Analysis analysis.Status `json:"analysis" yaml:"analysis"`
	Result   *ResultView     `json:"result" yaml:"result"`
}

//Personal.AI order the ending
