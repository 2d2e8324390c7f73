package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

// PubChemClient queries the PubChem autocomplete and PUG REST services.
type PubChemClient struct {
	fetcher *Fetcher
	baseURL string
}

// NewPubChemClient returns a client rooted at baseURL, typically
// "https://pubchem.ncbi.nlm.nih.gov/rest".
func NewPubChemClient(baseURL string, fetcher *Fetcher) *PubChemClient {
	return &PubChemClient{fetcher: fetcher, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Autocomplete returns up to limit compound names matching the fragment.
// A response without dictionary terms yields an empty slice.
func (c *PubChemClient) Autocomplete(ctx context.Context, fragment string, limit int) ([]string, error) {
	u := fmt.Sprintf("%s/autocomplete/compound/%s/json?limit=%d", c.baseURL, url.PathEscape(fragment), limit)
	body, err := c.fetcher.Get(ctx, "autocomplete", u, "application/json")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apperrors.New(apperrors.ErrCodeDataSourceParseError, "pubchem autocomplete returned invalid JSON").WithDetail(snippet(body))
	}

	terms := gjson.GetBytes(body, "dictionary_terms.compound").Array()
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		if s := strings.TrimSpace(t.String()); s != "" {
			names = append(names, s)
		}
		if limit > 0 && len(names) == limit {
			break
		}
	}
	return names, nil
}

// CanonicalSMILES resolves an exact compound name to its canonical SMILES.
// When the name maps to several CIDs PubChem returns one SMILES per line;
// the first is used.
func (c *PubChemClient) CanonicalSMILES(ctx context.Context, name string) (string, error) {
	u := fmt.Sprintf("%s/pug/compound/name/%s/property/CanonicalSMILES/TXT", c.baseURL, url.PathEscape(name))
	body, err := c.fetcher.Get(ctx, "smiles", u, "text/plain")
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(body))
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	return text, nil
}

//Personal.AI order the ending
