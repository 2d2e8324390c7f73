package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

// ProteinHit is one UniProtKB search result.
type ProteinHit struct {
	Accession string `json:"accession"`
	Name      string `json:"name"`
}

// UniProtClient queries the UniProtKB REST API.
type UniProtClient struct {
	fetcher *Fetcher
	baseURL string
}

// NewUniProtClient returns a client rooted at baseURL, typically
// "https://rest.uniprot.org".
func NewUniProtClient(baseURL string, fetcher *Fetcher) *UniProtClient {
	return &UniProtClient{fetcher: fetcher, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Search returns up to size entries matching query.  The display name is the
// recommended full name, falling back to the first submission name and then
// to the accession itself.
func (c *UniProtClient) Search(ctx context.Context, query string, size int) ([]ProteinHit, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("fields", "accession,protein_name")
	q.Set("size", strconv.Itoa(size))
	u := c.baseURL + "/uniprotkb/search?" + q.Encode()

	body, err := c.fetcher.Get(ctx, "search", u, "application/json")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apperrors.New(apperrors.ErrCodeDataSourceParseError, "uniprot search returned invalid JSON").WithDetail(snippet(body))
	}

	results := gjson.GetBytes(body, "results").Array()
	hits := make([]ProteinHit, 0, len(results))
	for _, r := range results {
		acc := r.Get("primaryAccession").String()
		if acc == "" {
			continue
		}
		name := r.Get("proteinDescription.recommendedName.fullName.value").String()
		if name == "" {
			name = r.Get("proteinDescription.submissionNames.0.fullName.value").String()
		}
		if name == "" {
			name = acc
		}
		hits = append(hits, ProteinHit{Accession: acc, Name: name})
		if size > 0 && len(hits) == size {
			break
		}
	}
	return hits, nil
}

// Sequence fetches the FASTA record for accession and returns the bare
// amino-acid sequence.
func (c *UniProtClient) Sequence(ctx context.Context, accession string) (string, error) {
	u := fmt.Sprintf("%s/uniprotkb/%s.fasta", c.baseURL, url.PathEscape(accession))
	body, err := c.fetcher.Get(ctx, "fasta", u, "text/plain")
	if err != nil {
		return "", err
	}
	return ParseFASTASequence(string(body)), nil
}

// ParseFASTASequence drops the first line of a FASTA record, concatenates the
// remaining lines and strips all line breaks and surrounding whitespace.
// The first line is treated as the header whatever it contains.
func ParseFASTASequence(fasta string) string {
	text := strings.TrimSpace(fasta)
	i := strings.IndexByte(text, '\n')
	if i < 0 {
		return ""
	}
	text = text[i+1:]
	var sb strings.Builder
	sb.Grow(len(text))
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, ">") {
			// Only the first record is used.
			break
		}
		sb.WriteString(line)
	}
	return sb.String()
}

//Personal.AI order the ending
