// Package testutil provides a fake PubChem and UniProt service for tests
// that exercise the lookup path end to end.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Compound is one PubChem record.
type Compound struct {
	Name   string
	SMILES string
}

// Protein is one UniProt record.
type Protein struct {
	Accession string
	Name      string
	Sequence  string
}

// Sample records served by NewUpstream.
var (
	Aspirin        = Compound{Name: "Aspirin", SMILES: "CC(=O)OC1=CC=CC=C1C(=O)O"}
	AspirinD4      = Compound{Name: "Aspirin-d4", SMILES: "[2H]C1=C([2H])C(=C(C(=C1[2H])C(=O)O)OC(=O)C)[2H]"}
	Ibuprofen      = Compound{Name: "Ibuprofen", SMILES: "CC(C)CC1=CC=C(C=C1)C(C)C(=O)O"}
	HemoglobinA    = Protein{Accession: "P69905", Name: "Hemoglobin subunit alpha", Sequence: "MVLSPADKTNVKAAWGKVGA"}
	HemoglobinB    = Protein{Accession: "P68871", Name: "Hemoglobin subunit beta", Sequence: "MVHLTPEEKSAVTALWGKVN"}
	DefaultDrugs   = []Compound{Aspirin, AspirinD4, Ibuprofen}
	DefaultTargets = []Protein{HemoglobinA, HemoglobinB}
)

// Upstream serves the subset of the PubChem and UniProt REST APIs the
// lookup clients call.  Both services share one base URL.
type Upstream struct {
	*httptest.Server

	mu       sync.Mutex
	drugs    []Compound
	proteins []Protein
	hits     map[string]int
	failing  bool
}

// NewUpstream starts a fake service with the default records.  It is closed
// when t finishes.
func NewUpstream(t testing.TB) *Upstream {
	t.Helper()
	u := &Upstream{drugs: DefaultDrugs, proteins: DefaultTargets, hits: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/autocomplete/compound/", u.autocomplete)
	mux.HandleFunc("/pug/compound/name/", u.smiles)
	mux.HandleFunc("/uniprotkb/search", u.search)
	mux.HandleFunc("/uniprotkb/", u.fasta)
	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Close)
	return u
}

// SetFailing makes every endpoint answer 503 until reset.
func (u *Upstream) SetFailing(failing bool) {
	u.mu.Lock()
	u.failing = failing
	u.mu.Unlock()
}

// Hits returns how often an endpoint ("autocomplete", "smiles", "search",
// "fasta") was called.
func (u *Upstream) Hits(endpoint string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[endpoint]
}

func (u *Upstream) begin(w http.ResponseWriter, endpoint string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hits[endpoint]++
	if u.failing {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// GET /autocomplete/compound/{fragment}/json
func (u *Upstream) autocomplete(w http.ResponseWriter, r *http.Request) {
	if !u.begin(w, "autocomplete") {
		return
	}
	fragment := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/autocomplete/compound/"), "/json")
	names := []string{}
	for _, c := range u.drugs {
		if containsFold(c.Name, fragment) {
			names = append(names, c.Name)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":           map[string]int{"code": 0},
		"total":            len(names),
		"dictionary_terms": map[string][]string{"compound": names},
	})
}

// GET /pug/compound/name/{name}/property/CanonicalSMILES/TXT
func (u *Upstream) smiles(w http.ResponseWriter, r *http.Request) {
	if !u.begin(w, "smiles") {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/pug/compound/name/")
	name = strings.TrimSuffix(name, "/property/CanonicalSMILES/TXT")
	for _, c := range u.drugs {
		if strings.EqualFold(c.Name, name) {
			_, _ = w.Write([]byte(c.SMILES + "\n"))
			return
		}
	}
	http.Error(w, "Status: 404\nCode: PUGREST.NotFound", http.StatusNotFound)
}

// GET /uniprotkb/search?query=...
func (u *Upstream) search(w http.ResponseWriter, r *http.Request) {
	if !u.begin(w, "search") {
		return
	}
	query := r.URL.Query().Get("query")
	results := []map[string]interface{}{}
	for _, p := range u.proteins {
		if containsFold(p.Name, query) || strings.EqualFold(p.Accession, query) {
			results = append(results, map[string]interface{}{
				"primaryAccession": p.Accession,
				"proteinDescription": map[string]interface{}{
					"recommendedName": map[string]interface{}{
						"fullName": map[string]string{"value": p.Name},
					},
				},
			})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
}

// GET /uniprotkb/{accession}.fasta
func (u *Upstream) fasta(w http.ResponseWriter, r *http.Request) {
	if !u.begin(w, "fasta") {
		return
	}
	acc := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/uniprotkb/"), ".fasta")
	for _, p := range u.proteins {
		if strings.EqualFold(p.Accession, acc) {
			var sb strings.Builder
			sb.WriteString(">sp|" + p.Accession + "|" + p.Name + "\n")
			for seq := p.Sequence; seq != ""; {
				n := 10
				if len(seq) < n {
					n = len(seq)
				}
				sb.WriteString(seq[:n] + "\n")
				seq = seq[n:]
			}
			_, _ = w.Write([]byte(sb.String()))
			return
		}
	}
	http.NotFound(w, r)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}

//Personal.AI order the ending
