package intent

import (
	"fmt"
	"strconv"
	"strings"
)

// LibraryScope is the resolved id bound to intents that act on a whole
// library rather than on one item (LIST, criteria-only SEARCH, subtitle sync).
const LibraryScope = "*"

// Intent is the structured form of a user request. A freshly parsed Intent
// is "raw": ResolvedID is empty unless the caller supplied an id directly to
// bypass fuzzy matching.
type Intent struct {
	Action     Action    `json:"action" yaml:"action"`
	MediaType  MediaType `json:"media_type" yaml:"media_type"`
	Title      string    `json:"title,omitempty" yaml:"title,omitempty"`
	Season     *int      `json:"season,omitempty" yaml:"season,omitempty"`
	Episodes   []int     `json:"episodes,omitempty" yaml:"episodes,omitempty"`
	Criteria   Criteria  `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	ResolvedID string    `json:"resolved_id,omitempty" yaml:"resolved_id,omitempty"`
}

// Targeted reports whether the intent must be bound to one concrete item
// before execution.
func (in Intent) Targeted() bool {
	if in.Action.RequiresTarget() {
		return true
	}
	return in.Action == ActionSearch && (in.HasTitle() || (in.ResolvedID != "" && in.ResolvedID != LibraryScope))
}

// HasTitle reports whether the intent names an item.
func (in Intent) HasTitle() bool {
	return strings.TrimSpace(in.Title) != ""
}

// Clone returns a deep copy.
func (in Intent) Clone() Intent {
	out := in
	if in.Season != nil {
		s := *in.Season
		out.Season = &s
	}
	if in.Episodes != nil {
		out.Episodes = append([]int(nil), in.Episodes...)
	}
	out.Criteria = in.Criteria.Clone()
	return out
}

// Summary renders a compact, log friendly description.
func (in Intent) Summary() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(string(in.Action)))
	b.WriteString(" ")
	b.WriteString(string(in.MediaType))
	if in.HasTitle() {
		fmt.Fprintf(&b, " %q", in.Title)
	}
	if in.Season != nil {
		fmt.Fprintf(&b, " S%02d", *in.Season)
	}
	if len(in.Episodes) > 0 {
		eps := make([]string, len(in.Episodes))
		for i, e := range in.Episodes {
			eps[i] = "E" + strconv.Itoa(e)
		}
		b.WriteString(" ")
		b.WriteString(strings.Join(eps, ","))
	}
	if len(in.Criteria) > 0 {
		b.WriteString(" [")
		b.WriteString(in.Criteria.String())
		b.WriteString("]")
	}
	return b.String()
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// Candidate is a backend search result scored against the query title.
type Candidate struct {
	// ID is the library id; empty for catalog-only results.
	ID string `json:"id" yaml:"id"`
	// ForeignID is the external catalog id (tvdb, tmdb, musicbrainz, ...).
	ForeignID string  `json:"foreignId,omitempty" yaml:"foreignId,omitempty"`
	Title     string  `json:"title" yaml:"title"`
	Year      int     `json:"year,omitempty" yaml:"year,omitempty"`
	Score     float64 `json:"score" yaml:"score"`
	InLibrary bool    `json:"inLibrary" yaml:"inLibrary"`
}

// Label renders "Title (Year)".
func (c Candidate) Label() string {
	if c.Year > 0 {
		return fmt.Sprintf("%s (%d)", c.Title, c.Year)
	}
	return c.Title
}

// Resolved is an Intent bound to a concrete backend identifier. The only way
// to build one is Bind or BindLibrary, both of which guarantee a non-empty
// resolved id.
type Resolved struct {
	intent Intent
	target *Candidate
}

// Bind binds in to the chosen candidate. Library candidates bind their
// library id; catalog-only candidates bind their external id.
func Bind(in Intent, target Candidate) (*Resolved, error) {
	id := target.ID
	if !target.InLibrary && target.ForeignID != "" {
		id = target.ForeignID
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("candidate %q has no identifier", target.Title)
	}
	bound := in.Clone()
	bound.ResolvedID = id
	if target.Title != "" {
		bound.Title = target.Title
	}
	t := target
	return &Resolved{intent: bound, target: &t}, nil
}

// BindLibrary binds an untargeted intent to the whole library.
func BindLibrary(in Intent) *Resolved {
	bound := in.Clone()
	bound.ResolvedID = LibraryScope
	return &Resolved{intent: bound}
}

// Intent returns a copy of the bound intent.
func (r *Resolved) Intent() Intent {
	return r.intent.Clone()
}

// ID returns the bound identifier; never empty.
func (r *Resolved) ID() string {
	return r.intent.ResolvedID
}

// Target returns the bound candidate, or nil for library scope.
func (r *Resolved) Target() *Candidate {
	if r.target == nil {
		return nil
	}
	t := *r.target
	return &t
}

// LibraryScoped reports whether the intent acts on the whole library.
func (r *Resolved) LibraryScoped() bool {
	return r.intent.ResolvedID == LibraryScope
}

func (r *Resolved) Action() Action       { return r.intent.Action }
func (r *Resolved) MediaType() MediaType { return r.intent.MediaType }
