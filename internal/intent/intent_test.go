package intent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		input   string
		want    Action
		wantErr bool
	}{
		{input: "remove", want: ActionRemove},
		{input: " ADD ", want: ActionAdd},
		{input: "Download_Subtitle", want: ActionDownloadSubtitle},
		{input: "explode", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAction(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAction(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAction(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMediaType(t *testing.T) {
	got, err := ParseMediaType("TV")
	require.NoError(t, err)
	assert.Equal(t, MediaTypeTV, got)

	_, err = ParseMediaType("podcast")
	assert.Error(t, err)
}

func TestIntent_Targeted(t *testing.T) {
	tests := []struct {
		name string
		in   Intent
		want bool
	}{
		{"add", Intent{Action: ActionAdd}, true},
		{"remove", Intent{Action: ActionRemove, Title: "Angel"}, true},
		{"list", Intent{Action: ActionList}, false},
		{"search with title", Intent{Action: ActionSearch, Title: "Blade Runner"}, true},
		{"search criteria only", Intent{Action: ActionSearch}, false},
		{"search by id", Intent{Action: ActionSearch, ResolvedID: "42"}, true},
		{"search library scope", Intent{Action: ActionSearch, ResolvedID: LibraryScope}, false},
		{"upgrade", Intent{Action: ActionUpgrade, Title: "Alien"}, true},
		{"sync subtitles", Intent{Action: ActionSyncSubtitles}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Targeted(); got != tt.want {
				t.Errorf("Targeted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntent_CloneIsIndependent(t *testing.T) {
	orig := Intent{
		Action:    ActionRemove,
		MediaType: MediaTypeTV,
		Season:    IntPtr(1),
		Episodes:  []int{1, 2},
		Criteria:  Criteria{}.Set("quality", "4K"),
	}

	c := orig.Clone()
	*c.Season = 5
	c.Episodes[0] = 9
	c.Criteria[0].Value = "720p"

	assert.Equal(t, 1, *orig.Season)
	assert.Equal(t, []int{1, 2}, orig.Episodes)
	v, _ := orig.Criteria.Get("quality")
	assert.Equal(t, "4K", v)
}

func TestIntent_Summary(t *testing.T) {
	in := Intent{
		Action:    ActionRemove,
		MediaType: MediaTypeTV,
		Title:     "Angel",
		Season:    IntPtr(1),
		Episodes:  []int{1, 2},
	}
	assert.Equal(t, `REMOVE tv "Angel" S01 E1,E2`, in.Summary())
}

func TestIntent_JSONFromToolArguments(t *testing.T) {
	raw := `{"action":"search","media_type":"movie","title":"Blade Runner","criteria":{"quality":"4K","year":1982}}`

	var in Intent
	require.NoError(t, json.Unmarshal([]byte(raw), &in))

	assert.Equal(t, ActionSearch, in.Action)
	assert.Equal(t, MediaTypeMovie, in.MediaType)
	assert.Equal(t, Criteria{{Key: "quality", Value: "4K"}, {Key: "year", Value: "1982"}}, in.Criteria)

	year, ok := in.Criteria.Year()
	assert.True(t, ok)
	assert.Equal(t, 1982, year)
}

func TestCriteria_PreservesOrderAndReplacesKeys(t *testing.T) {
	c := Criteria{}.
		Set("Quality", "1080p").
		Set("language", "English").
		Set("QUALITY", "4K")

	require.Len(t, c, 2)
	assert.Equal(t, "quality", c[0].Key)
	assert.Equal(t, "4K", c[0].Value)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"quality":"4K","language":"English"}`, string(out))
	assert.Equal(t, `{"quality":"4K","language":"English"}`, string(out))
}

func TestCriteria_RejectsNestedValues(t *testing.T) {
	var c Criteria
	err := json.Unmarshal([]byte(`{"quality":{"min":"720p"}}`), &c)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`["4K"]`), &c)
	assert.Error(t, err)
}

func TestBind(t *testing.T) {
	in := Intent{Action: ActionAdd, MediaType: MediaTypeMovie, Title: "matrix"}

	r, err := Bind(in, Candidate{ID: "603", ForeignID: "603", Title: "The Matrix", Year: 1999})
	require.NoError(t, err)
	assert.Equal(t, "603", r.ID())
	assert.Equal(t, "The Matrix", r.Intent().Title)
	assert.False(t, r.LibraryScoped())

	// binding must not touch the caller's intent
	assert.Empty(t, in.ResolvedID)

	local, err := Bind(in, Candidate{ID: "12", ForeignID: "603", Title: "The Matrix", InLibrary: true})
	require.NoError(t, err)
	assert.Equal(t, "12", local.ID())

	_, err = Bind(in, Candidate{Title: "Nameless"})
	assert.Error(t, err)
}

func TestBindLibrary(t *testing.T) {
	r := BindLibrary(Intent{Action: ActionList, MediaType: MediaTypeTV})
	assert.Equal(t, LibraryScope, r.ID())
	assert.True(t, r.LibraryScoped())
	assert.Nil(t, r.Target())
}

func TestStatusOf(t *testing.T) {
	ok := Operation{Step: "a", Success: true}
	bad := Operation{Step: "b", Error: "boom"}

	tests := []struct {
		name string
		ops  []Operation
		want Status
	}{
		{"no operations", nil, StatusFailure},
		{"all succeeded", []Operation{ok, ok}, StatusSuccess},
		{"one of two", []Operation{ok, bad}, StatusPartial},
		{"none succeeded", []Operation{bad, bad}, StatusFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.ops); got != tt.want {
				t.Errorf("StatusOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFailed(t *testing.T) {
	res := Failed("lookup service", "", errors.New("service not configured"), "no tv service")
	assert.Equal(t, StatusFailure, res.Status)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, "service not configured", res.Operations[0].Error)
	assert.Equal(t, "no tv service", res.Message)
}
