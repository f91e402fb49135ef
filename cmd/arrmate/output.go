package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/pipeline"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseOutputFormat(raw string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", raw)
	}
}

// palette styles terminal output. The zero value renders plain text.
type palette struct {
	enabled bool
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	dim     lipgloss.Style
	prompt  lipgloss.Style
}

func newPalette(w io.Writer) palette {
	if !shouldColorize(w) {
		return palette{}
	}
	return palette{
		enabled: true,
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
	}
}

func (p palette) render(style lipgloss.Style, s string) string {
	if !p.enabled {
		return s
	}
	return style.Render(s)
}

func (p palette) status(s intent.Status) string {
	label := "[" + strings.ToUpper(string(s)) + "]"
	switch s {
	case intent.StatusSuccess:
		return p.render(p.ok, label)
	case intent.StatusPartial:
		return p.render(p.warn, label)
	default:
		return p.render(p.fail, label)
	}
}

func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

// responseView is the structured rendering of a pipeline response.
type responseView struct {
	ID         string                  `json:"id" yaml:"id"`
	Stage      pipeline.Stage          `json:"stage" yaml:"stage"`
	Status     intent.Status           `json:"status" yaml:"status"`
	Message    string                  `json:"message" yaml:"message"`
	Intent     *intent.Intent          `json:"intent,omitempty" yaml:"intent,omitempty"`
	Result     *intent.ExecutionResult `json:"result,omitempty" yaml:"result,omitempty"`
	Reasons    []string                `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Candidates []intent.Candidate      `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	DryRun     bool                    `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	DurationMs int64                   `json:"durationMs" yaml:"durationMs"`
}

func viewOf(resp *pipeline.Response) responseView {
	return responseView{
		ID:         resp.ID,
		Stage:      resp.Stage,
		Status:     resp.Status,
		Message:    resp.Message,
		Intent:     resp.Intent,
		Result:     resp.Result,
		Reasons:    resp.Reasons,
		Candidates: resp.Candidates,
		DryRun:     resp.DryRun,
		DurationMs: resp.DurationMs,
	}
}

func renderResponse(w io.Writer, resp *pipeline.Response, format outputFormat, pal palette) error {
	switch format {
	case formatJSON:
		return writeJSON(w, viewOf(resp))
	case formatYAML:
		return writeYAML(w, viewOf(resp))
	}

	fmt.Fprintf(w, "%s %s\n", pal.status(resp.Status), resp.Message)
	if resp.Intent != nil {
		fmt.Fprintln(w, pal.render(pal.dim, "intent: "+resp.Intent.Summary()))
	}

	for _, reason := range resp.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	if len(resp.Candidates) > 0 {
		fmt.Fprintln(w, renderCandidates(resp.Candidates))
	}

	if resp.Result == nil {
		return nil
	}
	if len(resp.Result.Operations) > 0 {
		fmt.Fprintln(w, renderOperations(resp.Result.Operations))
	}
	if items, ok := resp.Result.Data.([]types.LibraryItem); ok && len(items) > 0 {
		fmt.Fprintln(w, renderLibrary(items))
	}
	return nil
}

func renderOperations(ops []intent.Operation) string {
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		result := "ok"
		if !op.Success {
			result = "failed"
		}
		rows = append(rows, []string{op.Step, op.Service, result, op.Error})
	}
	return renderTable([]string{"Step", "Service", "Result", "Error"}, rows)
}

func renderCandidates(candidates []intent.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for i, c := range candidates {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.Title,
			yearString(c.Year),
			fmt.Sprintf("%.2f", c.Score),
			yesNo(c.InLibrary),
		})
	}
	return renderTable([]string{"#", "Title", "Year", "Score", "In Library"}, rows)
}

func renderLibrary(items []types.LibraryItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.ID, item.Title, yearString(item.Year), yesNo(item.HasFile), item.Status})
	}
	return renderTable([]string{"ID", "Title", "Year", "On Disk", "Status"}, rows)
}

func renderServices(w io.Writer, infos []intent.ServiceInfo, format outputFormat, pal palette) error {
	switch format {
	case formatJSON:
		return writeJSON(w, infos)
	case formatYAML:
		return writeYAML(w, infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(w, "No services configured.")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		state := pal.render(pal.ok, "up")
		if !info.Available {
			state = pal.render(pal.fail, "down")
		}
		media := make([]string, len(info.MediaTypes))
		for i, mt := range info.MediaTypes {
			media[i] = string(mt)
		}
		rows = append(rows, []string{info.Name, info.Kind, info.URL, strings.Join(media, ", "), state, info.Version, info.Error})
	}
	fmt.Fprintln(w, renderTable([]string{"Name", "Kind", "URL", "Media", "State", "Version", "Error"}, rows))
	return nil
}

func yearString(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
