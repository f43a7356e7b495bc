package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"

	"github.com/abhisek/timesgrid/internal/llm"
	"github.com/abhisek/timesgrid/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the coach note request ledger",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		rt, err := openRuntime(cmd, runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		events, err := rt.store.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		writeEvents(cmd.OutOrStdout(), events)
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show one LLM request with its prompt and reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}

		rt, err := openRuntime(cmd, runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		e, err := rt.store.EventRepo().GetLLMEvent(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("event %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		writeEvent(cmd.OutOrStdout(), e)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		rt, err := openRuntime(cmd, runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		var opts store.QueryOpts
		if days > 0 {
			opts.From = time.Now().AddDate(0, 0, -days)
		}
		events, err := rt.store.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		byPurpose, byModel := aggregateUsage(events)
		writeUsage(cmd.OutOrStdout(), byPurpose, byModel)
		return nil
	},
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				s = s.Bold(true)
			}
			return s
		})
}

func writeEvents(w io.Writer, events []store.LLMRequestEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No LLM requests recorded.")
		return
	}
	t := newTable("ID", "Time", "Purpose", "Model", "In", "Out", "Ms", "OK")
	for _, e := range events {
		ok := "yes"
		if !e.Success {
			ok = "no"
		}
		t.Row(
			strconv.Itoa(e.ID),
			e.Timestamp.Local().Format(time.DateTime),
			e.Purpose,
			clip(e.Model, 32),
			strconv.Itoa(e.InputTokens),
			strconv.Itoa(e.OutputTokens),
			strconv.FormatInt(e.LatencyMs, 10),
			ok,
		)
	}
	fmt.Fprintln(w, t.Render())
}

func writeEvent(w io.Writer, e *store.LLMRequestEvent) {
	fmt.Fprintf(w, "Event %d  %s\n", e.ID, e.Timestamp.Local().Format(time.DateTime))
	fmt.Fprintf(w, "  vendor   %s\n  model    %s\n  purpose  %s\n", e.Provider, e.Model, e.Purpose)
	fmt.Fprintf(w, "  tokens   %d in, %d out\n  latency  %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
	if e.CostUSD > 0 {
		fmt.Fprintf(w, "  cost     %s\n", formatCost(e.CostUSD))
	}
	if !e.Success {
		fmt.Fprintf(w, "  error    %s\n", e.ErrorMessage)
	}
	section := func(title, body string) {
		if body == "" {
			body = "(not captured)"
		}
		fmt.Fprintf(w, "\n== %s ==\n%s\n", title, strings.TrimRight(body, "\n"))
	}
	section("request", e.RequestBody)
	section("reply", e.ResponseBody)
}

func writeUsage(w io.Writer, byPurpose, byModel []usage) {
	if len(byPurpose) == 0 {
		fmt.Fprintln(w, "No LLM requests recorded.")
		return
	}

	var calls, in, out int
	pt := newTable("Purpose", "Calls", "Input", "Output", "Avg ms")
	for _, u := range byPurpose {
		pt.Row(u.Purpose, strconv.Itoa(u.Calls), strconv.Itoa(u.InputTokens), strconv.Itoa(u.OutputTokens), strconv.FormatInt(u.AvgLatencyMs, 10))
		calls += u.Calls
		in += u.InputTokens
		out += u.OutputTokens
	}
	pt.Row("total", strconv.Itoa(calls), strconv.Itoa(in), strconv.Itoa(out), "")
	fmt.Fprintln(w, pt.Render())

	var (
		total    float64
		unpriced []string
	)
	mt := newTable("Model", "Calls", "Input", "Output", "Cost")
	for _, u := range byModel {
		cost := "?"
		if c, known := u.cost(); known {
			total += c
			cost = formatCost(c)
		} else {
			unpriced = append(unpriced, u.Model)
		}
		mt.Row(clip(u.Model, 32), strconv.Itoa(u.Calls), strconv.Itoa(u.InputTokens), strconv.Itoa(u.OutputTokens), cost)
	}
	label := "total"
	if len(unpriced) > 0 {
		label = "total (partial)"
	}
	mt.Row(label, "", "", "", formatCost(total))
	fmt.Fprintln(w)
	fmt.Fprintln(w, mt.Render())
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "No price known for %s.\n", strings.Join(unpriced, ", "))
	}
}

// usage totals LLM requests sharing a purpose or a model.
type usage struct {
	Key          string
	Model        string
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64

	recordedCost float64
	unpriced     int
	latencyMs    int64
}

// cost uses the recorded per-request costs when every request has one and
// reprices the whole group from the price table otherwise. known is false
// when neither is possible.
func (u usage) cost() (usd float64, known bool) {
	if u.unpriced == 0 {
		return u.recordedCost, true
	}
	price, ok := llm.LookupPrice(u.Model)
	if !ok {
		return u.recordedCost, false
	}
	return price.Cost(llm.Usage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens}), true
}

// aggregateUsage groups events by purpose and by model, each sorted by key.
func aggregateUsage(events []store.LLMRequestEvent) (byPurpose, byModel []usage) {
	purposes := make(map[string]*usage)
	models := make(map[string]*usage)
	add := func(groups map[string]*usage, key string, e store.LLMRequestEvent) {
		u := groups[key]
		if u == nil {
			u = &usage{Key: key, Model: e.Model, Purpose: e.Purpose}
			groups[key] = u
		}
		u.Calls++
		u.InputTokens += e.InputTokens
		u.OutputTokens += e.OutputTokens
		u.latencyMs += e.LatencyMs
		u.AvgLatencyMs = u.latencyMs / int64(u.Calls)
		if e.CostUSD > 0 {
			u.recordedCost += e.CostUSD
		} else {
			u.unpriced++
		}
	}
	for _, e := range events {
		add(purposes, e.Purpose, e)
		add(models, e.Model, e)
	}

	sorted := func(groups map[string]*usage) []usage {
		out := make([]usage, 0, len(groups))
		for _, u := range groups {
			out = append(out, *u)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out
	}
	return sorted(purposes), sorted(models)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show this purpose, e.g. coach-note")
	llmStatsCmd.Flags().Int("days", 0, "Only count the last N days (0 for all time)")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
