package costs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Aariz1001/carpulse-data/pkg/provider"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
)

// Report renders a run summary for the terminal.
func (s *Summary) Report() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "API USAGE AND COST SUMMARY\n")
	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "Model: %s\n", s.Model)
	fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	elapsed := time.Since(s.Started).Seconds()
	fmt.Fprintf(&b, "Elapsed: %s\n\n", gnfmt.TimeString(elapsed))

	fmt.Fprintf(&b, "Calls: %s total, %s succeeded, %s failed\n",
		humanize.Comma(int64(s.Calls)),
		humanize.Comma(int64(s.SuccessCalls())),
		humanize.Comma(int64(s.Failed)),
	)
	fmt.Fprintf(&b, "Tokens: %s prompt, %s completion, %s cached\n",
		humanize.Comma(int64(s.Usage.PromptTokens)),
		humanize.Comma(int64(s.Usage.CompletionTokens)),
		humanize.Comma(int64(s.Usage.CachedTokens)),
	)
	if s.Usage.SearchCount > 0 {
		fmt.Fprintf(&b, "Web searches: %s\n",
			humanize.Comma(int64(s.Usage.SearchCount)))
	}

	fmt.Fprintf(&b, "\nBy category:\n")
	for _, cat := range provider.AllCategories() {
		ct, ok := s.ByCategory[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %-12s %4d calls  $%.4f\n",
			cat, ct.Calls, ct.Usage.CostUSD)
	}
	for _, cat := range s.extraCategories() {
		ct := s.ByCategory[cat]
		fmt.Fprintf(&b, "  %-12s %4d calls  $%.4f\n",
			cat, ct.Calls, ct.Usage.CostUSD)
	}

	fmt.Fprintf(&b, "\nTotal cost: $%.4f", s.Usage.CostUSD)
	if s.Usage.Estimated {
		fmt.Fprintf(&b, " (partly estimated)")
	}
	fmt.Fprintf(&b, "\nAverage per successful call: $%.4f\n",
		s.AvgCostPerCall())
	fmt.Fprintf(&b, "Projection for 100 calls:  $%.2f\n",
		s.AvgCostPerCall()*100)
	fmt.Fprintf(&b, "Projection for 1000 calls: $%.2f\n",
		s.AvgCostPerCall()*1000)
	fmt.Fprintf(&b, "%s\n", line)
	return b.String()
}

// extraCategories returns categories outside the standard pipeline
// order, such as gap fill passes, sorted by name.
func (s *Summary) extraCategories() []provider.Category {
	std := make(map[provider.Category]bool)
	for _, cat := range provider.AllCategories() {
		std[cat] = true
	}
	var res []provider.Category
	for cat := range s.ByCategory {
		if !std[cat] {
			res = append(res, cat)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
