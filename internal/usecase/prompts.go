package usecase

import (
	"fmt"
	"strings"

	"AnalystCouncil/internal/domain/models"
)

// BuildExpertPrompt renders the user prompt handed to every expert.
// The market snapshot header keeps all experts working from the same
// numbers even though they run concurrently.
func BuildExpertPrompt(req models.AnalysisRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the stock %s.\n\n", req.Symbol)
	if q := req.Quote; q != nil {
		b.WriteString("Current market data:\n")
		if q.Name != "" {
			fmt.Fprintf(&b, "- Company: %s\n", q.Name)
		}
		fmt.Fprintf(&b, "- Ticker: %s\n", q.Ticker)
		fmt.Fprintf(&b, "- Price: %.2f %s\n", q.Price, q.Currency)
		fmt.Fprintf(&b, "- As of: %s\n", q.Timestamp.Format("2006-01-02 15:04:05 MST"))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Date of analysis: %s\n\n", req.RequestedAt.Format("2006-01-02"))
	b.WriteString("Provide your analysis from your area of expertise. ")
	b.WriteString("Conclude with a clear assessment.")
	return b.String()
}

// BuildChairmanBriefing assembles the synthesis prompt from the
// successful analyses. Each section names the expert and the model
// that actually produced the text.
func BuildChairmanBriefing(req models.AnalysisRequest, results []models.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock under analysis: %s\n", req.Symbol)
	if q := req.Quote; q != nil {
		fmt.Fprintf(&b, "Price at request time: %.2f %s\n", q.Price, q.Currency)
	}
	fmt.Fprintf(&b, "Date: %s\n\n", req.RequestedAt.Format("2006-01-02"))
	b.WriteString("The council's analyses follow.\n\n")

	for _, r := range results {
		if !r.OK {
			continue
		}
		fmt.Fprintf(&b, "=== %s (%s, via %s) ===\n", r.Expert.Name, r.Expert.Role, r.Endpoint)
		b.WriteString(r.Text)
		b.WriteString("\n\n")
	}

	b.WriteString("Synthesize these views into a single verdict.")
	return b.String()
}
