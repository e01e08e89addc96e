package reasoning

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gstaudit/internal/port"
)

// SystemPrompt frames every reasoning request.
const SystemPrompt = `You are an Indian GST and TDS compliance reviewer. You judge one compliance check on one invoice at a time, using only the facts and regulation excerpts you are given. When the excerpts do not settle the question, say so and answer WARNING.

Return ONLY valid JSON with no markdown formatting and no code fences, matching this schema:
{"status": "PASS" | "FAIL" | "WARNING", "confidence": 0.0-1.0, "reasoning": "", "requires_review": true | false}`

// BuildPrompt renders the user message for req. Facts are listed in key
// order so identical requests produce identical prompts.
func BuildPrompt(req port.ReasoningRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Check %s: %s\n\n", req.CheckID, req.Question)

	if len(req.Context) > 0 {
		b.WriteString("Invoice facts:\n")
		keys := make([]string, 0, len(req.Context))
		for k := range req.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, factString(req.Context[k]))
		}
		b.WriteString("\n")
	}

	if len(req.References) > 0 {
		b.WriteString("Regulation excerpts:\n")
		for i, ref := range req.References {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(ref))
		}
		b.WriteString("\n")
	}

	b.WriteString("Answer with the JSON object only.")
	return b.String()
}

func factString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
