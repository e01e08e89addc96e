package invoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForEachLine_KeepsOrder(t *testing.T) {
	ec := &EvalContext{
		Invoice:            &Invoice{LineItems: []LineItem{{Description: "a"}, {Description: "b"}, {Description: "c"}}},
		MaxLineConcurrency: 2,
	}
	out := forEachLine(context.Background(), ec, func(_ context.Context, i int, li *LineItem) lineOutcome {
		return lineOutcome{outcome: pass(1.0, "%d:%s", i, li.Description)}
	})
	var got []string
	for _, o := range out {
		got = append(got, o.reasoning)
	}
	assert.Equal(t, []string{"0:a", "1:b", "2:c"}, got)
}

func TestForEachLine_PanicReachesCaller(t *testing.T) {
	ec := &EvalContext{Invoice: &Invoice{LineItems: make([]LineItem, 4)}}
	assert.PanicsWithValue(t, "line 3 broke", func() {
		forEachLine(context.Background(), ec, func(_ context.Context, i int, _ *LineItem) lineOutcome {
			if i == 2 {
				panic("line 3 broke")
			}
			return lineOutcome{outcome: pass(1.0, "ok")}
		})
	})
}
