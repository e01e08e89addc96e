package reasoning

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/tmc/langchaingo/textsplitter"

	"gstaudit/internal/port"
)

//go:embed corpus/*.md
var embeddedCorpus embed.FS

// Chunking defaults for the regulation corpus.
const (
	DefaultChunkSize    = 600
	DefaultChunkOverlap = 80
)

type passage struct {
	source string
	text   string
	terms  map[string]struct{}
}

// CorpusRetriever ranks chunks of a small regulation corpus by how many of
// the query's terms they contain. It satisfies port.Retriever.
type CorpusRetriever struct {
	passages []passage
}

// NewCorpusRetriever splits every *.md and *.txt file in fsys into chunks.
// Chunks are named "<file>#<n>".
func NewCorpusRetriever(fsys fs.FS, chunkSize, chunkOverlap int) (*CorpusRetriever, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	var names []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".md", ".txt":
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus: %w", err)
	}
	sort.Strings(names)

	r := &CorpusRetriever{}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading corpus file %s: %w", name, err)
		}
		chunks, err := splitter.SplitText(string(data))
		if err != nil {
			return nil, fmt.Errorf("splitting %s: %w", name, err)
		}
		for i, c := range chunks {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			r.passages = append(r.passages, passage{
				source: fmt.Sprintf("%s#%d", path.Base(name), i+1),
				text:   c,
				terms:  termSet(c),
			})
		}
	}
	if len(r.passages) == 0 {
		return nil, fmt.Errorf("corpus has no passages")
	}
	return r, nil
}

// DefaultCorpus returns a retriever over the built-in GST and TDS excerpts.
func DefaultCorpus() (*CorpusRetriever, error) {
	sub, err := fs.Sub(embeddedCorpus, "corpus")
	if err != nil {
		return nil, err
	}
	return NewCorpusRetriever(sub, DefaultChunkSize, DefaultChunkOverlap)
}

// Len is the number of indexed passages.
func (r *CorpusRetriever) Len() int { return len(r.passages) }

// Retrieve returns up to k passages sharing at least one term with query,
// best first. Ties keep corpus order.
func (r *CorpusRetriever) Retrieve(ctx context.Context, query string, k int) ([]port.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	q := termSet(query)
	if len(q) == 0 {
		return nil, nil
	}

	var hits []port.Passage
	for _, p := range r.passages {
		matched := 0
		for t := range q {
			if _, ok := p.terms[t]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, port.Passage{
			Source: p.source,
			Text:   p.text,
			Score:  float64(matched) / float64(len(q)),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {}, "are": {},
	"is": {}, "of": {}, "to": {}, "in": {}, "on": {}, "or": {}, "an": {}, "by": {},
	"be": {}, "as": {}, "at": {}, "it": {}, "its": {}, "from": {}, "does": {}, "should": {},
	"invoice": {}, "line": {}, "check": {},
}

// termSet lower-cases s and keeps alphanumeric tokens of two or more
// characters that are not stopwords.
func termSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
