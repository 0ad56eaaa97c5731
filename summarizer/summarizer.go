package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/meysamhadeli/codai-scope/embed_data"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/zeebo/xxh3"
)

const fallbackLines = 5

// Summarizer produces short structural outlines of source files, used as the excerpt of
// external files sent to the backend. Results are memoised by content hash.
type Summarizer struct {
	mutex  sync.Mutex
	cache  map[uint64]string
	hits   int64
	misses int64
}

func NewSummarizer() *Summarizer {
	return &Summarizer{cache: make(map[uint64]string)}
}

// Summarize returns a tagged outline ("function: main") for supported languages and the
// first few non-empty lines for anything else.
func (s *Summarizer) Summarize(ctx context.Context, filePath string, content []byte) string {
	language := GetSupportedLanguage(filePath)
	key := xxh3.HashString(language + "\x00" + string(content))

	s.mutex.Lock()
	if summary, ok := s.cache[key]; ok {
		s.hits++
		s.mutex.Unlock()
		return summary
	}
	s.misses++
	s.mutex.Unlock()

	summary, err := s.outline(ctx, language, content)
	if err != nil || summary == "" {
		summary = firstLines(content, fallbackLines)
	}

	s.mutex.Lock()
	s.cache[key] = summary
	s.mutex.Unlock()

	return summary
}

// Stats returns cache hit and miss counts.
func (s *Summarizer) Stats() (hits int64, misses int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.hits, s.misses
}

func (s *Summarizer) outline(ctx context.Context, language string, content []byte) (string, error) {
	var lang *sitter.Language
	var query []byte

	switch language {
	case "go":
		lang, query = golang.GetLanguage(), embed_data.GoQuery
	case "python":
		lang, query = python.GetLanguage(), embed_data.PythonQuery
	case "javascript":
		lang, query = javascript.GetLanguage(), embed_data.JavascriptQuery
	case "typescript":
		lang, query = typescript.GetLanguage(), embed_data.TypescriptQuery
	default:
		return "", nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s source: %w", language, err)
	}
	defer tree.Close()

	queries := make(map[string]string)
	if err := json.Unmarshal(query, &queries); err != nil {
		return "", fmt.Errorf("failed to parse %s queries: %w", language, err)
	}

	tags := make([]string, 0, len(queries))
	for tag := range queries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var elements []string
	for _, tag := range tags {
		q, err := sitter.NewQuery([]byte(queries[tag]), lang)
		if err != nil {
			return "", fmt.Errorf("failed to compile %s query %q: %w", language, tag, err)
		}

		cursor := sitter.NewQueryCursor()
		cursor.Exec(q, tree.RootNode())
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			for _, capture := range match.Captures {
				elements = append(elements, fmt.Sprintf("%s: %s", tag, capture.Node.Content(content)))
			}
		}
		cursor.Close()
		q.Close()
	}

	return strings.Join(elements, "\n"), nil
}

// GetSupportedLanguage maps a file extension to a tree-sitter language name.
func GetSupportedLanguage(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	default:
		return ""
	}
}

func firstLines(content []byte, n int) string {
	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return strings.Join(lines, "\n")
}
