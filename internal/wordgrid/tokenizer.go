package wordgrid

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	unknownToken     = "[UNK]"
	maxCharsPerWord  = 100
	continuationMark = "##"
)

// Tokenizer is an uncased WordPiece tokenizer.
type Tokenizer struct {
	vocab map[string]int64
	unkID int64
}

func NewTokenizer(tokens []string) *Tokenizer {
	vocab := make(map[string]int64, len(tokens))
	for i, tok := range tokens {
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = int64(i)
		}
	}
	unk, ok := vocab[unknownToken]
	if !ok {
		unk = UnknownTokenID
	}
	return &Tokenizer{vocab: vocab, unkID: unk}
}

// LoadVocab reads a vocab.txt file, one token per line, id = line index.
func LoadVocab(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vocab: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocab %s is empty", path)
	}
	return NewTokenizer(tokens), nil
}

func (t *Tokenizer) UnknownID() int64 { return t.unkID }

func (t *Tokenizer) Size() int { return len(t.vocab) }

// Tokenize returns the word pieces of text.
func (t *Tokenizer) Tokenize(text string) []string {
	var pieces []string
	for _, word := range basicTokenize(text) {
		pieces = append(pieces, t.wordPiece(word)...)
	}
	return pieces
}

func (t *Tokenizer) Encode(text string) []int64 {
	pieces := t.Tokenize(text)
	ids := make([]int64, len(pieces))
	for i, p := range pieces {
		ids[i] = t.id(p)
	}
	return ids
}

func (t *Tokenizer) id(piece string) int64 {
	if id, ok := t.vocab[piece]; ok {
		return id
	}
	return t.unkID
}

func (t *Tokenizer) wordPiece(word string) []string {
	chars := []rune(word)
	if len(chars) > maxCharsPerWord {
		return []string{unknownToken}
	}

	var pieces []string
	for start := 0; start < len(chars); {
		end := len(chars)
		found := ""
		for end > start {
			sub := string(chars[start:end])
			if start > 0 {
				sub = continuationMark + sub
			}
			if _, ok := t.vocab[sub]; ok {
				found = sub
				break
			}
			end--
		}
		if found == "" {
			return []string{unknownToken}
		}
		pieces = append(pieces, found)
		start = end
	}
	return pieces
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// basicTokenize lowercases, strips accents and splits on whitespace, punctuation and CJK characters.
func basicTokenize(text string) []string {
	text = stripAccents(strings.ToLower(text))

	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || unicode.IsControl(r) && !unicode.IsSpace(r):
			continue
		case unicode.IsSpace(r):
			flush()
		case isPunctuation(r) || unicode.Is(unicode.Han, r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// LazyTokenizer loads the vocab on first use and retries after a failed load.
type LazyTokenizer struct {
	path string
	mu   sync.RWMutex
	tok  *Tokenizer
}

func NewLazyTokenizer(path string) *LazyTokenizer {
	return &LazyTokenizer{path: path}
}

// NewLoadedTokenizer wraps an already built tokenizer.
func NewLoadedTokenizer(tok *Tokenizer) *LazyTokenizer {
	return &LazyTokenizer{tok: tok}
}

func (l *LazyTokenizer) Get() (*Tokenizer, error) {
	l.mu.RLock()
	tok := l.tok
	l.mu.RUnlock()
	if tok != nil {
		return tok, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tok != nil {
		return l.tok, nil
	}
	tok, err := LoadVocab(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: vocab %s: %v", layoutModel.ErrModelUnavailable, l.path, err)
	}
	l.tok = tok
	return tok, nil
}
