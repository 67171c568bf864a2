package entry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMalformedHeader is returned by Decode when a file starts a header
// block that is unterminated or not valid YAML. Callers decide recovery
// policy; the store degrades to a raw-body entry.
var ErrMalformedHeader = errors.New("entry: malformed header")

const delimiter = "---"

// frontmatter is the serialized header. Field order here is the on-disk
// key order; keep it stable so re-encoding an unchanged entry is
// byte-identical.
type frontmatter struct {
	Title      string         `yaml:"title"`
	CreatedAt  time.Time      `yaml:"created_at"`
	ModifiedAt time.Time      `yaml:"modified_at"`
	Tags       []string       `yaml:"tags"`
	WordCount  int            `yaml:"word_count"`
	MoodRating int            `yaml:"mood_rating,omitempty"`
	Reflection map[string]any `yaml:"ai_reflection,omitempty"`
	Version    int            `yaml:"version"`
}

// Encode serializes e as a YAML header block followed by the body verbatim.
func Encode(e *Entry) ([]byte, error) {
	fm := frontmatter{
		Title:      e.Title,
		CreatedAt:  e.CreatedAt,
		ModifiedAt: e.ModifiedAt,
		Tags:       e.Tags,
		WordCount:  e.WordCount,
		MoodRating: e.MoodRating,
		Reflection: e.Reflection,
		Version:    e.Version,
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	block, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("entry: encode header: %w", err)
	}

	var b strings.Builder
	b.Grow(len(block) + len(e.Body) + 2*len(delimiter) + 2)
	b.WriteString(delimiter)
	b.WriteByte('\n')
	b.Write(block)
	b.WriteString(delimiter)
	b.WriteByte('\n')
	b.WriteString(e.Body)
	return []byte(b.String()), nil
}

// Decode parses a stored entry for the given date.
//
// A file with no header block at all is not an error: the whole text
// becomes the body and metadata is defaulted. A header that opens but
// never closes, or whose YAML does not parse, yields ErrMalformedHeader.
func Decode(data []byte, d Date) (*Entry, error) {
	s := string(data)

	if !strings.HasPrefix(s, delimiter+"\n") {
		return raw(d, s), nil
	}

	rest := s[len(delimiter)+1:]
	var block, body string
	switch {
	case strings.HasPrefix(rest, delimiter+"\n"):
		// Empty header block.
		body = rest[len(delimiter)+1:]
	default:
		if i := strings.Index(rest, "\n"+delimiter+"\n"); i >= 0 {
			block = rest[:i+1]
			body = rest[i+1+len(delimiter)+1:]
		} else if strings.HasSuffix(rest, "\n"+delimiter) {
			block = rest[:len(rest)-len(delimiter)]
		} else {
			return nil, fmt.Errorf("%w: unterminated header block", ErrMalformedHeader)
		}
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	e := &Entry{
		Date:       d,
		Title:      fm.Title,
		Body:       body,
		CreatedAt:  fm.CreatedAt,
		ModifiedAt: fm.ModifiedAt,
		Tags:       fm.Tags,
		WordCount:  fm.WordCount,
		MoodRating: fm.MoodRating,
		Reflection: fm.Reflection,
		Version:    fm.Version,
	}
	if e.Title == "" {
		e.Title = DefaultTitle(d)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.WordCount == 0 {
		e.WordCount = CountWords(body)
	}
	if e.Version == 0 {
		e.Version = SchemaVersion
	}
	return e, nil
}

// raw wraps text that carries no recognizable header as a degraded entry.
func raw(d Date, body string) *Entry {
	e := New(d, body)
	e.WordCount = CountWords(body)
	return e
}
