package page

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Context is a snapshot of page identity taken when a pattern is learned or matched.
// It is treated as immutable once captured.
type Context struct {
	URL               string    `json:"url"`
	Hostname          string    `json:"hostname"`
	Pathname          string    `json:"pathname"`
	Title             string    `json:"title,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	PageStructureHash string    `json:"page_structure_hash,omitempty"`
}

// MaxStructureTokens bounds how many elements feed the structure hash.
const MaxStructureTokens = 20

// NewContext builds a Context from a raw URL, deriving hostname and pathname.
func NewContext(rawURL, title, structureHash string, at time.Time) Context {
	c := Context{
		URL:               rawURL,
		Title:             title,
		Timestamp:         at,
		PageStructureHash: structureHash,
	}
	if u, err := url.Parse(rawURL); err == nil {
		c.Hostname = strings.ToLower(u.Hostname())
		c.Pathname = u.EscapedPath()
		if c.Pathname == "" && c.Hostname != "" {
			c.Pathname = "/"
		}
	}
	return c
}

// IsZero reports whether nothing identifying was captured.
func (c Context) IsZero() bool {
	return c.URL == "" && c.Hostname == "" && c.Pathname == ""
}

// StructureHash digests element tokens (tag#id.class...) in document order.
// Only the first MaxStructureTokens tokens are used. The digest is a cheap
// "did the page probably change" signal, not a content hash: unrelated DOM
// churn can change it and real changes past the sample are missed.
func StructureHash(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > MaxStructureTokens {
		tokens = tokens[:MaxStructureTokens]
	}
	d := xxhash.New()
	for _, t := range tokens {
		_, _ = d.WriteString(t)
		_, _ = d.WriteString("|")
	}
	return strconv.FormatUint(d.Sum64(), 36)
}

// ElementToken renders one element as a structure token.
func ElementToken(tag, id string, classes []string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(tag))
	if id != "" {
		b.WriteByte('#')
		b.WriteString(id)
	}
	for _, c := range classes {
		if c == "" {
			continue
		}
		b.WriteByte('.')
		b.WriteString(c)
	}
	return b.String()
}
