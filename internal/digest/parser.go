package digest

import (
	"path"
	"strings"
)

// HeaderPrefix opens a fragment. A content line that happens to start with
// it is read as a new fragment; the format has no escaping.
const HeaderPrefix = "## "

// Fragment is the digest unit for one file.
type Fragment struct {
	Path    string
	Content string
}

// Header returns the fragment's header line.
func (f Fragment) Header() string {
	return HeaderPrefix + f.Path
}

// Text rebuilds the fragment as it appears in a digest.
func (f Fragment) Text() string {
	if f.Content == "" {
		return f.Header()
	}
	return f.Header() + "\n" + f.Content
}

// Dir returns the fragment's containing directory, "." at the root.
func (f Fragment) Dir() string {
	return path.Dir(f.Path)
}

// FileName returns the base name without its extension.
func (f Fragment) FileName() string {
	base := path.Base(f.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Join concatenates fragments into a digest, in the order given.
func Join(fragments []Fragment) string {
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		texts = append(texts, f.Text())
	}
	return strings.Join(texts, "\n")
}

// Parse splits a digest into fragments. Leading blank lines are allowed;
// any other text before the first header, or no header at all, yields an
// empty list. Graph building and section composition both split digests
// through this function.
func Parse(text string) []Fragment {
	var (
		fragments []Fragment
		current   *Fragment
		content   []string
	)
	flush := func() {
		if current != nil {
			current.Content = strings.Join(content, "\n")
			fragments = append(fragments, *current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, HeaderPrefix) {
			flush()
			current = &Fragment{Path: strings.TrimSpace(line[len(HeaderPrefix):])}
			content = nil
			continue
		}
		if current == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil
		}
		content = append(content, line)
	}
	flush()
	return fragments
}
