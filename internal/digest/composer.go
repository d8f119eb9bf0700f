package digest

import "sort"

// PathSet is a set of fragment paths.
type PathSet map[string]struct{}

// NewPathSet creates a set holding paths.
func NewPathSet(paths ...string) PathSet {
	set := make(PathSet, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether p is in the set. A nil set is empty.
func (s PathSet) Has(p string) bool {
	_, ok := s[p]
	return ok
}

func (s PathSet) Add(p string) { s[p] = struct{}{} }

func (s PathSet) Remove(p string) { delete(s, p) }

// Sorted returns the members in byte order.
func (s PathSet) Sorted() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Composition is a digest filtered down to the enabled fragments.
type Composition struct {
	Digest        string `json:"digest"`
	TokenEstimate int    `json:"token_estimate"`
	FileCount     int    `json:"file_count"`
}

// Compose drops the disabled fragments from full and re-joins the rest in
// their original order. The token estimate is summed per fragment.
func Compose(full string, disabled PathSet) Composition {
	return compose(Parse(full), disabled)
}

func compose(fragments []Fragment, disabled PathSet) Composition {
	var (
		kept   []Fragment
		tokens int
	)
	for _, f := range fragments {
		if disabled.Has(f.Path) {
			continue
		}
		kept = append(kept, f)
		tokens += EstimateTokens(f.Text())
	}
	return Composition{
		Digest:        Join(kept),
		TokenEstimate: tokens,
		FileCount:     len(kept),
	}
}

// Selection tracks which fragments of a digest are disabled.
type Selection struct {
	fragments []Fragment
	disabled  PathSet
}

// NewSelection parses full and starts with the given paths disabled.
// Paths that are not in the digest are dropped.
func NewSelection(full string, disabled []string) *Selection {
	s := &Selection{fragments: Parse(full), disabled: PathSet{}}
	known := make(PathSet, len(s.fragments))
	for _, f := range s.fragments {
		known.Add(f.Path)
	}
	for _, p := range disabled {
		if known.Has(p) {
			s.disabled.Add(p)
		}
	}
	return s
}

// Fragments returns the parsed fragments in digest order.
func (s *Selection) Fragments() []Fragment {
	return s.fragments
}

// IsDisabled reports whether path is excluded.
func (s *Selection) IsDisabled(path string) bool {
	return s.disabled.Has(path)
}

// Disabled returns the disabled paths, sorted.
func (s *Selection) Disabled() []string {
	return s.disabled.Sorted()
}

// TogglePath flips one fragment.
func (s *Selection) TogglePath(path string) {
	if s.disabled.Has(path) {
		s.disabled.Remove(path)
		return
	}
	for _, f := range s.fragments {
		if f.Path == path {
			s.disabled.Add(path)
			return
		}
	}
}

// ToggleDir flips every fragment directly inside dir as one update: when
// all of them are already disabled they are all enabled, otherwise they
// are all disabled.
func (s *Selection) ToggleDir(dir string) {
	var paths []string
	allDisabled := true
	for _, f := range s.fragments {
		if f.Dir() != dir {
			continue
		}
		paths = append(paths, f.Path)
		if !s.disabled.Has(f.Path) {
			allDisabled = false
		}
	}

	for _, p := range paths {
		if allDisabled {
			s.disabled.Remove(p)
		} else {
			s.disabled.Add(p)
		}
	}
}

// Compose returns the digest with the disabled fragments removed.
func (s *Selection) Compose() Composition {
	return compose(s.fragments, s.disabled)
}

// SectionFile is one fragment in a directory section.
type SectionFile struct {
	Path     string `json:"path"`
	FileName string `json:"file_name"`
	Tokens   int    `json:"tokens"`
	Disabled bool   `json:"disabled"`
}

// Section groups the fragments of one directory.
type Section struct {
	Dir string `json:"dir"`
	// Tokens counts the enabled fragments only.
	Tokens  int           `json:"tokens"`
	Enabled int           `json:"enabled"`
	Files   []SectionFile `json:"files"`
}

// Sections groups fragments by directory, directories sorted.
func (s *Selection) Sections() []Section {
	byDir := map[string]*Section{}
	var dirs []string
	for _, f := range s.fragments {
		dir := f.Dir()
		sec, ok := byDir[dir]
		if !ok {
			sec = &Section{Dir: dir}
			byDir[dir] = sec
			dirs = append(dirs, dir)
		}
		file := SectionFile{
			Path:     f.Path,
			FileName: f.FileName(),
			Tokens:   EstimateTokens(f.Text()),
			Disabled: s.disabled.Has(f.Path),
		}
		if !file.Disabled {
			sec.Tokens += file.Tokens
			sec.Enabled++
		}
		sec.Files = append(sec.Files, file)
	}

	sort.Strings(dirs)
	sections := make([]Section, 0, len(dirs))
	for _, dir := range dirs {
		sections = append(sections, *byDir[dir])
	}
	return sections
}
