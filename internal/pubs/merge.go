package pubs

// TitlePrefixLen is how many leading characters SameTitlePrefix compares.
const TitlePrefixLen = 50

// DuplicateFunc reports whether two normalized titles describe the same work.
type DuplicateFunc func(a, b string) bool

// SameTitlePrefix treats two titles as duplicates when their first
// TitlePrefixLen characters match. Both arguments are expected to be
// normalized (lowercased, trimmed). It can both under- and over-merge.
func SameTitlePrefix(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return prefix(a, TitlePrefixLen) == prefix(b, TitlePrefixLen)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// MergeResult is the deduplicated union of both sources.
type MergeResult struct {
	Records []Record
	// Added counts secondary records that were not already known.
	Added int
}

// Merge deduplicates primary and secondary records by identity key. Primary
// records always win in full; a secondary record is kept only when neither its
// DOI nor its title is already a merged key and dup does not match its title
// against any merged title. A nil dup disables the fuzzy check.
func Merge(primary, secondary []Record, dup DuplicateFunc) MergeResult {
	m := newMergeSet()

	for _, p := range primary {
		key := IdentityKey(p)
		if key == "" {
			continue
		}
		m.put(key, p)
	}

	added := 0
	for _, s := range secondary {
		doiKey := normalize(s.DOI)
		titleKey := normalize(s.Title)

		if doiKey != "" && m.has(doiKey) {
			continue
		}
		if titleKey != "" && m.has(titleKey) {
			continue
		}
		if titleKey != "" && dup != nil && m.anyTitle(titleKey, dup) {
			continue
		}

		key := doiKey
		if key == "" {
			key = titleKey
		}
		if key == "" {
			continue
		}
		m.put(key, s)
		added++
	}

	return MergeResult{Records: m.records, Added: added}
}

// mergeSet is an insertion-ordered map from identity key to record.
type mergeSet struct {
	index   map[string]int
	records []Record
}

func newMergeSet() *mergeSet {
	return &mergeSet{index: make(map[string]int)}
}

func (m *mergeSet) has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// put stores r under key. A repeated key replaces the earlier record in place.
func (m *mergeSet) put(key string, r Record) {
	if i, ok := m.index[key]; ok {
		m.records[i] = r
		return
	}
	m.index[key] = len(m.records)
	m.records = append(m.records, r)
}

func (m *mergeSet) anyTitle(title string, dup DuplicateFunc) bool {
	for _, r := range m.records {
		if dup(title, normalize(r.Title)) {
			return true
		}
	}
	return false
}
