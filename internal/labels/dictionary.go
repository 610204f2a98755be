package labels

// UnknownItem is the sentinel used for out-of-dictionary lookups.
const UnknownItem = "<unk>"

// Dictionary is an ordered mapping from tag string to integer index.
// Span-level dictionaries hold base labels ("person") and need expansion
// into token-level tags before scoring; token-level dictionaries are used
// as-is.
type Dictionary struct {
	item2idx   map[string]int
	idx2item   []string
	spanLabels bool
	hasUnknown bool
}

// NewDictionary creates an empty dictionary. When addUnknown is set, index 0
// is reserved for the unknown sentinel.
func NewDictionary(addUnknown bool) *Dictionary {
	d := &Dictionary{
		item2idx:   make(map[string]int),
		hasUnknown: addUnknown,
	}
	if addUnknown {
		d.Add(UnknownItem)
	}
	return d
}

// NewSpanDictionary creates a dictionary of span-level base labels.
func NewSpanDictionary(items ...string) *Dictionary {
	d := NewDictionary(false)
	d.spanLabels = true
	for _, item := range items {
		d.Add(item)
	}
	return d
}

// Add inserts an item and returns its index. Adding an existing item is a
// no-op that returns the existing index.
func (d *Dictionary) Add(item string) int {
	if idx, ok := d.item2idx[item]; ok {
		return idx
	}
	idx := len(d.idx2item)
	d.item2idx[item] = idx
	d.idx2item = append(d.idx2item, item)
	return idx
}

// Index returns the index for an item. Unknown items map to the unknown
// sentinel when the dictionary has one, otherwise ok is false.
func (d *Dictionary) Index(item string) (int, bool) {
	if idx, ok := d.item2idx[item]; ok {
		return idx, true
	}
	if d.hasUnknown {
		return d.item2idx[UnknownItem], true
	}
	return 0, false
}

// Item returns the item stored at idx.
func (d *Dictionary) Item(idx int) (string, bool) {
	if idx < 0 || idx >= len(d.idx2item) {
		return "", false
	}
	return d.idx2item[idx], true
}

// Items returns all items in insertion order.
func (d *Dictionary) Items() []string {
	out := make([]string, len(d.idx2item))
	copy(out, d.idx2item)
	return out
}

// Len returns the number of items, including the unknown sentinel if present.
func (d *Dictionary) Len() int {
	return len(d.idx2item)
}

// SpanLabels reports whether the dictionary holds span-level base labels.
func (d *Dictionary) SpanLabels() bool {
	return d.spanLabels
}

// HasUnknown reports whether the dictionary reserves an unknown sentinel.
func (d *Dictionary) HasUnknown() bool {
	return d.hasUnknown
}
