package data

// Loader yields mini-batches of sentences in order. Empty sentences are
// filtered out up front so batches never contain zero-length inputs.
type Loader struct {
	sentences []*Sentence
	batchSize int
	pos       int
}

// NewLoader creates a batching loader. A non-positive batch size defaults
// to 32.
func NewLoader(sentences []*Sentence, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 32
	}
	filtered := make([]*Sentence, 0, len(sentences))
	for _, s := range sentences {
		if s != nil && s.Len() > 0 {
			filtered = append(filtered, s)
		}
	}
	return &Loader{sentences: filtered, batchSize: batchSize}
}

// Next returns the next batch, or nil when exhausted.
func (l *Loader) Next() []*Sentence {
	if l.pos >= len(l.sentences) {
		return nil
	}
	end := l.pos + l.batchSize
	if end > len(l.sentences) {
		end = len(l.sentences)
	}
	batch := l.sentences[l.pos:end]
	l.pos = end
	return batch
}

// Reset rewinds the loader to the first batch.
func (l *Loader) Reset() {
	l.pos = 0
}

// Len returns the number of non-empty sentences.
func (l *Loader) Len() int {
	return len(l.sentences)
}
