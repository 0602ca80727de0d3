package bm25

import "encoding/json"

// vocabEntry is one (term, index) pair in the serialized vocabulary.
type vocabEntry struct {
	Term  string `json:"term"`
	Index int    `json:"index"`
}

// idfEntry is one (term, idf) pair in the serialized idf table.
type idfEntry struct {
	Term string  `json:"term"`
	IDF  float32 `json:"idf"`
}

// modelState is the exact on-wire JSON shape: { vocabulary, idf,
// avg_doc_length, k1, b, min_term_len, stop_words, trained }.
type modelState struct {
	Vocabulary   []vocabEntry `json:"vocabulary"`
	IDF          []idfEntry   `json:"idf"`
	AvgDocLength float32      `json:"avg_doc_length"`
	K1           float64      `json:"k1"`
	B            float64      `json:"b"`
	MinTermLen   int          `json:"min_term_len"`
	StopWords    []string     `json:"stop_words"`
	Trained      bool         `json:"trained"`
}

// MarshalJSON serializes the model state. Vocabulary and idf entries are
// emitted in vocabulary-index order so the encoding is deterministic.
func (m *Model) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := modelState{
		AvgDocLength: m.avgDocLength,
		K1:           m.k1,
		B:            m.b,
		MinTermLen:   m.minTermLen,
		StopWords:    append([]string(nil), m.stopWords...),
		Trained:      m.trained,
	}

	state.Vocabulary = make([]vocabEntry, len(m.vocabTerms))
	state.IDF = make([]idfEntry, len(m.vocabTerms))
	for idx, term := range m.vocabTerms {
		state.Vocabulary[idx] = vocabEntry{Term: term, Index: idx}
		state.IDF[idx] = idfEntry{Term: term, IDF: m.idf[idx]}
	}

	return json.Marshal(state)
}

// UnmarshalJSON restores model state from a prior MarshalJSON round-trip.
// The reconstructed vocabulary/idf are indexed exactly as serialized, so
// the round-trip is bit-exact.
func (m *Model) UnmarshalJSON(data []byte) error {
	var state modelState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	vocabTerms := make([]string, len(state.Vocabulary))
	vocabulary := make(map[string]int, len(state.Vocabulary))
	for _, e := range state.Vocabulary {
		vocabTerms[e.Index] = e.Term
		vocabulary[e.Term] = e.Index
	}

	idf := make([]float32, len(vocabTerms))
	for _, e := range state.IDF {
		if idx, ok := vocabulary[e.Term]; ok {
			idf[idx] = e.IDF
		}
	}

	m.vocabTerms = vocabTerms
	m.vocabulary = vocabulary
	m.idf = idf
	m.avgDocLength = state.AvgDocLength
	m.k1 = state.K1
	m.b = state.B
	m.minTermLen = state.MinTermLen
	m.stopWords = append([]string(nil), state.StopWords...)
	m.stopWordSet = buildStopWordSet(m.stopWords)
	m.trained = state.Trained

	return nil
}
