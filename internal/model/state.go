package model

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/encoder"
	"github.com/dualtag/dualtag/internal/labels"
)

// State is the persisted model: both encoder configurations, the expanded
// tag dictionary, the tag format, and the dropout rate.
type State struct {
	TokenEncoder  encoder.Config `json:"token_encoder"`
	LabelEncoder  encoder.Config `json:"label_encoder"`
	TagDictionary []string       `json:"tag_dictionary"`
	SpanLabels    bool           `json:"span_labels"`
	TagFormat     string         `json:"tag_format"`
	TagType       string         `json:"tag_type"`
	Dropout       float64        `json:"use_dropout"`
}

// State captures the model for persistence.
func (m *DualEncoder) State() *State {
	return &State{
		TokenEncoder:  m.tokenEncoder.Config(),
		LabelEncoder:  m.labelEncoder.Config(),
		TagDictionary: m.dict.Items(),
		SpanLabels:    m.predictSpans,
		TagFormat:     string(m.format),
		TagType:       m.tagType,
		Dropout:       m.dropout,
	}
}

// Save writes the model state as JSON.
func (m *DualEncoder) Save(path string) error {
	payload, err := json.MarshalIndent(m.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model state: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write model state: %w", err)
	}
	return nil
}

// FromState reconstructs a model: encoders are rebuilt from their stored
// configurations and the stored dictionary is used verbatim, without
// re-expansion.
func FromState(state *State, logger *zap.Logger) (*DualEncoder, error) {
	format, err := labels.ParseFormat(state.TagFormat)
	if err != nil {
		return nil, err
	}

	tokenEnc, err := encoder.New(state.TokenEncoder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to restore token encoder: %w", err)
	}
	labelEnc, err := encoder.New(state.LabelEncoder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to restore label encoder: %w", err)
	}

	dict := labels.NewDictionary(false)
	for _, tag := range state.TagDictionary {
		dict.Add(tag)
	}
	verbalized := make([]string, dict.Len())
	for idx, tag := range dict.Items() {
		verbalized[idx] = labels.Verbalize(tag)
	}

	m := &DualEncoder{
		tokenEncoder: tokenEnc,
		labelEncoder: labelEnc,
		dict:         dict,
		verbalized:   verbalized,
		format:       format,
		tagType:      state.TagType,
		dropout:      state.Dropout,
		predictSpans: state.SpanLabels,
		logger:       logger,
	}

	logger.Info("Dual encoder restored from state",
		zap.String("tag_type", m.tagType),
		zap.String("tag_format", string(m.format)),
		zap.Int("tagset_size", dict.Len()))

	return m, nil
}

// LoadFile reads a JSON model state and reconstructs the model.
func LoadFile(path string, logger *zap.Logger) (*DualEncoder, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model state: %w", err)
	}
	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model state: %w", err)
	}
	return FromState(&state, logger)
}
