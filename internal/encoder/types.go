package encoder

import (
	"time"
)

// Type selects the encoder implementation.
type Type string

const (
	// TypeHash is the deterministic hash encoder. It needs no model files
	// and is the default for tests and development.
	TypeHash Type = "hash"

	// TypeONNX runs a transformer model through ONNX Runtime. Requires the
	// onnx build tag.
	TypeONNX Type = "onnx"
)

// Config is the serializable encoder configuration. It is persisted inside
// the model state so a saved model reconstructs both of its encoders.
type Config struct {
	Type       Type   `json:"type" yaml:"type" mapstructure:"type"`
	ModelName  string `json:"model_name,omitempty" yaml:"model_name" mapstructure:"model_name"`
	ModelPath  string `json:"model_path,omitempty" yaml:"model_path" mapstructure:"model_path"`
	VocabPath  string `json:"vocab_path,omitempty" yaml:"vocab_path" mapstructure:"vocab_path"`
	Dimensions int    `json:"dimensions" yaml:"dimensions" mapstructure:"dimensions"`
	MaxLength  int    `json:"max_length" yaml:"max_length" mapstructure:"max_length"`
}

// Stats holds cumulative encoder statistics.
type Stats struct {
	TotalInferences  int64         `json:"total_inferences"`
	TotalUnits       int64         `json:"total_units"`
	AvgInferenceTime time.Duration `json:"avg_inference_time"`
	LastInference    time.Time     `json:"last_inference_time"`
}

// Error is a typed encoder error.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNotBuilt         = &Error{Kind: "not_built", Message: "encoder backend not compiled into this binary"}
	ErrModelNotLoaded   = &Error{Kind: "model_not_loaded", Message: "model not loaded"}
	ErrInferenceFailed  = &Error{Kind: "inference_failed", Message: "inference failed"}
	ErrInvalidDimension = &Error{Kind: "invalid_dimension", Message: "embedding dimension mismatch"}
)
