package encoder

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates an encoder from its serializable configuration.
func New(config Config, logger *zap.Logger) (Encoder, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	switch config.Type {
	case TypeHash:
		return NewHashEncoder(config, logger)
	case TypeONNX:
		return NewONNXEncoder(config, logger)
	default:
		return nil, fmt.Errorf("unknown encoder type %q (must be hash or onnx)", config.Type)
	}
}

// ValidateConfig checks an encoder configuration before construction.
func ValidateConfig(config Config) error {
	switch config.Type {
	case TypeHash:
	case TypeONNX:
		if config.ModelPath == "" {
			return fmt.Errorf("model_path is required for the onnx encoder")
		}
		if config.VocabPath == "" {
			return fmt.Errorf("vocab_path is required for the onnx encoder")
		}
	default:
		return fmt.Errorf("unknown encoder type %q (must be hash or onnx)", config.Type)
	}
	if config.Dimensions < 0 {
		return fmt.Errorf("dimensions must not be negative")
	}
	return nil
}
