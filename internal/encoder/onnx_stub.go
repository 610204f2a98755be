//go:build !onnx
// +build !onnx

package encoder

import (
	"go.uber.org/zap"
)

// NewONNXEncoder is unavailable without the onnx build tag.
func NewONNXEncoder(config Config, logger *zap.Logger) (Encoder, error) {
	return nil, ErrNotBuilt
}
