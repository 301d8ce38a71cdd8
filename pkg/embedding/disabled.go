package embedding

import (
	"context"
	"errors"
)

// ErrDisabled is returned when no embedding endpoint is configured. The
// engine degrades to structural-only boundaries.
var ErrDisabled = errors.New("embedding client disabled")

type Disabled struct{}

func (Disabled) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrDisabled
}
