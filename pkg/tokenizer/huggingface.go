package tokenizer

import (
	"fmt"
	"path/filepath"

	"github.com/daulet/tokenizers"
)

// HuggingFace counts tokens with a HuggingFace tokenizer.json file, for
// runs where the chunk budget must match a specific embedding model.
type HuggingFace struct {
	tk   *tokenizers.Tokenizer
	name string
}

func NewHuggingFace(path string) (*HuggingFace, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer from %s: %w", path, err)
	}
	return &HuggingFace{tk: tk, name: filepath.Base(path)}, nil
}

func (h *HuggingFace) Count(text string) (int, error) {
	ids, _ := h.tk.Encode(text, false)
	return len(ids), nil
}

func (h *HuggingFace) Identity() string {
	return "hf/" + h.name
}

func (h *HuggingFace) Close() error {
	return h.tk.Close()
}
