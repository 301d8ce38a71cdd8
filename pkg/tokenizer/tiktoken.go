package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultEncoding = "cl100k_base"

// Tiktoken counts tokens with a tiktoken BPE encoding.
type Tiktoken struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc, encoding: encoding}, nil
}

func (t *Tiktoken) Count(text string) (int, error) {
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *Tiktoken) Identity() string {
	return "tiktoken/" + t.encoding
}
