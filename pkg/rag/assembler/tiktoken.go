package assembler

import (
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// BPE ranks ship with the binary; nothing is fetched at startup.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TiktokenCounter counts tokens with the BPE encoding of an OpenAI model family.
type TiktokenCounter struct {
	Model    string
	encoding *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{Model: model, encoding: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// NewCounterForModel returns a tiktoken counter when the model has a known encoding
// and the rune estimate otherwise.
func NewCounterForModel(model string) TokenCounter {
	if model != "" {
		if c, err := NewTiktokenCounter(model); err == nil {
			return c
		}
	}
	return NewEstimateCounter()
}
