package llm

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant"
	Content string
}

// Request is one generation call. The system prompt travels separately because
// providers disagree on where it goes.
type Request struct {
	SystemPrompt string
	Messages     []Message
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// ChunkStream yields the answer incrementally. Recv returns io.EOF after the last
// chunk. A stream cannot be restarted; Close releases it early and is safe to repeat.
type ChunkStream interface {
	Recv() (string, error)
	Close() error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	Name() string
	Stream(ctx context.Context, req Request, options ...Option) (ChunkStream, error)
}

// Collect drains a stream into one string and closes it.
func Collect(stream ChunkStream) (string, error) {
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}

// SliceStream replays fixed chunks. Useful for tests and canned answers.
type SliceStream struct {
	chunks []string
	pos    int
	closed bool
}

func NewSliceStream(chunks ...string) *SliceStream {
	return &SliceStream{chunks: chunks}
}

func (s *SliceStream) Recv() (string, error) {
	if s.closed || s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}
