package ingest

import (
	"context"

	"github.com/onnwee/vote-tender/vote"
)

// Emit hands one submission to the pipeline. It must not block.
type Emit func(vote.Submission)

// Source is a long-running chat listener. Run returns when the connection ends, the
// context is cancelled, or an error occurs; the supervisor decides whether to restart it.
type Source interface {
	Name() string
	Run(ctx context.Context, emit Emit) error
}

// SourceFunc adapts a function into a Source.
type SourceFunc struct {
	SourceName string
	Fn         func(ctx context.Context, emit Emit) error
}

func (f SourceFunc) Name() string { return f.SourceName }

func (f SourceFunc) Run(ctx context.Context, emit Emit) error { return f.Fn(ctx, emit) }
