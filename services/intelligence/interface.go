// File: services/intelligence/interface.go
package ai

import "context"

// Rephraser turns a canonical negotiation line into natural chat language.
// It must never change the numbers: callers verify the amounts survived and
// fall back to the canonical line otherwise, so every price a provider sees
// was computed by the evaluator, not by a language model.
type Rephraser interface {
	Rephrase(ctx context.Context, instruction, canonical string) (string, error)
}
