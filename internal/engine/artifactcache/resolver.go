package artifactcache

import (
	"context"
	"fmt"

	"go.trai.ch/stratum/internal/core/ports"
)

// Generator produces the artifact for one element.
// It reports false when the element has no artifact.
type Generator[E, A any] func(ctx context.Context, element E) (A, bool, error)

// KeyFunc derives the cache key of an element.
type KeyFunc[E any] func(element E) string

// ResolveReport counts what happened to each requested element.
type ResolveReport struct {
	Requested int
	Cached    int
	Generated int
	Skipped   int
}

// Resolver fronts an expensive Generator with a Cache.
type Resolver[E, A any] struct {
	cache    *Cache[A]
	key      KeyFunc[E]
	generate Generator[E, A]
	logger   ports.Logger
}

// NewResolver creates a Resolver that stores generated artifacts in cache.
func NewResolver[E, A any](cache *Cache[A], key KeyFunc[E], generate Generator[E, A], logger ports.Logger) *Resolver[E, A] {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Resolver[E, A]{
		cache:    cache,
		key:      key,
		generate: generate,
		logger:   logger,
	}
}

// Resolve returns the artifacts of elements in element order.
// Cached artifacts are reused; misses are generated and stored. Elements whose
// generation fails or yields no artifact are logged and skipped.
func (r *Resolver[E, A]) Resolve(ctx context.Context, elements []E) ([]A, ResolveReport, error) {
	report := ResolveReport{Requested: len(elements)}
	artifacts := make([]A, 0, len(elements))

	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return artifacts, report, err
		}

		key := r.key(el)
		if artifact, ok := r.cache.Get(key); ok {
			artifacts = append(artifacts, artifact)
			report.Cached++
			continue
		}

		artifact, ok, err := r.generate(ctx, el)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("skipping %s: %v", key, err))
			report.Skipped++
			continue
		}
		if !ok {
			report.Skipped++
			continue
		}

		r.cache.Put(key, artifact)
		artifacts = append(artifacts, artifact)
		report.Generated++
	}

	return artifacts, report, nil
}
