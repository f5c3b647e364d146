package repository

import (
	"errors"
	"sync"

	"github.com/willibrandon/gonuget-vs/core"
)

// combinedScope releases a set of operation scopes together, last acquired
// first. Close is idempotent.
type combinedScope struct {
	scopes []core.OperationScope
	once   sync.Once
	err    error
}

// CombineScopes returns one scope that closes every non-nil scope exactly
// once, joining their errors.
func CombineScopes(scopes ...core.OperationScope) core.OperationScope {
	return &combinedScope{scopes: scopes}
}

func (s *combinedScope) Close() error {
	s.once.Do(func() {
		var errs []error
		for i := len(s.scopes) - 1; i >= 0; i-- {
			if s.scopes[i] == nil {
				continue
			}
			if err := s.scopes[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}
