package core

import "context"

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// ListImports returns the most recent imports, newest first. limit is
// clamped to [1, MaxHistoryLimit]; zero or less selects DefaultHistoryLimit.
func (s *Service) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	records, err := s.repo.ListImports(ctx, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []ImportRecord{}
	}
	return records, nil
}
