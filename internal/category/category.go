// Package category exposes the research categories a viewer can browse, with how many visible documents each holds.
package category

import (
	"context"
	"log/slog"
	"strings"
)

// Category is a facet over the documents visible to one viewer. Blank categories are never reported.
type Category struct {
	Name          string `json:"name"`
	DocumentCount int64  `json:"documentCount"`
}

type RepositoryAPI interface {
	// ListVisible groups the documents visible to viewerID by category, most populated first.
	ListVisible(ctx context.Context, viewerID string) ([]*Category, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetCategories uses the same visibility scope as the document list: anonymous viewers only see public documents.
func (s *Service) GetCategories(ctx context.Context, viewerID string) ([]*Category, error) {
	categories, err := s.repo.ListVisible(ctx, viewerID)
	if err != nil {
		s.logger.Error("failed to get categories from repository", "error", err)
		return nil, err
	}

	out := make([]*Category, 0, len(categories))
	for _, c := range categories {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		out = append(out, c)
	}

	s.logger.Debug("retrieved categories", "count", len(out))
	return out, nil
}
