package service

import (
	"context"
	"fmt"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/suggest"
)

// ListCategories returns the user's categories, all of them when typ is nil.
func (s *Service) ListCategories(ctx context.Context, userID string, typ *domain.TransactionType) ([]domain.Category, error) {
	if typ != nil && !typ.Valid() {
		return nil, fmt.Errorf("ListCategories: %w: unknown type %q", domain.ErrInvalidInput, *typ)
	}
	cats, err := s.repo.ListCategories(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	return cats, nil
}

// CreateCategory validates c and stores it for userID.
func (s *Service) CreateCategory(ctx context.Context, userID string, c domain.Category) (domain.Category, error) {
	c.UserID = userID
	c.Normalize()
	if err := c.Validate(); err != nil {
		return domain.Category{}, fmt.Errorf("CreateCategory: %w", err)
	}

	id, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return domain.Category{}, fmt.Errorf("CreateCategory: %w", err)
	}
	c.ID = id
	c.CreatedAt = s.opts.Now().UTC()
	return c, nil
}

// UpdateCategory renames and recolours a category. Its type cannot change.
func (s *Service) UpdateCategory(ctx context.Context, userID, id, name, color string) (domain.Category, error) {
	// Type is only set to pass validation; it is not written.
	c := domain.Category{ID: id, UserID: userID, Name: name, Color: color, Type: domain.Expense}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}
	if err := s.repo.UpdateCategory(ctx, userID, id, c.Name, c.Color); err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: %w", err)
	}

	cats, err := s.repo.ListCategories(ctx, userID, nil)
	if err != nil {
		return domain.Category{}, fmt.Errorf("UpdateCategory: reload: %w", err)
	}
	for _, cat := range cats {
		if cat.ID == id {
			return cat, nil
		}
	}
	return domain.Category{}, fmt.Errorf("UpdateCategory: %w", domain.ErrNotFound)
}

// DeleteCategory removes a category of the user.
func (s *Service) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteCategory(ctx, userID, id); err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	s.log.Info().Str("category_id", id).Str("user_id", userID).Msg("Deleted category")
	return nil
}

// SuggestCategory asks the model which of the user's categories of typ fits note.
func (s *Service) SuggestCategory(ctx context.Context, userID, note string, typ domain.TransactionType) (suggest.Suggestion, error) {
	if s.suggester == nil {
		return suggest.Suggestion{}, suggest.ErrDisabled
	}
	if !typ.Valid() {
		return suggest.Suggestion{}, fmt.Errorf("SuggestCategory: %w: unknown type %q", domain.ErrInvalidInput, typ)
	}
	cats, err := s.repo.ListCategories(ctx, userID, &typ)
	if err != nil {
		return suggest.Suggestion{}, fmt.Errorf("SuggestCategory: %w", err)
	}
	return s.suggester.Suggest(ctx, note, typ, cats)
}
