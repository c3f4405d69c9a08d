package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finantrack/internal/domain"
)

// ListAssociations returns every association, for the join picker.
func (s *Service) ListAssociations(ctx context.Context) ([]domain.Association, error) {
	out, err := s.repo.ListAssociations(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAssociations: %w", err)
	}
	if out == nil {
		out = []domain.Association{}
	}
	return out, nil
}

// Memberships returns the associations the user belongs to.
func (s *Service) Memberships(ctx context.Context, userID string) (domain.Memberships, error) {
	out, err := s.repo.ListMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Memberships: %w", err)
	}
	if out == nil {
		out = domain.Memberships{}
	}
	return out, nil
}

// CreateAssociationInput describes a new association. When DisplayName is
// set the creator joins it right away.
type CreateAssociationInput struct {
	Name        string `json:"name"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// CreateAssociation creates an association owned by userID.
func (s *Service) CreateAssociation(ctx context.Context, userID string, in CreateAssociationInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Password == "" {
		return "", fmt.Errorf("CreateAssociation: %w: name and password are required", domain.ErrInvalidInput)
	}

	id, err := s.repo.CreateAssociation(ctx, name, in.Password, userID)
	if err != nil {
		return "", fmt.Errorf("CreateAssociation: %w", err)
	}
	s.log.Info().Str("association_id", id).Str("user_id", userID).Msg("Created association")

	if display := strings.TrimSpace(in.DisplayName); display != "" {
		if _, err := s.repo.JoinAssociation(ctx, name, in.Password, display, userID); err != nil {
			return id, fmt.Errorf("CreateAssociation: join: %w", err)
		}
	}
	return id, nil
}

// JoinAssociationInput identifies the association to join and the name the
// user shows inside it.
type JoinAssociationInput struct {
	Name        string `json:"name"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// JoinAssociation adds userID to an association.
func (s *Service) JoinAssociation(ctx context.Context, userID string, in JoinAssociationInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	display := strings.TrimSpace(in.DisplayName)
	if name == "" || in.Password == "" {
		return "", fmt.Errorf("JoinAssociation: %w: name and password are required", domain.ErrInvalidInput)
	}
	if display == "" {
		return "", fmt.Errorf("JoinAssociation: %w: display name is required", domain.ErrInvalidInput)
	}

	id, err := s.repo.JoinAssociation(ctx, name, in.Password, display, userID)
	if err != nil {
		return "", fmt.Errorf("JoinAssociation: %w", err)
	}
	s.log.Info().Str("association_id", id).Str("user_id", userID).Msg("Joined association")
	return id, nil
}
