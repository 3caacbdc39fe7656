package store

import (
	"context"

	"storefront-service/internal/models"
)

// GetProfile retrieves a profile by user ID
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p,
		"SELECT id, full_name, email, phone, cpf, role, created_at FROM profiles WHERE id = $1", userID)
	if err != nil {
		return nil, notFound("profile", userID, err)
	}
	return &p, nil
}

// GetProfileRole retrieves only the role of a user
func (s *Store) GetProfileRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.GetContext(ctx, &role, "SELECT role FROM profiles WHERE id = $1", userID)
	if err != nil {
		return "", notFound("profile", userID, err)
	}
	return role, nil
}

// CreateProfile inserts a profile. An existing profile for the same ID is left untouched.
func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, email, phone, cpf, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.FullName, p.Email, p.Phone, p.CPF, p.Role)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateProfile overwrites the editable fields and role of an existing profile
func (s *Store) UpdateProfile(ctx context.Context, p *models.Profile) error {
	return s.execOne(ctx, "profile", p.ID,
		`UPDATE profiles SET full_name = $1, phone = $2, cpf = $3, role = $4 WHERE id = $5`,
		p.FullName, p.Phone, p.CPF, p.Role, p.ID)
}

// DeleteProfile removes a profile row
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = $1", userID)
	return err
}

// ListAdminIDs returns the IDs of every admin and super admin
func (s *Store) ListAdminIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids,
		"SELECT id FROM profiles WHERE role IN ($1, $2) ORDER BY created_at",
		models.RoleAdmin, models.RoleSuperAdmin)
	return ids, err
}
