package store

import (
	"context"

	"storefront-service/internal/models"
)

const userFeatureColumns = `uf.id, uf.user_id, uf.feature_id, f.slug AS feature_slug, uf.status, uf.tipo_periodo,
	uf.data_inicio, uf.data_expiracao, uf.motivo, uf.atribuido_por, uf.updated_at`

// ListActiveFeatures returns the sellable feature catalog
func (s *Store) ListActiveFeatures(ctx context.Context) ([]models.Feature, error) {
	features := []models.Feature{}
	err := s.db.SelectContext(ctx, &features,
		"SELECT * FROM features WHERE active = TRUE ORDER BY name")
	return features, err
}

// GetFeatureBySlug retrieves a feature by slug
func (s *Store) GetFeatureBySlug(ctx context.Context, slug string) (*models.Feature, error) {
	var f models.Feature
	err := s.db.GetContext(ctx, &f, "SELECT * FROM features WHERE slug = $1", slug)
	if err != nil {
		return nil, notFound("feature", slug, err)
	}
	return &f, nil
}

// ListUserFeatures returns every grant of a user, whatever its status
func (s *Store) ListUserFeatures(ctx context.Context, userID string) ([]models.UserFeature, error) {
	grants := []models.UserFeature{}
	err := s.db.SelectContext(ctx, &grants,
		"SELECT "+userFeatureColumns+` FROM user_features uf
		JOIN features f ON f.id = uf.feature_id
		WHERE uf.user_id = $1
		ORDER BY f.slug`,
		userID)
	return grants, err
}

// GetUserFeature retrieves the grant of one feature to one user
func (s *Store) GetUserFeature(ctx context.Context, userID, slug string) (*models.UserFeature, error) {
	var g models.UserFeature
	err := s.db.GetContext(ctx, &g,
		"SELECT "+userFeatureColumns+` FROM user_features uf
		JOIN features f ON f.id = uf.feature_id
		WHERE uf.user_id = $1 AND f.slug = $2`,
		userID, slug)
	if err != nil {
		return nil, notFound("grant", userID+"/"+slug, err)
	}
	return &g, nil
}

// UpsertUserFeature writes a grant, replacing any earlier grant of the same feature
func (s *Store) UpsertUserFeature(ctx context.Context, g *models.UserFeature) error {
	return s.db.GetContext(ctx, g,
		`INSERT INTO user_features (user_id, feature_id, status, tipo_periodo, data_inicio, data_expiracao, motivo, atribuido_por)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, feature_id) DO UPDATE SET
			status = EXCLUDED.status,
			tipo_periodo = EXCLUDED.tipo_periodo,
			data_inicio = EXCLUDED.data_inicio,
			data_expiracao = EXCLUDED.data_expiracao,
			motivo = EXCLUDED.motivo,
			atribuido_por = EXCLUDED.atribuido_por,
			updated_at = NOW()
		RETURNING id, updated_at`,
		g.UserID, g.FeatureID, g.Status, g.TipoPeriodo, g.DataInicio, g.DataExpiracao, g.Motivo, g.AtribuidoPor)
}

// DeactivateUserFeature marks a grant inactive
func (s *Store) DeactivateUserFeature(ctx context.Context, userID, featureID, status string, reason, actor *string) error {
	return s.execOne(ctx, "grant", userID+"/"+featureID,
		`UPDATE user_features SET status = $1, motivo = $2, atribuido_por = $3, updated_at = NOW()
		WHERE user_id = $4 AND feature_id = $5`,
		status, reason, actor, userID, featureID)
}
