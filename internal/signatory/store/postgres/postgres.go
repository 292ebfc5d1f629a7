package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fitgap/internal/platform/postgres"
	"fitgap/internal/signatory/models"
	id "fitgap/pkg/domain"
)

type Store struct {
	db postgres.Querier
}

func New(db postgres.Querier) *Store {
	return &Store{db: db}
}

// Create relies on the (assessment_id, role) unique index to reject a second
// signatory for the same role.
func (s *Store) Create(ctx context.Context, sig *models.Signatory) error {
	_, err := postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, `
		INSERT INTO assessment_signatories (id, assessment_id, role, signer_id, signer_name, signer_email, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(sig.ID), uuid.UUID(sig.AssessmentID), string(sig.Role), uuid.UUID(sig.SignerID),
		sig.SignerName, sig.SignerEmail, sig.SignedAt)
	return postgres.MapError(err, "signatory", sig.Role)
}

func (s *Store) ListByAssessment(ctx context.Context, assessmentID id.AssessmentID) ([]*models.Signatory, error) {
	rows, err := postgres.QuerierFromCtx(ctx, s.db).Query(ctx, `
		SELECT id, assessment_id, role, signer_id, signer_name, signer_email, signed_at
		FROM assessment_signatories WHERE assessment_id = $1
		ORDER BY signed_at
	`, uuid.UUID(assessmentID))
	if err != nil {
		return nil, postgres.MapError(err, "signatories", assessmentID)
	}
	defer rows.Close()

	out := make([]*models.Signatory, 0, len(models.RequiredRoles))
	for rows.Next() {
		var (
			sig                       models.Signatory
			rawID, rawAssess, rawUser uuid.UUID
			role                      string
		)
		if err := rows.Scan(&rawID, &rawAssess, &role, &rawUser, &sig.SignerName, &sig.SignerEmail, &sig.SignedAt); err != nil {
			return nil, fmt.Errorf("scan signatory: %w", err)
		}
		sig.ID = id.SignatoryID(rawID)
		sig.AssessmentID = id.AssessmentID(rawAssess)
		sig.SignerID = id.UserID(rawUser)
		sig.Role = models.Role(role)
		out = append(out, &sig)
	}
	return out, rows.Err()
}
