// Package postgres persists sign-off processes, area validations and
// signature records. Row locks and conditional writes provide the
// serialization that concurrent sign-off requests rely on.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fitgap/internal/platform/postgres"
	"fitgap/internal/signoff/models"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/sentinel"
)

const processColumns = `id, assessment_id, snapshot_id, status, initiated_by, initiated_by_email,
	verification_token_hash, rejection_reason, certificate_hash, completed_at, created_at, updated_at`

type ProcessStore struct {
	db postgres.Querier
}

func NewProcessStore(db postgres.Querier) *ProcessStore {
	return &ProcessStore{db: db}
}

func (s *ProcessStore) Create(ctx context.Context, p *models.Process) error {
	_, err := postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, `
		INSERT INTO sign_off_processes (`+processColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(p.ID), uuid.UUID(p.AssessmentID), uuid.UUID(p.SnapshotID), string(p.Status),
		uuid.UUID(p.InitiatedBy), p.InitiatedByEmail, p.VerificationTokenHash,
		nullString(p.RejectionReason), nullString(p.CertificateHash), p.CompletedAt,
		p.CreatedAt, p.UpdatedAt,
	)
	return postgres.MapError(err, "sign-off", p.ID)
}

func (s *ProcessStore) FindByID(ctx context.Context, signOffID id.SignOffID) (*models.Process, error) {
	row := postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx,
		`SELECT `+processColumns+` FROM sign_off_processes WHERE id = $1`, uuid.UUID(signOffID))
	p, err := scanProcess(row)
	if err != nil {
		return nil, postgres.MapError(err, "sign-off", signOffID)
	}
	return p, nil
}

// FindByIDForUpdate must run inside a transaction; the row stays locked
// until it ends.
func (s *ProcessStore) FindByIDForUpdate(ctx context.Context, signOffID id.SignOffID) (*models.Process, error) {
	row := postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx,
		`SELECT `+processColumns+` FROM sign_off_processes WHERE id = $1 FOR UPDATE`, uuid.UUID(signOffID))
	p, err := scanProcess(row)
	if err != nil {
		return nil, postgres.MapError(err, "sign-off", signOffID)
	}
	return p, nil
}

func (s *ProcessStore) FindByAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.Process, error) {
	row := postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx,
		`SELECT `+processColumns+` FROM sign_off_processes WHERE assessment_id = $1`, uuid.UUID(assessmentID))
	p, err := scanProcess(row)
	if err != nil {
		return nil, postgres.MapError(err, "sign-off for assessment", assessmentID)
	}
	return p, nil
}

// UpdateStatus is a compare-and-swap on status.
func (s *ProcessStore) UpdateStatus(ctx context.Context, p *models.Process, from models.Status) error {
	tag, err := postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, `
		UPDATE sign_off_processes
		SET status = $1, rejection_reason = $2, certificate_hash = $3, completed_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`,
		string(p.Status), nullString(p.RejectionReason), nullString(p.CertificateHash), p.CompletedAt,
		p.UpdatedAt, uuid.UUID(p.ID), string(from),
	)
	if err != nil {
		return postgres.MapError(err, "sign-off", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sign-off %s not in status %s: %w", p.ID, from, sentinel.ErrConflict)
	}
	return nil
}

func scanProcess(row pgx.Row) (*models.Process, error) {
	var (
		p                                models.Process
		rawID, assessmentID, snapshotID  uuid.UUID
		initiatedBy                      uuid.UUID
		status                           string
		rejectionReason, certificateHash *string
		completedAt                      *time.Time
	)
	err := row.Scan(&rawID, &assessmentID, &snapshotID, &status, &initiatedBy, &p.InitiatedByEmail,
		&p.VerificationTokenHash, &rejectionReason, &certificateHash, &completedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.SignOffID(rawID)
	p.AssessmentID = id.AssessmentID(assessmentID)
	p.SnapshotID = id.SnapshotID(snapshotID)
	p.InitiatedBy = id.UserID(initiatedBy)
	p.Status = models.Status(status)
	p.RejectionReason = deref(rejectionReason)
	p.CertificateHash = deref(certificateHash)
	p.CompletedAt = completedAt
	return &p, nil
}

type AreaValidationStore struct {
	db postgres.Querier
}

func NewAreaValidationStore(db postgres.Querier) *AreaValidationStore {
	return &AreaValidationStore{db: db}
}

// Upsert keeps the row ID of an earlier submission for the same area.
func (s *AreaValidationStore) Upsert(ctx context.Context, v *models.AreaValidation) (*models.AreaValidation, error) {
	var storedID uuid.UUID
	err := postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx, `
		INSERT INTO area_validations (id, sign_off_id, functional_area, validator_id, validator_email,
			validator_role, status, comments, rejection_reason, validated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sign_off_id, functional_area) DO UPDATE SET
			validator_id = EXCLUDED.validator_id,
			validator_email = EXCLUDED.validator_email,
			validator_role = EXCLUDED.validator_role,
			status = EXCLUDED.status,
			comments = EXCLUDED.comments,
			rejection_reason = EXCLUDED.rejection_reason,
			validated_at = EXCLUDED.validated_at
		RETURNING id
	`,
		uuid.UUID(v.ID), uuid.UUID(v.SignOffID), v.FunctionalArea, uuid.UUID(v.ValidatorID), v.ValidatorEmail,
		v.ValidatorRole, string(v.Status), nullString(v.Comments), nullString(v.RejectionReason), v.ValidatedAt,
	).Scan(&storedID)
	if err != nil {
		return nil, postgres.MapError(err, "area validation", v.FunctionalArea)
	}
	stored := *v
	stored.ID = id.AreaID(storedID)
	return &stored, nil
}

func (s *AreaValidationStore) ListBySignOff(ctx context.Context, signOffID id.SignOffID) ([]*models.AreaValidation, error) {
	rows, err := postgres.QuerierFromCtx(ctx, s.db).Query(ctx, `
		SELECT id, sign_off_id, functional_area, validator_id, validator_email, validator_role,
			status, comments, rejection_reason, validated_at
		FROM area_validations WHERE sign_off_id = $1
		ORDER BY functional_area
	`, uuid.UUID(signOffID))
	if err != nil {
		return nil, postgres.MapError(err, "area validations", signOffID)
	}
	defer rows.Close()

	out := make([]*models.AreaValidation, 0)
	for rows.Next() {
		var (
			v                         models.AreaValidation
			rawID, rawSignOff, rawVal uuid.UUID
			status                    string
			comments, reason          *string
		)
		if err := rows.Scan(&rawID, &rawSignOff, &v.FunctionalArea, &rawVal, &v.ValidatorEmail, &v.ValidatorRole,
			&status, &comments, &reason, &v.ValidatedAt); err != nil {
			return nil, fmt.Errorf("scan area validation: %w", err)
		}
		v.ID = id.AreaID(rawID)
		v.SignOffID = id.SignOffID(rawSignOff)
		v.ValidatorID = id.UserID(rawVal)
		v.Status = models.ValidationStatus(status)
		v.Comments = deref(comments)
		v.RejectionReason = deref(reason)
		out = append(out, &v)
	}
	return out, rows.Err()
}

const signatureColumns = `id, sign_off_id, signature_type, signer_id, signer_email, signer_organization,
	signer_title, authority_statement, ip_address, user_agent, client_device, auth_method,
	mfa_verified, document_hash, status, signed_at`

type SignatureStore struct {
	db postgres.Querier
}

func NewSignatureStore(db postgres.Querier) *SignatureStore {
	return &SignatureStore{db: db}
}

// CreateIfAbsent relies on the (sign_off_id, signature_type) unique index.
func (s *SignatureStore) CreateIfAbsent(ctx context.Context, r *models.SignatureRecord) error {
	tag, err := postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, `
		INSERT INTO signature_records (`+signatureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (sign_off_id, signature_type) DO NOTHING
	`,
		uuid.UUID(r.ID), uuid.UUID(r.SignOffID), string(r.Type), uuid.UUID(r.SignerID), r.SignerEmail,
		r.SignerOrganization, r.SignerTitle, r.AuthorityStatement, nullString(r.IPAddress),
		nullString(r.UserAgent), nullString(r.ClientDevice), nullString(r.AuthMethod),
		r.MFAVerified, r.DocumentHash, string(r.Status), r.SignedAt,
	)
	if err != nil {
		return postgres.MapError(err, "signature", r.Type)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("signature %s for sign-off %s: %w", r.Type, r.SignOffID, sentinel.ErrConflict)
	}
	return nil
}

func (s *SignatureStore) FindByType(ctx context.Context, signOffID id.SignOffID, t models.SignatureType) (*models.SignatureRecord, error) {
	row := postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx, `
		SELECT `+signatureColumns+` FROM signature_records
		WHERE sign_off_id = $1 AND signature_type = $2
	`, uuid.UUID(signOffID), string(t))
	r, err := scanSignature(row)
	if err != nil {
		return nil, postgres.MapError(err, "signature", t)
	}
	return r, nil
}

func (s *SignatureStore) ListBySignOff(ctx context.Context, signOffID id.SignOffID) ([]*models.SignatureRecord, error) {
	rows, err := postgres.QuerierFromCtx(ctx, s.db).Query(ctx, `
		SELECT `+signatureColumns+` FROM signature_records
		WHERE sign_off_id = $1 ORDER BY signed_at
	`, uuid.UUID(signOffID))
	if err != nil {
		return nil, postgres.MapError(err, "signatures", signOffID)
	}
	defer rows.Close()

	out := make([]*models.SignatureRecord, 0)
	for rows.Next() {
		r, err := scanSignature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanSignature(row pgx.Row) (*models.SignatureRecord, error) {
	var (
		r                                 models.SignatureRecord
		rawID, rawSignOff, rawSigner      uuid.UUID
		sigType, status                   string
		ip, userAgent, device, authMethod *string
	)
	err := row.Scan(&rawID, &rawSignOff, &sigType, &rawSigner, &r.SignerEmail, &r.SignerOrganization,
		&r.SignerTitle, &r.AuthorityStatement, &ip, &userAgent, &device, &authMethod,
		&r.MFAVerified, &r.DocumentHash, &status, &r.SignedAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.SignatureID(rawID)
	r.SignOffID = id.SignOffID(rawSignOff)
	r.SignerID = id.UserID(rawSigner)
	r.Type = models.SignatureType(sigType)
	r.Status = models.SignatureStatus(status)
	r.IPAddress = deref(ip)
	r.UserAgent = deref(userAgent)
	r.ClientDevice = deref(device)
	r.AuthMethod = deref(authMethod)
	return &r, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
