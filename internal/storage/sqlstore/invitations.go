package sqlstore

import (
	"context"
	"time"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/models"
)

const invitationColumns = `id, sender_id, plan_id, recipient_name, recipient_email, status, created_at, updated_at`

func (s *Store) AddInvitation(ctx context.Context, inv models.Invitation) error {
	_, err := s.exec(ctx, `
		INSERT INTO invitations (`+invitationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.SenderID, inv.PlanID, inv.RecipientName, inv.RecipientEmail,
		string(inv.Status), formatTimestamp(inv.CreatedAt), formatTimestamp(inv.UpdatedAt))
	return err
}

func (s *Store) GetInvitation(ctx context.Context, id string) (models.Invitation, error) {
	row := s.queryRow(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err != nil {
		return models.Invitation{}, s.notFound(err, "Invitation", id)
	}
	return inv, nil
}

// TransitionInvitation is a compare-and-set on the status column
func (s *Store) TransitionInvitation(ctx context.Context, id string, from, to constants.InvitationStatus, at time.Time) (bool, error) {
	res, err := s.exec(ctx, `
		UPDATE invitations SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), formatTimestamp(at), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.wrap(err)
	}
	return n == 1, nil
}

func (s *Store) HasActiveInvitation(ctx context.Context, planID string) (bool, error) {
	var count int
	err := s.queryRow(ctx, `
		SELECT COUNT(*) FROM invitations
		WHERE plan_id = ? AND status IN (?, ?)`,
		planID, string(constants.InvitationPending), string(constants.InvitationAccepted)).Scan(&count)
	if err != nil {
		return false, s.wrap(err)
	}
	return count > 0, nil
}

func (s *Store) GetInvitationsForRecipient(ctx context.Context, email string, status constants.InvitationStatus) ([]models.Invitation, error) {
	return s.queryInvitations(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE recipient_email = ? AND status = ?
		ORDER BY created_at, id`, email, string(status))
}

func (s *Store) GetInvitationsBySender(ctx context.Context, senderID string) ([]models.Invitation, error) {
	return s.queryInvitations(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE sender_id = ?
		ORDER BY created_at, id`, senderID)
}

func (s *Store) queryInvitations(ctx context.Context, query string, args ...any) ([]models.Invitation, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, s.wrap(rows.Err())
}

func scanInvitation(row interface{ Scan(...any) error }) (models.Invitation, error) {
	var inv models.Invitation
	var status, createdAt, updatedAt string
	err := row.Scan(&inv.ID, &inv.SenderID, &inv.PlanID, &inv.RecipientName,
		&inv.RecipientEmail, &status, &createdAt, &updatedAt)
	if err != nil {
		return models.Invitation{}, err
	}
	inv.Status = constants.InvitationStatus(status)

	if inv.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return models.Invitation{}, err
	}
	if inv.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}
