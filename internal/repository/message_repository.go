package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-request-service/internal/domain"
)

// MessageRepository manages request thread messages and read receipts.
type MessageRepository interface {
	// Append inserts the message and recomputes the owning request's
	// message_count/last_message_at in the same transaction. Append order
	// is serialized per request and created_at never decreases within a
	// thread, even under wall-clock skew.
	Append(ctx context.Context, msg *domain.Message) error
	ListByRequest(ctx context.Context, requestID string, includeInternal bool, limit, offset int) ([]domain.Message, error)
	// MarkRead records read receipts for the viewer. Empty messageIDs
	// marks every message in the thread. Re-marking is a no-op.
	MarkRead(ctx context.Context, requestID, viewerID string, messageIDs []string) error
	UnreadCount(ctx context.Context, requestID, viewerID string, includeInternal bool) (int64, error)
	TotalAttachmentBytes(ctx context.Context, requestID string) (int64, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds the repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Row lock on the request serializes appends per thread.
	var lastMessageAt *time.Time
	err = tx.QueryRow(ctx,
		`SELECT last_message_at FROM requests WHERE id=$1 FOR UPDATE`,
		msg.RequestID,
	).Scan(&lastMessageAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	createdAt := time.Now()
	if lastMessageAt != nil && !createdAt.After(*lastMessageAt) {
		createdAt = lastMessageAt.Add(time.Microsecond)
	}

	const insertMsg = `
        INSERT INTO request_messages (request_id, sender_id, sender_role, body, internal, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	if err := tx.QueryRow(ctx, insertMsg,
		msg.RequestID,
		msg.SenderID,
		msg.SenderRole,
		msg.Body,
		msg.Internal,
		createdAt,
	).Scan(&msg.ID); err != nil {
		return err
	}
	msg.CreatedAt = createdAt

	const insertAtt = `
        INSERT INTO attachment_references (message_id, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		att.MessageID = msg.ID
		if err := tx.QueryRow(ctx, insertAtt,
			att.MessageID,
			att.StorageKey,
			att.FileName,
			att.MimeType,
			att.SizeBytes,
		).Scan(&att.ID, &att.CreatedAt); err != nil {
			return err
		}
	}

	const updateSummary = `
        UPDATE requests SET message_count = message_count + 1, last_message_at=$2, updated_at=NOW()
        WHERE id=$1`
	if _, err := tx.Exec(ctx, updateSummary, msg.RequestID, createdAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *messageRepository) ListByRequest(ctx context.Context, requestID string, includeInternal bool, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, request_id, sender_id, sender_role, body, internal, created_at
        FROM request_messages
        WHERE request_id=$1 AND ($2 OR internal = FALSE)
        ORDER BY created_at ASC, id ASC
        LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, requestID, includeInternal, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.RequestID,
			&msg.SenderID,
			&msg.SenderRole,
			&msg.Body,
			&msg.Internal,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := r.loadMessageRefs(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *messageRepository) loadMessageRefs(ctx context.Context, msg *domain.Message) error {
	const attQuery = `
        SELECT id, message_id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM attachment_references WHERE message_id=$1`
	rows, err := r.pool.Query(ctx, attQuery, msg.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var att domain.AttachmentReference
		if err := rows.Scan(&att.ID, &att.MessageID, &att.StorageKey, &att.FileName, &att.MimeType, &att.SizeBytes, &att.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const readQuery = `SELECT viewer_id FROM message_reads WHERE message_id=$1`
	readRows, err := r.pool.Query(ctx, readQuery, msg.ID)
	if err != nil {
		return err
	}
	defer readRows.Close()
	for readRows.Next() {
		var viewerID string
		if err := readRows.Scan(&viewerID); err != nil {
			return err
		}
		msg.ReadBy = append(msg.ReadBy, viewerID)
	}
	return readRows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, requestID, viewerID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		const query = `
            INSERT INTO message_reads (message_id, viewer_id)
            SELECT id, $2 FROM request_messages WHERE request_id=$1
            ON CONFLICT DO NOTHING`
		_, err := r.pool.Exec(ctx, query, requestID, viewerID)
		return err
	}
	const query = `
        INSERT INTO message_reads (message_id, viewer_id)
        SELECT id, $2 FROM request_messages WHERE request_id=$1 AND id = ANY($3)
        ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query, requestID, viewerID, messageIDs)
	return err
}

func (r *messageRepository) UnreadCount(ctx context.Context, requestID, viewerID string, includeInternal bool) (int64, error) {
	const query = `
        SELECT COUNT(*) FROM request_messages m
        WHERE m.request_id=$1 AND ($3 OR m.internal = FALSE)
          AND NOT EXISTS (
              SELECT 1 FROM message_reads r WHERE r.message_id=m.id AND r.viewer_id=$2
          )`
	var count int64
	if err := r.pool.QueryRow(ctx, query, requestID, viewerID, includeInternal).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *messageRepository) TotalAttachmentBytes(ctx context.Context, requestID string) (int64, error) {
	const query = `
        SELECT COALESCE(SUM(a.size_bytes), 0)
        FROM attachment_references a
        JOIN request_messages m ON m.id = a.message_id
        WHERE m.request_id=$1`
	var total int64
	if err := r.pool.QueryRow(ctx, query, requestID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
