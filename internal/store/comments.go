package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) ListComments(ctx context.Context, valID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, val_id, COALESCE(section_id, ''), COALESCE(detail_id, ''), body, status, author_name, COALESCE(resolved_by_name, ''), resolved_at, created_at
		FROM comments
		WHERE val_id=$1
		ORDER BY created_at ASC
	`, valID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	index := map[string]int{}
	for rows.Next() {
		var (
			item       Comment
			resolvedAt sql.NullTime
		)
		if err := rows.Scan(
			&item.ID,
			&item.ValID,
			&item.SectionID,
			&item.DetailID,
			&item.Body,
			&item.Status,
			&item.Author,
			&item.ResolvedBy,
			&resolvedAt,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			item.ResolvedAt = &t
		}
		item.Replies = make([]CommentReply, 0)
		index[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	replyRows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.comment_id, r.body, r.author_name, r.created_at
		FROM comment_replies r
		JOIN comments c ON c.id = r.comment_id
		WHERE c.val_id=$1
		ORDER BY r.created_at ASC
	`, valID)
	if err != nil {
		return nil, fmt.Errorf("list comment replies: %w", err)
	}
	defer replyRows.Close()

	for replyRows.Next() {
		var reply CommentReply
		if err := replyRows.Scan(&reply.ID, &reply.CommentID, &reply.Body, &reply.Author, &reply.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment reply: %w", err)
		}
		if i, ok := index[reply.CommentID]; ok {
			items[i].Replies = append(items[i].Replies, reply)
		}
	}
	if err := replyRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment replies: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertComment(ctx context.Context, item Comment) error {
	status := item.Status
	if status == "" {
		status = "OPEN"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, val_id, section_id, detail_id, body, status, author_name)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)
	`, item.ID, item.ValID, item.SectionID, item.DetailID, item.Body, status, item.Author)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCommentReply(ctx context.Context, reply CommentReply) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO comment_replies (id, comment_id, body, author_name)
		SELECT $1, c.id, $3, $4 FROM comments c WHERE c.id=$2
	`, reply.ID, reply.CommentID, reply.Body, reply.Author)
	if err != nil {
		return fmt.Errorf("insert comment reply: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert comment reply rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("comment %s: %w", reply.CommentID, ErrNotFound)
	}
	return nil
}

// ResolveComment marks an open comment resolved. It reports false when the
// comment does not exist or was already resolved.
func (s *PostgresStore) ResolveComment(ctx context.Context, commentID, resolvedBy string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE comments
		SET status='RESOLVED', resolved_by_name=$2, resolved_at=NOW()
		WHERE id=$1 AND status <> 'RESOLVED'
	`, commentID, resolvedBy)
	if err != nil {
		return false, fmt.Errorf("resolve comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve comment rows: %w", err)
	}
	return affected > 0, nil
}
