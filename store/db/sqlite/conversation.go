package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/prodassist/prodassist/store"
)

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id  TEXT NOT NULL UNIQUE,
			created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
			updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE TABLE IF NOT EXISTS turn_message (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL REFERENCES conversation(id) ON DELETE CASCADE,
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			tool_name       TEXT NOT NULL DEFAULT '',
			created_ts      BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turn_message_conversation ON turn_message(conversation_id)`,
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	stmt := "INSERT INTO conversation (thread_id) VALUES (?)"
	if _, err := d.db.ExecContext(ctx, stmt, create.ThreadID); err != nil {
		return nil, err
	}
	// Fetch it back to populate timestamps
	return d.GetConversation(ctx, &store.FindConversation{ThreadID: &create.ThreadID})
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.ThreadID; v != nil {
		where, args = append(where, "thread_id = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		`SELECT id, thread_id, created_ts, updated_ts
		 FROM conversation WHERE %s ORDER BY updated_ts DESC`,
		strings.Join(where, " AND "),
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.Conversation
	for rows.Next() {
		c := &store.Conversation{}
		if err := rows.Scan(&c.ID, &c.ThreadID, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (d *DB) GetConversation(ctx context.Context, find *store.FindConversation) (*store.Conversation, error) {
	list, err := d.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) TouchConversation(ctx context.Context, threadID string) error {
	stmt := "UPDATE conversation SET updated_ts = strftime('%s', 'now') WHERE thread_id = ?"
	_, err := d.db.ExecContext(ctx, stmt, threadID)
	return err
}

func (d *DB) DeleteConversation(ctx context.Context, threadID string) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM conversation WHERE thread_id = ?", threadID)
	return err
}

func (d *DB) CreateTurnMessage(ctx context.Context, create *store.CreateTurnMessage) (*store.TurnMessage, error) {
	stmt := "INSERT INTO turn_message (conversation_id, role, content, tool_name) VALUES (?, ?, ?, ?)"
	result, err := d.db.ExecContext(ctx, stmt, create.ConversationID, create.Role, create.Content, create.ToolName)
	if err != nil {
		return nil, err
	}
	rawID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	m := &store.TurnMessage{
		ID:             int32(rawID),
		ConversationID: create.ConversationID,
		Role:           create.Role,
		Content:        create.Content,
		ToolName:       create.ToolName,
	}
	// Fetch created_ts
	_ = d.db.QueryRowContext(ctx, "SELECT created_ts FROM turn_message WHERE id = ?", m.ID).Scan(&m.CreatedTs)

	return m, nil
}

func (d *DB) ListTurnMessages(ctx context.Context, find *store.FindTurnMessage) ([]*store.TurnMessage, error) {
	query := `SELECT id, conversation_id, role, content, tool_name, created_ts
	          FROM turn_message WHERE conversation_id = ? ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, find.ConversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.TurnMessage
	for rows.Next() {
		m := &store.TurnMessage{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ToolName, &m.CreatedTs); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (d *DB) DeleteTurnMessages(ctx context.Context, conversationID int32) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM turn_message WHERE conversation_id = ?", conversationID)
	return err
}
