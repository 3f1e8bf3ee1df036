// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/livechat-tui/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a chat or message does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCursor is returned for a cursor that does not decode or
	// belongs to another chat.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// readerSep joins reader ids inside a single column.
const readerSep = "\x1f"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// =============================================================================
// STORE
// =============================================================================

// Store persists chats, members, messages, attachments and read receipts in
// SQLite.
type Store struct {
	db   *sql.DB
	path string

	// Now stamps messages without a creation time and read receipts.
	// Default: time.Now
	Now func() time.Time
}

// Open opens (creating if needed) the database at path. MemoryPath gives a
// throwaway database for tests and demos.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, and an in-memory database
	// lives exactly as long as its single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{db: db, path: path, Now: time.Now}, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CHATS
// =============================================================================

// PutChat inserts or replaces a chat together with its member list.
func (s *Store) PutChat(ctx context.Context, chat model.Chat) error {
	if chat.ID.IsZero() {
		return errors.New("chat id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (id, title, is_group, encrypted, last_activity) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			is_group = excluded.is_group,
			encrypted = excluded.encrypted,
			last_activity = MAX(chats.last_activity, excluded.last_activity)`,
		chat.ID.Key(), chat.Title, chat.IsGroup, chat.Encrypted, toMillis(chat.LastActivity))
	if err != nil {
		return fmt.Errorf("put chat %s: %w", chat.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE chat_id = ?`, chat.ID.Key()); err != nil {
		return fmt.Errorf("clear members of %s: %w", chat.ID, err)
	}
	for i, m := range chat.Members {
		role := m.Role
		if role == "" {
			role = model.RoleMember
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO members (chat_id, user_id, name, role, position) VALUES (?, ?, ?, ?, ?)`,
			chat.ID.Key(), m.UserID.Key(), m.Name, string(role), i)
		if err != nil {
			return fmt.Errorf("put member %s of %s: %w", m.UserID, chat.ID, err)
		}
	}

	return tx.Commit()
}

// Chat loads a chat, its members and the moderator message aggregate.
func (s *Store) Chat(ctx context.Context, id model.ID) (model.Chat, error) {
	var (
		chat     model.Chat
		chatID   string
		activity int64
		mods     int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.title, c.is_group, c.encrypted, c.last_activity,
			(SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id AND m.from_moderator = 1)
		FROM chats c WHERE c.id = ?`, id.Key()).
		Scan(&chatID, &chat.Title, &chat.IsGroup, &chat.Encrypted, &activity, &mods)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Chat{}, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Chat{}, fmt.Errorf("load chat %s: %w", id, err)
	}
	chat.ID = model.ID(chatID)
	chat.LastActivity = fromMillis(activity)
	chat.ModeratorMessages = &mods

	members, err := s.members(ctx, chatID)
	if err != nil {
		return model.Chat{}, err
	}
	chat.Members = members
	return chat, nil
}

// Chats lists every chat, most recently active first.
func (s *Store) Chats(ctx context.Context) ([]model.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chats ORDER BY last_activity DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chats := make([]model.Chat, 0, len(ids))
	for _, id := range ids {
		chat, err := s.Chat(ctx, model.ID(id))
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (s *Store) members(ctx context.Context, chatID string) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, role FROM members WHERE chat_id = ? ORDER BY position`, chatID)
	if err != nil {
		return nil, fmt.Errorf("load members of %s: %w", chatID, err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var userID, name, role string
		if err := rows.Scan(&userID, &name, &role); err != nil {
			return nil, err
		}
		members = append(members, model.Member{UserID: model.ID(userID), Name: name, Role: model.Role(role)})
	}
	return members, rows.Err()
}

// =============================================================================
// MESSAGES
// =============================================================================

// AddMessage stores msg under a fresh server id and returns the stored copy.
// data, when msg carries an attachment, is kept alongside it.
func (s *Store) AddMessage(ctx context.Context, msg model.Message, data []byte) (model.Message, error) {
	if !msg.CreatedAt.Valid() {
		msg.CreatedAt = model.At(s.Now())
	}
	if msg.Kind == "" {
		msg.Kind = model.KindText
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Message{}, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats WHERE id = ?`, msg.ChatID.Key()).Scan(&exists)
	if err != nil {
		return model.Message{}, err
	}
	if exists == 0 {
		return model.Message{}, fmt.Errorf("chat %s: %w", msg.ChatID, ErrNotFound)
	}

	created := toMillis(msg.CreatedAt.Time)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (chat_id, sender_id, created_at, date_key, kind, content, reply_to_id, from_moderator)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ChatID.Key(), msg.SenderID.Key(), created, msg.DateKey, string(msg.Kind), msg.Content,
		msg.ReplyToID.Key(), msg.FromModerator)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, err
	}

	if msg.Attachment != nil {
		size := msg.Attachment.Size
		if size == 0 {
			size = int64(len(data))
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attachments (message_id, name, mime_type, size, data) VALUES (?, ?, ?, ?, ?)`,
			id, msg.Attachment.Name, msg.Attachment.MIMEType, size, data)
		if err != nil {
			return model.Message{}, fmt.Errorf("insert attachment: %w", err)
		}
		att := *msg.Attachment
		att.Size = size
		msg.Attachment = &att
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE chats SET last_activity = MAX(last_activity, ?) WHERE id = ?`, created, msg.ChatID.Key())
	if err != nil {
		return model.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Message{}, err
	}

	msg.ID = model.IDFromInt(id)
	msg.ChatID = model.ID(msg.ChatID.Key())
	msg.ReadBy = nil
	msg.Pending = false
	msg.Failed = false
	return msg, nil
}

// messageColumns is shared by Message and Page; scanMessage reads it.
const messageColumns = `
	m.id, m.chat_id, m.sender_id, m.created_at, m.date_key, m.kind, m.content, m.reply_to_id, m.from_moderator,
	a.name, a.mime_type, a.size,
	COALESCE((SELECT group_concat(r.user_id, char(31)) FROM read_receipts r WHERE r.message_id = m.id), '')
	FROM messages m LEFT JOIN attachments a ON a.message_id = m.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (model.Message, error) {
	var (
		msg                           model.Message
		id, created                   int64
		chatID, senderID, kind, reply string
		attName, attMIME              sql.NullString
		attSize                       sql.NullInt64
		readers                       string
	)
	err := row.Scan(&id, &chatID, &senderID, &created, &msg.DateKey, &kind, &msg.Content, &reply,
		&msg.FromModerator, &attName, &attMIME, &attSize, &readers)
	if err != nil {
		return model.Message{}, err
	}
	msg.ID = model.IDFromInt(id)
	msg.ChatID = model.ID(chatID)
	msg.SenderID = model.ID(senderID)
	msg.CreatedAt = model.At(fromMillis(created))
	msg.Kind = model.Kind(kind)
	msg.ReplyToID = model.ID(reply)
	if attName.Valid {
		msg.Attachment = &model.Attachment{Name: attName.String, MIMEType: attMIME.String, Size: attSize.Int64}
	}
	if readers != "" {
		for _, r := range strings.Split(readers, readerSep) {
			msg.ReadBy = append(msg.ReadBy, model.ID(r))
		}
	}
	return msg, nil
}

// Message loads a single message by server id.
func (s *Store) Message(ctx context.Context, id model.ID) (model.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` WHERE m.id = ?`, id.Key())
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("load message %s: %w", id, err)
	}
	return msg, nil
}

// Page returns up to limit messages of chatID older than cursor, oldest
// first. The returned page carries the cursor for the next older page when
// more history remains.
func (s *Store) Page(ctx context.Context, chatID model.ID, cursor string, limit int) (model.Page, error) {
	limit = clampLimit(limit)
	c, err := DecodeCursor(cursor)
	if err != nil {
		return model.Page{}, err
	}
	before := int64(math.MaxInt64)
	if cursor != "" {
		if c.ChatID != chatID.Key() {
			return model.Page{}, fmt.Errorf("%w: cursor for chat %q used on %q", ErrInvalidCursor, c.ChatID, chatID)
		}
		before = c.BeforeID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` WHERE m.chat_id = ? AND m.id < ? ORDER BY m.id DESC LIMIT ?`,
		chatID.Key(), before, limit+1)
	if err != nil {
		return model.Page{}, fmt.Errorf("load page of %s: %w", chatID, err)
	}
	defer rows.Close()

	var newestFirst []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return model.Page{}, err
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, err
	}

	page := model.Page{ChatID: chatID, HasMore: len(newestFirst) > limit}
	if page.HasMore {
		newestFirst = newestFirst[:limit]
	}
	page.Messages = make([]model.Message, len(newestFirst))
	for i, msg := range newestFirst {
		page.Messages[len(newestFirst)-1-i] = msg
	}
	if page.HasMore {
		oldest, _ := idInt(page.Messages[0].ID)
		page.Cursor = EncodeCursor(Cursor{ChatID: chatID.Key(), BeforeID: oldest})
	}
	return page, nil
}

// MessageCount returns the number of stored messages in chatID.
func (s *Store) MessageCount(ctx context.Context, chatID model.ID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID.Key()).Scan(&n)
	return n, err
}

// AttachmentData returns the stored bytes of a message attachment.
func (s *Store) AttachmentData(ctx context.Context, messageID model.ID) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM attachments WHERE message_id = ?`, messageID.Key()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment of %s: %w", messageID, ErrNotFound)
	}
	return data, err
}

// =============================================================================
// READ RECEIPTS
// =============================================================================

// MarkRead records userID as reader of every message in chatID sent by
// someone else. It returns the number of new receipts.
func (s *Store) MarkRead(ctx context.Context, chatID, userID model.ID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO read_receipts (message_id, user_id, read_at)
		SELECT id, ?, ? FROM messages WHERE chat_id = ? AND sender_id <> ?`,
		userID.Key(), toMillis(s.Now()), chatID.Key(), userID.Key())
	if err != nil {
		return 0, fmt.Errorf("mark %s read by %s: %w", chatID, userID, err)
	}
	return res.RowsAffected()
}

// =============================================================================
// HELPERS
// =============================================================================

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func idInt(id model.ID) (int64, bool) {
	n, err := strconv.ParseInt(id.Key(), 10, 64)
	return n, err == nil
}
