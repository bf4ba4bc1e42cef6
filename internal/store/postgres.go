package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"linkboard/api/internal/order"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, user.Username, user.PasswordHash, user.Role, user.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, status, created_at
		FROM users
		WHERE username=$1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Status, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by username: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID int64) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, status, created_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Status, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, role, status, created_at
		FROM users
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var item User
		if err := rows.Scan(&item.ID, &item.Username, &item.Role, &item.Status, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SetUserStatus(ctx context.Context, userID int64, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET status=$2, updated_at=NOW() WHERE id=$1
	`, userID, status)
	if err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set user status rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUserCascade removes a user together with every category and link the
// user owns, in one transaction.
func (s *PostgresStore) DeleteUserCascade(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE owner_user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete user links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE owner_user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete user categories: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// --- sessions (Postgres fallback when Redis is not configured) ---

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.username, u.role, u.status
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Username, &user.Role, &user.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// --- categories ---

// ListCategories returns the caller's categories in render order. Ties on
// sort_order break by id ascending, which keeps the order total.
func (s *PostgresStore) ListCategories(ctx context.Context, ownerUserID int64) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_user_id, name, sort_order, created_at, updated_at
		FROM categories
		WHERE owner_user_id=$1
		ORDER BY sort_order ASC, id ASC
	`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := make([]Category, 0)
	for rows.Next() {
		var item Category
		if err := rows.Scan(&item.ID, &item.OwnerUserID, &item.Name, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetCategory(ctx context.Context, ownerUserID, categoryID int64) (Category, error) {
	var item Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_user_id, name, sort_order, created_at, updated_at
		FROM categories
		WHERE id=$1 AND owner_user_id=$2
	`, categoryID, ownerUserID).Scan(&item.ID, &item.OwnerUserID, &item.Name, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertCategory(ctx context.Context, category Category) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (owner_user_id, name, sort_order)
		VALUES ($1, $2, $3)
		RETURNING id
	`, category.OwnerUserID, category.Name, category.SortOrder).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) RenameCategory(ctx context.Context, ownerUserID, categoryID int64, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name=$3, updated_at=NOW()
		WHERE id=$1 AND owner_user_id=$2
	`, categoryID, ownerUserID, name)
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename category rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategoryCascade removes every link scoped to the category, then the
// category row itself, in one transaction. Zero category rows affected means
// the category does not exist within the caller's scope.
func (s *PostgresStore) DeleteCategoryCascade(ctx context.Context, ownerUserID, categoryID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM links WHERE category_id=$1 AND owner_user_id=$2
	`, categoryID, ownerUserID); err != nil {
		return fmt.Errorf("delete category links: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM categories WHERE id=$1 AND owner_user_id=$2
	`, categoryID, ownerUserID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ApplyCategoryOrder persists a reorder write-set for the caller's category
// scope. Every update is guarded by the ownership predicate; a zero-row
// update aborts the whole transaction with ErrNotFound.
func (s *PostgresStore) ApplyCategoryOrder(ctx context.Context, ownerUserID int64, moves []order.Move) error {
	if len(moves) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin category order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, move := range moves {
		result, err := tx.ExecContext(ctx, `
			UPDATE categories SET sort_order=$3, updated_at=NOW()
			WHERE id=$1 AND owner_user_id=$2
		`, move.ID, ownerUserID, move.Ordinal)
		if err != nil {
			return fmt.Errorf("update category ordinal: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update category ordinal rows: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
	}
	return tx.Commit()
}

// --- links ---

// ListLinks returns the links of one category scope in render order.
func (s *PostgresStore) ListLinks(ctx context.Context, ownerUserID, categoryID int64) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_user_id, category_id, name, url, icon, sort_order, created_at, updated_at
		FROM links
		WHERE owner_user_id=$1 AND category_id=$2
		ORDER BY sort_order ASC, id ASC
	`, ownerUserID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

// ListLinksPage returns one window of a category scope. Order matches
// ListLinks so page boundaries are stable between reads without writes.
func (s *PostgresStore) ListLinksPage(ctx context.Context, ownerUserID, categoryID int64, limit, offset int) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_user_id, category_id, name, url, icon, sort_order, created_at, updated_at
		FROM links
		WHERE owner_user_id=$1 AND category_id=$2
		ORDER BY sort_order ASC, id ASC
		LIMIT $3 OFFSET $4
	`, ownerUserID, categoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links page: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func (s *PostgresStore) CountLinks(ctx context.Context, ownerUserID, categoryID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM links WHERE owner_user_id=$1 AND category_id=$2
	`, ownerUserID, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return count, nil
}

// ListLinksByOwner returns every link of the user, ordered by category
// ordinal first and link ordinal within each category.
func (s *PostgresStore) ListLinksByOwner(ctx context.Context, ownerUserID int64) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.owner_user_id, l.category_id, l.name, l.url, l.icon, l.sort_order, l.created_at, l.updated_at
		FROM links l
		JOIN categories c ON c.id = l.category_id
		WHERE l.owner_user_id=$1
		ORDER BY c.sort_order ASC, c.id ASC, l.sort_order ASC, l.id ASC
	`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list links by owner: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func (s *PostgresStore) GetLink(ctx context.Context, ownerUserID, linkID int64) (Link, error) {
	var item Link
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_user_id, category_id, name, url, icon, sort_order, created_at, updated_at
		FROM links
		WHERE id=$1 AND owner_user_id=$2
	`, linkID, ownerUserID).Scan(
		&item.ID, &item.OwnerUserID, &item.CategoryID, &item.Name, &item.URL,
		&item.Icon, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, fmt.Errorf("get link: %w", err)
	}
	return item, nil
}

// InsertLink creates a link only when its category belongs to the same user.
// A link referencing a foreign or missing category reports ErrNotFound.
func (s *PostgresStore) InsertLink(ctx context.Context, link Link) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO links (owner_user_id, category_id, name, url, icon, sort_order)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (SELECT 1 FROM categories WHERE id=$2 AND owner_user_id=$1)
		RETURNING id
	`, link.OwnerUserID, link.CategoryID, link.Name, link.URL, link.Icon, link.SortOrder).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("insert link: %w", err)
	}
	return id, nil
}

// UpdateLink rewrites a link's fields. Category reassignment re-verifies that
// the new category is owned by the same user.
func (s *PostgresStore) UpdateLink(ctx context.Context, link Link) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE links SET category_id=$3, name=$4, url=$5, icon=$6, updated_at=NOW()
		WHERE id=$1 AND owner_user_id=$2
			AND EXISTS (SELECT 1 FROM categories WHERE id=$3 AND owner_user_id=$2)
	`, link.ID, link.OwnerUserID, link.CategoryID, link.Name, link.URL, link.Icon)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update link rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateLinkIcon(ctx context.Context, ownerUserID, linkID int64, icon string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE links SET icon=$3, updated_at=NOW()
		WHERE id=$1 AND owner_user_id=$2
	`, linkID, ownerUserID, icon)
	if err != nil {
		return fmt.Errorf("update link icon: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update link icon rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteLink(ctx context.Context, ownerUserID, linkID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM links WHERE id=$1 AND owner_user_id=$2
	`, linkID, ownerUserID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete link rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyLinkOrder persists a reorder write-set for one category scope. Each
// update carries both the ownership and the category predicate, so a write
// can never land in a sibling scope.
func (s *PostgresStore) ApplyLinkOrder(ctx context.Context, ownerUserID, categoryID int64, moves []order.Move) error {
	if len(moves) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, move := range moves {
		result, err := tx.ExecContext(ctx, `
			UPDATE links SET sort_order=$4, updated_at=NOW()
			WHERE id=$1 AND owner_user_id=$2 AND category_id=$3
		`, move.ID, ownerUserID, categoryID, move.Ordinal)
		if err != nil {
			return fmt.Errorf("update link ordinal: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update link ordinal rows: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
	}
	return tx.Commit()
}

func scanLinks(rows *sql.Rows) ([]Link, error) {
	items := make([]Link, 0)
	for rows.Next() {
		var item Link
		if err := rows.Scan(
			&item.ID, &item.OwnerUserID, &item.CategoryID, &item.Name, &item.URL,
			&item.Icon, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return items, nil
}
