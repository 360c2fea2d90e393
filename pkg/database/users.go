package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modular-shop-backend/pkg/models"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, is_active, created_at, last_login_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// ListUsers 列出全部用户及其所属组
func (s *SQLDatabase) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 第一个结果集关闭后再查询成员关系（SQLite 只有一个连接）
	groups, err := s.groupNamesByUser(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]models.UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile(groups[u.ID]))
	}
	return profiles, nil
}

func (s *SQLDatabase) groupNamesByUser(ctx context.Context) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.user_id, g.name
		FROM memberships m
		JOIN usergroups g ON g.id = m.group_id
		ORDER BY m.user_id, g.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var userID int64
		var name string
		if err := rows.Scan(&userID, &name); err != nil {
			return nil, err
		}
		out[userID] = append(out[userID], name)
	}
	return out, rows.Err()
}

// GetUserByID 根据ID获取用户
func (s *SQLDatabase) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// GetUserByUsername 根据用户名获取用户
func (s *SQLDatabase) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// UserExists reports whether username or email is already taken.
func (s *SQLDatabase) UserExists(ctx context.Context, username, email string) (bool, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM users WHERE username = $1 OR email = $2`, username, email)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return n > 0, nil
}

// CreateUser 创建用户并加入指定组；组不存在时返回 ErrInvalidReference，不写入任何行
func (s *SQLDatabase) CreateUser(ctx context.Context, user *models.User, groupNames []string) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx querier) error {
		groupIDs := make([]int64, 0, len(groupNames))
		seen := make(map[string]bool, len(groupNames))
		for _, name := range groupNames {
			if seen[name] {
				continue
			}
			seen[name] = true

			var id int64
			err := tx.QueryRowContext(ctx, `SELECT id FROM usergroups WHERE name = $1`, name).Scan(&id)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("group %q: %w", name, ErrInvalidReference)
			}
			if err != nil {
				return fmt.Errorf("failed to resolve group %q: %w", name, err)
			}
			groupIDs = append(groupIDs, id)
		}

		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (username, email, password_hash, first_name, last_name, is_active, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.IsActive, user.CreatedAt).
			Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("username or email already exists: %w", ErrDuplicate)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		for _, gid := range groupIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO memberships (user_id, group_id, joined_at) VALUES ($1, $2, $3)`,
				user.ID, gid, user.CreatedAt); err != nil {
				return fmt.Errorf("failed to enroll user: %w", err)
			}
		}
		return nil
	})
}

// UpdateUser 部分更新用户
func (s *SQLDatabase) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	var b updateBuilder
	if patch.Email != nil {
		b.add("email", *patch.Email)
	}
	if patch.FirstName != nil {
		b.add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		b.add("last_name", *patch.LastName)
	}
	if patch.IsActive != nil {
		b.add("is_active", *patch.IsActive)
	}
	if patch.PasswordHash != nil {
		b.add("password_hash", *patch.PasswordHash)
	}

	if !b.empty() {
		query, args := b.build("users", id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("email already exists: %w", ErrDuplicate)
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		if err := expectOneRow(res, "user"); err != nil {
			return nil, err
		}
	}
	return s.GetUserByID(ctx, id)
}

// DeleteUser 删除用户及其成员关系
func (s *SQLDatabase) DeleteUser(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx querier) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return expectOneRow(res, "user")
	})
}

// RecordLogin 记录最近登录时间
func (s *SQLDatabase) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return expectOneRow(res, "user")
}

// CountUsers 用户总数
func (s *SQLDatabase) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}
