package database

import (
	"context"
	"fmt"
	"time"

	"modular-shop-backend/pkg/models"
)

const groupQuery = `
	SELECT g.id, g.name, g.description, g.created_at, COUNT(m.user_id)
	FROM usergroups g
	LEFT JOIN memberships m ON m.group_id = g.id`

const groupGroupBy = ` GROUP BY g.id, g.name, g.description, g.created_at`

func scanGroup(row rowScanner) (*models.Group, error) {
	var g models.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.MemberCount); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGroups 列出全部用户组（含成员数）
func (s *SQLDatabase) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, groupQuery+groupGroupBy+` ORDER BY g.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

// GetGroup 根据ID获取用户组
func (s *SQLDatabase) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	g, err := scanGroup(s.db.QueryRowContext(ctx, groupQuery+` WHERE g.id = $1`+groupGroupBy, id))
	if err != nil {
		return nil, notFound(err, "group")
	}
	return g, nil
}

// GetGroupByName 根据名称获取用户组
func (s *SQLDatabase) GetGroupByName(ctx context.Context, name string) (*models.Group, error) {
	g, err := scanGroup(s.db.QueryRowContext(ctx, groupQuery+` WHERE g.name = $1`+groupGroupBy, name))
	if err != nil {
		return nil, notFound(err, "group")
	}
	return g, nil
}

// CreateGroup 创建用户组；名称重复返回 ErrDuplicate
func (s *SQLDatabase) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO usergroups (name, description, created_at) VALUES ($1, $2, $3) RETURNING id`,
		g.Name, g.Description, g.CreatedAt).Scan(&g.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("group %q: %w", g.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// UpdateGroup 部分更新用户组
func (s *SQLDatabase) UpdateGroup(ctx context.Context, id int64, patch models.GroupPatch) (*models.Group, error) {
	var b updateBuilder
	if patch.Name != nil {
		b.add("name", *patch.Name)
	}
	if patch.Description != nil {
		b.add("description", *patch.Description)
	}

	if !b.empty() {
		query, args := b.build("usergroups", id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("group name: %w", ErrDuplicate)
			}
			return nil, fmt.Errorf("failed to update group: %w", err)
		}
		if err := expectOneRow(res, "group"); err != nil {
			return nil, err
		}
	}
	return s.GetGroup(ctx, id)
}

// DeleteGroup 删除用户组及其成员关系
func (s *SQLDatabase) DeleteGroup(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx querier) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE group_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM usergroups WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return expectOneRow(res, "group")
	})
}

// ListGroupMembers 列出组成员
func (s *SQLDatabase) ListGroupMembers(ctx context.Context, groupID int64) ([]models.GroupMember, error) {
	if err := rowExists(ctx, s.db, "usergroups", "group", groupID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.is_active, m.joined_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY u.username`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	members := []models.GroupMember{}
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.UserID, &m.Username, &m.Email, &m.FirstName, &m.LastName, &m.IsActive, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember 将用户加入组：用户与组都必须存在，重复加入返回 ErrAlreadyMember
func (s *SQLDatabase) AddMember(ctx context.Context, groupID, userID int64) (*models.Membership, error) {
	m := &models.Membership{UserID: userID, GroupID: groupID, JoinedAt: time.Now().UTC()}
	err := s.withTx(ctx, func(tx querier) error {
		if err := rowExists(ctx, tx, "usergroups", "group", groupID); err != nil {
			return err
		}
		if err := rowExists(ctx, tx, "users", "user", userID); err != nil {
			return err
		}

		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM memberships WHERE user_id = $1 AND group_id = $2`, userID, groupID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyMember
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (user_id, group_id, joined_at) VALUES ($1, $2, $3)`,
			userID, groupID, m.JoinedAt); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("failed to add member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveMember 将用户移出组
func (s *SQLDatabase) RemoveMember(ctx context.Context, groupID, userID int64) error {
	return s.withTx(ctx, func(tx querier) error {
		if err := rowExists(ctx, tx, "usergroups", "group", groupID); err != nil {
			return err
		}
		if err := rowExists(ctx, tx, "users", "user", userID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE user_id = $1 AND group_id = $2`, userID, groupID)
		if err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotMember
		}
		return nil
	})
}

// GroupNamesForUser 用户当前所属组名（按名称排序）
func (s *SQLDatabase) GroupNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.name
		FROM memberships m
		JOIN usergroups g ON g.id = m.group_id
		WHERE m.user_id = $1
		ORDER BY g.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountMemberships 成员关系总数
func (s *SQLDatabase) CountMemberships(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM memberships`)
}

func rowExists(ctx context.Context, q querier, table, what string, id int64) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = $1`, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
