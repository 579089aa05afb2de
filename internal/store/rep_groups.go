package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"salescope/internal/model"
)

// ListRepGroups 列出事业部内的业务员分组
func (s *Store) ListRepGroups(division string) ([]model.RepGroup, error) {
	rows, err := s.db.Query(`
		SELECT division, group_name, members FROM rep_groups
		WHERE division = ?
		ORDER BY group_name
	`, division)
	if err != nil {
		return nil, fmt.Errorf("failed to list rep groups: %w", err)
	}
	defer rows.Close()

	var groups []model.RepGroup
	for rows.Next() {
		var g model.RepGroup
		var members string
		if err := rows.Scan(&g.Division, &g.Name, &members); err != nil {
			return nil, fmt.Errorf("failed to scan rep group: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
			return nil, fmt.Errorf("failed to decode members for group %s: %w", g.Name, err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetRepGroup 查询单个分组；不存在返回 sql.ErrNoRows
func (s *Store) GetRepGroup(division, name string) (*model.RepGroup, error) {
	g := model.RepGroup{Division: division, Name: name}
	var members string
	err := s.db.QueryRow(`
		SELECT members FROM rep_groups WHERE division = ? AND group_name = ?
	`, division, name).Scan(&members)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
		return nil, fmt.Errorf("failed to decode members for group %s: %w", name, err)
	}
	return &g, nil
}

// SaveRepGroup 新建或更新分组
func (s *Store) SaveRepGroup(group model.RepGroup) error {
	if group.Name == "" || len(group.Members) == 0 {
		return fmt.Errorf("group name and members are required")
	}
	members, err := json.Marshal(group.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO rep_groups (division, group_name, members)
		VALUES (?, ?, ?)
		ON CONFLICT(division, group_name) DO UPDATE SET
			members = excluded.members,
			updated_at = CURRENT_TIMESTAMP
	`, group.Division, group.Name, string(members))
	if err != nil {
		return fmt.Errorf("failed to save rep group: %w", err)
	}
	return nil
}

// DeleteRepGroup 删除分组
func (s *Store) DeleteRepGroup(division, name string) error {
	res, err := s.db.Exec(`DELETE FROM rep_groups WHERE division = ? AND group_name = ?`, division, name)
	if err != nil {
		return fmt.Errorf("failed to delete rep group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
