package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"salescope/internal/engine"
	"salescope/internal/model"
)

// ErrRuleOverlap 同一作用域内的活跃规则引用了相同原始客户
var ErrRuleOverlap = errors.New("merge rule references a customer already claimed by another active rule")

// GetMergeRules 查询 (事业部, 业务员) 的活跃合并规则，按创建顺序
func (s *Store) GetMergeRules(division, salesRep string) ([]model.MergeRule, error) {
	return s.queryRules(`
		SELECT id, division, sales_rep, merged_name, original_customers, is_active, created_at, updated_at
		FROM merge_rules
		WHERE division = ? AND sales_rep = ? AND is_active = 1
		ORDER BY id
	`, division, salesRep)
}

// GetAllMergeRules 查询事业部内全部规则（含停用），用于管理界面
func (s *Store) GetAllMergeRules(division string) ([]model.MergeRule, error) {
	return s.queryRules(`
		SELECT id, division, sales_rep, merged_name, original_customers, is_active, created_at, updated_at
		FROM merge_rules
		WHERE division = ?
		ORDER BY sales_rep, id
	`, division)
}

func (s *Store) queryRules(query string, args ...interface{}) ([]model.MergeRule, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge rules: %w", err)
	}
	defer rows.Close()

	var rules []model.MergeRule
	for rows.Next() {
		var r model.MergeRule
		var originals string
		var active int
		if err := rows.Scan(&r.ID, &r.Division, &r.SalesRep, &r.MergedName, &originals, &active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan merge rule: %w", err)
		}
		if err := json.Unmarshal([]byte(originals), &r.OriginalCustomers); err != nil {
			return nil, fmt.Errorf("failed to decode original customers for rule %d: %w", r.ID, err)
		}
		r.IsActive = active == 1
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// UpsertMergeRule 新建或更新单条合并规则
// 同一作用域内活跃规则的原始客户集合不得重叠，冲突时返回 ErrRuleOverlap
func (s *Store) UpsertMergeRule(rule model.MergeRule) (int64, error) {
	if rule.MergedName == "" || len(rule.OriginalCustomers) == 0 {
		return 0, errors.New("merged name and original customers are required")
	}

	if rule.IsActive {
		existing, err := s.GetMergeRules(rule.Division, rule.SalesRep)
		if err != nil {
			return 0, err
		}
		if err := checkOverlap(rule, existing); err != nil {
			return 0, err
		}
	}

	originals, err := json.Marshal(rule.OriginalCustomers)
	if err != nil {
		return 0, fmt.Errorf("failed to encode original customers: %w", err)
	}

	active := 0
	if rule.IsActive {
		active = 1
	}
	res, err := s.db.Exec(`
		INSERT INTO merge_rules (division, sales_rep, merged_name, original_customers, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(division, sales_rep, merged_name) DO UPDATE SET
			original_customers = excluded.original_customers,
			is_active = excluded.is_active,
			updated_at = CURRENT_TIMESTAMP
	`, rule.Division, rule.SalesRep, rule.MergedName, string(originals), active)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert merge rule: %w", err)
	}
	return res.LastInsertId()
}

// ReplaceMergeRules 事务内整体替换 (事业部, 业务员) 的规则集
// 保存前校验新规则集内部无重叠，任何一步失败整体回滚
func (s *Store) ReplaceMergeRules(division, salesRep string, rules []model.MergeRule) error {
	claimed := make(map[string]string)
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		for _, name := range r.OriginalCustomers {
			key := engine.Normalize(name)
			if owner, ok := claimed[key]; ok && owner != r.MergedName {
				return fmt.Errorf("%w: %q in %q and %q", ErrRuleOverlap, name, owner, r.MergedName)
			}
			claimed[key] = r.MergedName
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM merge_rules WHERE division = ? AND sales_rep = ?`, division, salesRep); err != nil {
		return fmt.Errorf("failed to clear merge rules: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO merge_rules (division, sales_rep, merged_name, original_customers, is_active)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rules {
		originals, err := json.Marshal(r.OriginalCustomers)
		if err != nil {
			return fmt.Errorf("failed to encode original customers: %w", err)
		}
		active := 0
		if r.IsActive {
			active = 1
		}
		if _, err := stmt.Exec(division, salesRep, r.MergedName, string(originals), active); err != nil {
			return fmt.Errorf("failed to insert merge rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteMergeRule 删除单条规则
func (s *Store) DeleteMergeRule(id int64) error {
	res, err := s.db.Exec(`DELETE FROM merge_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete merge rule: %w", err)
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

// HasMergeRules (事业部, 业务员) 是否存在活跃规则
func (s *Store) HasMergeRules(division, salesRep string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM merge_rules
		WHERE division = ? AND sales_rep = ? AND is_active = 1
	`, division, salesRep).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count merge rules: %w", err)
	}
	return count > 0, nil
}

// checkOverlap 校验新规则与既有活跃规则的原始客户集合不重叠
func checkOverlap(rule model.MergeRule, existing []model.MergeRule) error {
	wanted := make(map[string]bool, len(rule.OriginalCustomers))
	for _, name := range rule.OriginalCustomers {
		wanted[engine.Normalize(name)] = true
	}
	for _, other := range existing {
		if other.MergedName == rule.MergedName {
			// 更新自身不算冲突
			continue
		}
		for _, name := range other.OriginalCustomers {
			if wanted[engine.Normalize(name)] {
				return fmt.Errorf("%w: %q already in %q", ErrRuleOverlap, name, other.MergedName)
			}
		}
	}
	return nil
}
