package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"salescope/internal/model"
)

// BatchInsertFacts 批量插入销售事实行
func (s *Store) BatchInsertFacts(facts []*model.RawFact, sourceFile, batchID string) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO sales_facts (
			division, data_year, data_month, data_type, values_type,
			customer_name, sales_rep, country, product_group, value,
			source_file, import_batch
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		_, err := stmt.Exec(
			f.Division, f.Year, f.Month, string(f.DataType), string(f.ValuesType),
			f.CustomerName, f.SalesRep, f.Country, f.ProductGroup, f.Value,
			sourceFile, batchID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteFactsByScope 删除指定范围的事实行（重新导入前清理）
func (s *Store) DeleteFactsByScope(division string, year int, dataType model.DataType, valuesType model.ValuesType) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM sales_facts
		WHERE division = ? AND data_year = ? AND data_type = ? AND values_type = ?
	`, division, year, string(dataType), string(valuesType))
	if err != nil {
		return 0, fmt.Errorf("failed to delete facts: %w", err)
	}
	return res.RowsAffected()
}

// FactQueryOptions 事实查询选项
type FactQueryOptions struct {
	Division   string
	Year       int
	Months     []int
	DataType   model.DataType
	ValuesType model.ValuesType
	SalesRep   *string // nil 表示全事业部
}

func (opts FactQueryOptions) whereClause() (string, []interface{}) {
	where := "division = ? AND data_year = ? AND data_type = ? AND values_type = ?"
	args := []interface{}{opts.Division, opts.Year, string(opts.DataType), string(opts.ValuesType)}

	if len(opts.Months) > 0 {
		where += " AND data_month IN (?" + strings.Repeat(",?", len(opts.Months)-1) + ")"
		for _, m := range opts.Months {
			args = append(args, m)
		}
	}
	if opts.SalesRep != nil {
		where += " AND sales_rep = ?"
		args = append(args, *opts.SalesRep)
	}
	return where, args
}

// GetRepCustomerValues 查询单业务员名下的客户汇总值
func (s *Store) GetRepCustomerValues(opts FactQueryOptions) ([]model.RepCustomerValue, error) {
	where, args := opts.whereClause()
	rows, err := s.db.Query(`
		SELECT customer_name, SUM(value)
		FROM sales_facts
		WHERE `+where+`
		GROUP BY customer_name
		ORDER BY SUM(value) DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rep customer values: %w", err)
	}
	defer rows.Close()

	var result []model.RepCustomerValue
	for rows.Next() {
		var v model.RepCustomerValue
		if err := rows.Scan(&v.Customer, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// GetRepCustomerValuesByRep 查询事业部内全部业务员的客户汇总值
// 返回 业务员 -> 客户汇总行，用于跨业务员合并解析
func (s *Store) GetRepCustomerValuesByRep(opts FactQueryOptions) (map[string][]model.RepCustomerValue, error) {
	where, args := opts.whereClause()
	rows, err := s.db.Query(`
		SELECT sales_rep, customer_name, SUM(value)
		FROM sales_facts
		WHERE `+where+`
		GROUP BY sales_rep, customer_name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer values by rep: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.RepCustomerValue)
	for rows.Next() {
		var rep string
		var v model.RepCustomerValue
		if err := rows.Scan(&rep, &v.Customer, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[rep] = append(result[rep], v)
	}
	return result, rows.Err()
}

// ListSalesReps 列出事业部内有数据的业务员
func (s *Store) ListSalesReps(division string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT sales_rep FROM sales_facts
		WHERE division = ? AND sales_rep != ''
		ORDER BY sales_rep
	`, division)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales reps: %w", err)
	}
	defer rows.Close()

	var reps []string
	for rows.Next() {
		var rep string
		if err := rows.Scan(&rep); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

// ListYears 列出事业部内有数据的年份
func (s *Store) ListYears(division string) ([]int, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT data_year FROM sales_facts
		WHERE division = ?
		ORDER BY data_year
	`, division)
	if err != nil {
		return nil, fmt.Errorf("failed to list years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// GetCustomerRepInfo 查询客户最近一期的归属业务员
// 同一客户出现在多个业务员名下时取最近年月的归属
func (s *Store) GetCustomerRepInfo(division, customerName string) (*model.CustomerRepInfo, error) {
	var info model.CustomerRepInfo
	err := s.db.QueryRow(`
		SELECT sales_rep, data_year, data_month
		FROM sales_facts
		WHERE division = ? AND LOWER(TRIM(customer_name)) = LOWER(TRIM(?)) AND sales_rep != ''
		ORDER BY data_year DESC, data_month DESC
		LIMIT 1
	`, division, customerName).Scan(&info.SalesRep, &info.Year, &info.Month)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer rep: %w", err)
	}
	return &info, nil
}
