package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"profitlift/domain/basket"
	"profitlift/domain/core"
	"profitlift/domain/rules"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"

	"github.com/jmoiron/sqlx"
)

// RuleStoreImpl implements RuleStore for PostgreSQL
type RuleStoreImpl struct {
	db *sqlx.DB
}

// NewRuleStore creates a new PostgreSQL rule store
func NewRuleStore(db *sqlx.DB) ports.RuleStore {
	return &RuleStoreImpl{db: db}
}

const ruleColumns = `
	id, run_id, context_key, store_id, time_bin, day_type, quarter, festival,
	antecedent, consequent, support, confidence, lift,
	profit_score, diversity_score, overall_score`

// ReplaceContextRules swaps the context's rule set inside one transaction
// so readers never observe a half-replaced context.
func (s *RuleStoreImpl) ReplaceContextRules(ctx context.Context, runID core.RunID, ruleCtx rules.Context, rs []rules.ContextualRule) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, "begin rule replacement")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM association_rules WHERE context_key = $1`, ruleCtx.Key()); err != nil {
		return apperrors.Wrap(err, "delete context rules")
	}

	for _, rule := range rs {
		antecedentJSON, _ := json.Marshal(rule.Antecedent.Strings())
		consequentJSON, _ := json.Marshal(rule.Consequent.Strings())

		_, err := tx.ExecContext(ctx, `
			INSERT INTO association_rules (
				id, run_id, context_key, store_id, time_bin, day_type, quarter, festival,
				antecedent, consequent, support, confidence, lift,
				profit_score, diversity_score, overall_score, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())`,
			rule.ID.String(), runID.String(), rule.Context.Key(),
			string(rule.Context.StoreID), string(rule.Context.TimeBin),
			string(rule.Context.DayType), string(rule.Context.Quarter), string(rule.Context.Festival),
			antecedentJSON, consequentJSON,
			rule.Support, rule.Confidence, rule.Lift,
			rule.ProfitScore, rule.DiversityScore, rule.OverallScore)
		if err != nil {
			return apperrors.Wrap(err, fmt.Sprintf("insert rule %s", rule.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, "commit rule replacement")
	}
	return nil
}

// QueryRules filters the current rule set, ordered by overall score descending
func (s *RuleStoreImpl) QueryRules(ctx context.Context, filter ports.RuleFilter) ([]rules.ContextualRule, error) {
	filter = filter.Clamp()

	query := `SELECT ` + ruleColumns + ` FROM association_rules r`
	var conditions []string
	var args []interface{}

	if filter.ActionableOnly {
		query += ` JOIN uplift_results u ON u.rule_id = r.id`
		conditions = append(conditions, `u.actionable = true`, `u.state = 'estimated'`)
	}
	appendCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.StoreID != nil {
		appendCondition(`r.store_id = $%d`, string(*filter.StoreID))
	}
	if filter.TimeBin != nil {
		appendCondition(`r.time_bin = $%d`, string(*filter.TimeBin))
	}
	if filter.DayType != nil {
		appendCondition(`r.day_type = $%d`, string(*filter.DayType))
	}
	if filter.Quarter != nil {
		appendCondition(`r.quarter = $%d`, string(*filter.Quarter))
	}
	if filter.Festival != nil {
		appendCondition(`r.festival = $%d`, string(*filter.Festival))
	}
	if filter.MinLift != nil {
		appendCondition(`r.lift >= $%d`, *filter.MinLift)
	}
	if filter.MinScore != nil {
		appendCondition(`r.overall_score >= $%d`, *filter.MinScore)
	}

	for i, cond := range conditions {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(` ORDER BY overall_score DESC NULLS LAST, lift DESC, id LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "query rules")
	}
	defer rows.Close()

	results := []rules.ContextualRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rule)
	}
	return results, rows.Err()
}

// GetRule fetches one rule by id
func (s *RuleStoreImpl) GetRule(ctx context.Context, id core.RuleID) (*rules.ContextualRule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM association_rules r WHERE id = $1`, id.String())

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "get rule")
	}
	return &rule, nil
}

// ListContexts returns the distinct contexts currently holding rules
func (s *RuleStoreImpl) ListContexts(ctx context.Context) ([]rules.Context, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT context_key FROM association_rules ORDER BY context_key`)
	if err != nil {
		return nil, apperrors.Wrap(err, "list contexts")
	}
	defer rows.Close()

	var contexts []rules.Context
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		contexts = append(contexts, rules.ParseContextKey(key))
	}
	return contexts, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (rules.ContextualRule, error) {
	var rule rules.ContextualRule
	var id, runID, contextKey, storeID, timeBin, dayType, quarter, festival string
	var antecedentJSON, consequentJSON []byte
	var profitScore, diversityScore, overallScore sql.NullFloat64

	err := row.Scan(
		&id, &runID, &contextKey, &storeID, &timeBin, &dayType, &quarter, &festival,
		&antecedentJSON, &consequentJSON, &rule.Support, &rule.Confidence, &rule.Lift,
		&profitScore, &diversityScore, &overallScore,
	)
	if err != nil {
		return rule, err
	}

	rule.ID = core.RuleID(id)
	rule.Context = rules.ParseContextKey(contextKey)
	rule.Antecedent = unmarshalItemSet(antecedentJSON)
	rule.Consequent = unmarshalItemSet(consequentJSON)
	if profitScore.Valid {
		rule.ProfitScore = rules.Float64Ptr(profitScore.Float64)
	}
	if diversityScore.Valid {
		rule.DiversityScore = rules.Float64Ptr(diversityScore.Float64)
	}
	if overallScore.Valid {
		rule.OverallScore = rules.Float64Ptr(overallScore.Float64)
	}
	return rule, nil
}

func unmarshalItemSet(data []byte) basket.ItemSet {
	var items []string
	json.Unmarshal(data, &items)
	set := make(basket.ItemSet, len(items))
	for _, it := range items {
		set[core.ItemID(it)] = struct{}{}
	}
	return set
}

// Ensure RuleStoreImpl implements RuleStore
var _ ports.RuleStore = (*RuleStoreImpl)(nil)
