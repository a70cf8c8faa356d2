package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/diegoholiveira/jsonlogic"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// SkipPolicy decides which schema tables the main sync loop leaves out.
type SkipPolicy struct {
	logTable          string
	reservedSubstring string
	skipTables        map[string]struct{}
	rule              string // optional JSON Logic rule; a true result keeps the table.
}

// NewSkipPolicy returns a policy that skips logTable, any table whose name contains
// reservedSubstring, the names in skipTables and, when filterRule is set, tables for which
// the JSON Logic rule does not return true. The rule sees {"table": name, "columns": count}.
func NewSkipPolicy(logTable string, reservedSubstring string, skipTables []string, filterRule string) (*SkipPolicy, error) {
	if logTable == "" {
		logTable = constants.LogTableNameDefault
	}
	p := &SkipPolicy{logTable: logTable, reservedSubstring: reservedSubstring, skipTables: make(map[string]struct{}, len(skipTables))}
	for _, t := range skipTables {
		p.skipTables[strings.TrimSpace(t)] = struct{}{}
	}
	if rule := strings.TrimSpace(filterRule); rule != "" {
		if !jsonlogic.IsValid(strings.NewReader(rule)) {
			return nil, errors.Errorf("invalid table filter rule: %v", rule)
		}
		p.rule = rule
	}
	return p, nil
}

// Skip reports whether the main sync loop must leave out the table and why.
// A rule evaluation error keeps the table and is returned for logging.
func (p *SkipPolicy) Skip(cols tabledefinition.TableColumns) (skip bool, reason string, err error) {
	name := cols.TableName
	if name == p.logTable {
		return true, "log table is synced separately", nil
	}
	if p.reservedSubstring != "" && strings.Contains(name, p.reservedSubstring) {
		return true, "name contains reserved substring " + p.reservedSubstring, nil
	}
	if _, ok := p.skipTables[name]; ok {
		return true, "listed in skip tables", nil
	}
	if p.rule == "" {
		return false, "", nil
	}
	keep, err := p.applyRule(cols)
	if err != nil {
		return false, "", err
	}
	if !keep {
		return true, "excluded by table filter rule", nil
	}
	return false, "", nil
}

func (p *SkipPolicy) applyRule(cols tabledefinition.TableColumns) (bool, error) {
	data, err := json.Marshal(map[string]interface{}{"table": cols.TableName, "columns": len(cols.Columns)})
	if err != nil {
		return false, errors.Wrap(err, "error marshalling data before applying table filter")
	}
	var result bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(p.rule), bytes.NewReader(data), &result); err != nil {
		return false, errors.Wrap(err, "error applying table filter")
	}
	return strings.TrimSpace(result.String()) == "true", nil
}

// LogTable returns the name of the table synced by its own step.
func (p *SkipPolicy) LogTable() string {
	return p.logTable
}
