package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"approval_engine/internal/domain"
)

// Config is the YAML-configurable surface of the service: listen addresses,
// the conversion-rate table, the default policy tables, and the approver
// roster. Amounts and rates are decimal strings so YAML never goes through
// float parsing.
type Config struct {
	ListenAddr        string                    `yaml:"listen_addr"`
	MetricsAddr       string                    `yaml:"metrics_addr"`
	ReferenceCurrency string                    `yaml:"reference_currency"`
	SnapshotKey       string                    `yaml:"snapshot_key"`
	Rates             map[string]string         `yaml:"rates"`
	Thresholds        map[string][]ThresholdRow `yaml:"thresholds"`
	TransactionTypes  []TypePolicyRow           `yaml:"transaction_types"`
	SelectorTiers     []TierRow                 `yaml:"selector_tiers"`
	Approvers         []ApproverRow             `yaml:"approvers"`
}

// ThresholdRow is one [min, max) tier in a currency's native units. An empty
// max marks the unbounded top tier.
type ThresholdRow struct {
	PolicyID    string   `yaml:"policy_id"`
	Name        string   `yaml:"name"`
	Min         string   `yaml:"min"`
	Max         string   `yaml:"max,omitempty"`
	Approvers   []string `yaml:"approvers"`
	RiskLevel   string   `yaml:"risk_level"`
	Description string   `yaml:"description,omitempty"`
}

type TypePolicyRow struct {
	Type        string   `yaml:"type"`
	Approvers   []string `yaml:"approvers"`
	Description string   `yaml:"description,omitempty"`
}

// TierRow is a selector tier in reference-currency units.
type TierRow struct {
	PolicyID  string   `yaml:"policy_id"`
	Name      string   `yaml:"name"`
	Min       string   `yaml:"min"`
	Max       string   `yaml:"max,omitempty"`
	Approvers []string `yaml:"approvers"`
	RiskLevel string   `yaml:"risk_level"`
}

type ApproverRow struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
	Role string `yaml:"role"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) RateTable() (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(c.Rates))
	for code, raw := range c.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		rates[code] = rate
	}
	return rates, nil
}

func (c *Config) ThresholdTables() (map[string][]domain.ApprovalPolicy, error) {
	tables := make(map[string][]domain.ApprovalPolicy, len(c.Thresholds))
	for currency, rows := range c.Thresholds {
		table := make([]domain.ApprovalPolicy, 0, len(rows))
		for _, row := range rows {
			policy, err := rowToPolicy(currency, row.PolicyID, row.Name, row.Min, row.Max,
				row.Approvers, row.RiskLevel, row.Description)
			if err != nil {
				return nil, fmt.Errorf("threshold %s/%s: %w", currency, row.PolicyID, err)
			}
			table = append(table, policy)
		}
		tables[currency] = table
	}
	return tables, nil
}

func (c *Config) TypePolicies() []domain.TransactionTypePolicy {
	policies := make([]domain.TransactionTypePolicy, 0, len(c.TransactionTypes))
	for _, row := range c.TransactionTypes {
		policies = append(policies, domain.TransactionTypePolicy{
			Type:                row.Type,
			AdditionalApprovers: append([]string(nil), row.Approvers...),
			Description:         row.Description,
		})
	}
	return policies
}

func (c *Config) Tiers() ([]domain.ApprovalPolicy, error) {
	tiers := make([]domain.ApprovalPolicy, 0, len(c.SelectorTiers))
	for _, row := range c.SelectorTiers {
		tier, err := rowToPolicy(c.ReferenceCurrency, row.PolicyID, row.Name, row.Min, row.Max,
			row.Approvers, row.RiskLevel, "")
		if err != nil {
			return nil, fmt.Errorf("selector tier %s: %w", row.PolicyID, err)
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

func (c *Config) Roster() []*domain.Approver {
	roster := make([]*domain.Approver, 0, len(c.Approvers))
	for _, row := range c.Approvers {
		name := row.Name
		if name == "" {
			name = row.ID
		}
		roster = append(roster, &domain.Approver{
			ID:     row.ID,
			Name:   name,
			Role:   row.Role,
			Status: domain.ApproverActive,
		})
	}
	return roster
}

func rowToPolicy(currency, id, name, minRaw, maxRaw string, approvers []string, riskLevel, description string) (domain.ApprovalPolicy, error) {
	min, err := decimal.NewFromString(minRaw)
	if err != nil {
		return domain.ApprovalPolicy{}, fmt.Errorf("min amount: %w", err)
	}

	policy := domain.ApprovalPolicy{
		PolicyID:          id,
		Name:              name,
		Currency:          currency,
		MinAmount:         min,
		Unbounded:         maxRaw == "",
		RequiredApprovers: append([]string(nil), approvers...),
		RiskLevel:         domain.RiskLevel(riskLevel),
		Description:       description,
	}
	if !policy.Unbounded {
		max, err := decimal.NewFromString(maxRaw)
		if err != nil {
			return domain.ApprovalPolicy{}, fmt.Errorf("max amount: %w", err)
		}
		policy.MaxAmount = max
	}
	return policy, nil
}
