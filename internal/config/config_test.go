package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"approval_engine/pkg/validator"
)

func TestDefault_ThresholdTablesAreValid(t *testing.T) {
	cfg := Default()
	v := validator.NewRuleValidator()

	tables, err := cfg.ThresholdTables()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tables) != 4 {
		t.Errorf("expected tables for USD/BTC/ETH/KRW, got %d", len(tables))
	}
	for currency, rows := range tables {
		if err := v.ValidateThresholdTable(currency, rows); err != nil {
			t.Errorf("default %s table rejected: %v", currency, err)
		}
	}
}

func TestDefault_TiersCoverAllAmounts(t *testing.T) {
	cfg := Default()
	v := validator.NewRuleValidator()

	tiers, err := cfg.Tiers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.ValidateThresholdTable(cfg.ReferenceCurrency, tiers); err != nil {
		t.Errorf("default selector tiers rejected: %v", err)
	}
}

func TestDefault_RateTable(t *testing.T) {
	cfg := Default()

	rates, err := cfg.RateTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rates["USD"].Equal(decimal.NewFromInt(1350)) {
		t.Errorf("expected USD rate 1350, got %s", rates["USD"])
	}
	if !rates["BTC"].Equal(decimal.NewFromInt(95_000_000)) {
		t.Errorf("expected BTC rate 95000000, got %s", rates["BTC"])
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	raw := `
listen_addr: ":18080"
reference_currency: KRW
rates:
  USD: "1400"
thresholds:
  USD:
    - policy_id: usd-all
      name: everything
      min: "0"
      approvers: ["박CFO"]
      risk_level: critical
`
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":18080" {
		t.Errorf("expected listen_addr override, got %q", cfg.ListenAddr)
	}

	rates, err := cfg.RateTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rates["USD"].Equal(decimal.NewFromInt(1400)) {
		t.Errorf("expected overridden USD rate, got %s", rates["USD"])
	}

	tables, err := cfg.ThresholdTables()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	usd := tables["USD"]
	if len(usd) != 1 || !usd[0].Unbounded || usd[0].PolicyID != "usd-all" {
		t.Errorf("expected replaced USD table, got %+v", usd)
	}
	// Tables absent from the file keep their defaults.
	if len(tables["BTC"]) != 3 {
		t.Errorf("expected default BTC table to survive, got %d rows", len(tables["BTC"]))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for a missing config file")
	}
}

func TestConfig_ThresholdTables_BadDecimal(t *testing.T) {
	cfg := Default()
	cfg.Thresholds["USD"][0].Min = "not-a-number"

	if _, err := cfg.ThresholdTables(); err == nil {
		t.Error("expected error for an unparseable amount")
	}
}
