package config

// Default returns the built-in policy configuration. The reference currency
// is KRW; rates are KRW per unit and are expected to be refreshed by the
// external pricing collaborator.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8080",
		MetricsAddr:       ":9090",
		ReferenceCurrency: "KRW",
		Rates: map[string]string{
			"USD": "1350",
			"BTC": "95000000",
			"ETH": "5000000",
		},
		Thresholds: map[string][]ThresholdRow{
			"USD": {
				{PolicyID: "usd-low", Name: "USD below 10,000", Min: "0", Max: "10000",
					Approvers: []string{"박CFO", "이CISO"}, RiskLevel: "low"},
				{PolicyID: "usd-medium", Name: "USD 10,000 to 100,000", Min: "10000", Max: "100000",
					Approvers: []string{"박CFO", "이CISO", "김CTO"}, RiskLevel: "medium"},
				{PolicyID: "usd-high", Name: "USD 100,000 to 1,000,000", Min: "100000", Max: "1000000",
					Approvers: []string{"박CFO", "이CISO", "김CTO", "정법무이사"}, RiskLevel: "high"},
				{PolicyID: "usd-critical", Name: "USD 1,000,000 and above", Min: "1000000",
					Approvers: []string{"박CFO", "이CISO", "김CTO", "정법무이사", "최대표"}, RiskLevel: "critical"},
			},
			"BTC": {
				{PolicyID: "btc-medium", Name: "BTC below 0.1", Min: "0", Max: "0.1",
					Approvers: []string{"박CFO", "이CISO", "김CTO"}, RiskLevel: "medium"},
				{PolicyID: "btc-high", Name: "BTC 0.1 to 1", Min: "0.1", Max: "1",
					Approvers: []string{"박CFO", "이CISO", "김CTO", "정법무이사"}, RiskLevel: "high"},
				{PolicyID: "btc-critical", Name: "BTC 1 and above", Min: "1",
					Approvers: []string{"박CFO", "이CISO", "김CTO", "정법무이사", "최대표"}, RiskLevel: "critical"},
			},
			"ETH": {
				{PolicyID: "eth-medium", Name: "ETH below 2", Min: "0", Max: "2",
					Approvers: []string{"박CFO", "이CISO", "김CTO"}, RiskLevel: "medium"},
				{PolicyID: "eth-high", Name: "ETH 2 to 20", Min: "2", Max: "20",
					Approvers: []string{"박CFO", "이CISO", "김CTO", "정법무이사"}, RiskLevel: "high"},
				{PolicyID: "eth-critical", Name: "ETH 20 and above", Min: "20",
					Approvers: []string{"박CFO", "이CISO", "김CTO", "정법무이사", "최대표"}, RiskLevel: "critical"},
			},
			"KRW": {
				{PolicyID: "krw-low", Name: "KRW below 10,000,000", Min: "0", Max: "10000000",
					Approvers: []string{"박CFO"}, RiskLevel: "low"},
				{PolicyID: "krw-medium", Name: "KRW 10,000,000 to 100,000,000", Min: "10000000", Max: "100000000",
					Approvers: []string{"박CFO", "이CISO"}, RiskLevel: "medium"},
				{PolicyID: "krw-high", Name: "KRW 100,000,000 to 1,000,000,000", Min: "100000000", Max: "1000000000",
					Approvers: []string{"박CFO", "이CISO", "김CTO"}, RiskLevel: "high"},
				{PolicyID: "krw-critical", Name: "KRW 1,000,000,000 and above", Min: "1000000000",
					Approvers: []string{"박CFO", "이CISO", "김CTO", "최대표"}, RiskLevel: "critical"},
			},
		},
		TransactionTypes: []TypePolicyRow{
			{Type: "cross_border", Approvers: []string{"정법무이사"},
				Description: "Cross-border transfers need legal review"},
			{Type: "institutional", Approvers: []string{"강기관대표"},
				Description: "Institutional counterparties need the institutional desk"},
			{Type: "emergency", Approvers: []string{"최대표"},
				Description: "Emergency withdrawals escalate to the CEO"},
		},
		SelectorTiers: []TierRow{
			{PolicyID: "tier-low", Name: "Low risk", Min: "0", Max: "13500000",
				Approvers: []string{"박CFO", "이CISO"}, RiskLevel: "low"},
			{PolicyID: "tier-medium", Name: "Medium risk", Min: "13500000", Max: "135000000",
				Approvers: []string{"박CFO", "이CISO", "김CTO"}, RiskLevel: "medium"},
			{PolicyID: "tier-high", Name: "High risk", Min: "135000000", Max: "1350000000",
				Approvers: []string{"박CFO", "이CISO", "김CTO", "정법무이사"}, RiskLevel: "high"},
			{PolicyID: "tier-critical", Name: "Critical risk", Min: "1350000000",
				Approvers: []string{"박CFO", "이CISO", "김CTO", "정법무이사", "최대표"}, RiskLevel: "critical"},
		},
		Approvers: []ApproverRow{
			{ID: "박CFO", Role: "finance"},
			{ID: "이CISO", Role: "security"},
			{ID: "김CTO", Role: "engineering"},
			{ID: "정법무이사", Role: "legal"},
			{ID: "최대표", Role: "executive"},
			{ID: "강기관대표", Role: "institutional"},
		},
	}
}
