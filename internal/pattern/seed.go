package pattern

import "github.com/Veraticus/the-books-must-balance/internal/model"

// DefaultSeed returns the built-in rule set. Each call returns a fresh copy.
func DefaultSeed() []CategoryPatterns {
	return []CategoryPatterns{
		{
			Category: model.CurrentAssets,
			Patterns: []string{
				`^cash(_and)?(_cash_equivalents)?$`,
				`^cash_and_cash_equivalents$`,
				`^other_short_term_investments$`,
				`^accounts_receivable.*`,
				`^inventory$`,
				`^total_current_assets$`,
				`^short_term_investments$`,
				`^prepaid.*`,
			},
		},
		{
			Category: model.NoncurrentAssets,
			Patterns: []string{
				`^property_plant_equipment.*`,
				`^goodwill$`,
				`^intangible_assets.*`,
				`^long_term_investments$`,
				`^total_non_current_assets$`,
			},
		},
		{
			Category: model.CurrentLiabilities,
			Patterns: []string{
				`^accounts_payable$`,
				`^short_term_debt$`,
				`^total_current_liabilities$`,
				`^accrued.*`,
				`^deferred_revenue_current$`,
			},
		},
		{
			Category: model.NoncurrentLiabilities,
			Patterns: []string{
				`^long_term_debt$`,
				`^deferred_tax_liabilities.*`,
				`^other_long_term_liabilities$`,
				`^total_non_current_liabilities$`,
			},
		},
		{
			Category: model.Equity,
			Patterns: []string{
				`^retained_earnings$`,
				`^common_stock$`,
				`^treasury_stock$`,
				`^accumulated_other_comprehensive_income$`,
				`^total_stockholder_equity$`,
				`^total_equity.*`,
			},
		},
		{
			Category: model.Totals,
			Patterns: []string{
				`^total_assets$`,
				`^total_liabilities.*`,
			},
		},
	}
}
