package alerts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"laksha/internal/core"
)

// Message templates are load-bearing: clients and the delivery log show
// them verbatim, so the wording and the two-decimal amount format must
// not drift.

func monthMessage(kind core.NotificationKind, spent, budget decimal.Decimal) string {
	switch kind {
	case core.KindBudget50:
		return fmt.Sprintf("You've used 50%% of your monthly budget. Amount Spent: %s. Remaining: %s.",
			core.FormatAmount(spent), core.FormatAmount(budget.Sub(spent)))
	case core.KindBudget80:
		return fmt.Sprintf("You've used 80%% of your monthly budget. Time to be more careful. Amount Spent: %s. Remaining: %s.",
			core.FormatAmount(spent), core.FormatAmount(budget.Sub(spent)))
	case core.KindBudget100:
		return fmt.Sprintf("You've exceeded your monthly budget. Amount Spent: %s. Over by: %s.",
			core.FormatAmount(spent), core.FormatAmount(spent.Sub(budget)))
	}
	return ""
}

func dailyLimitMessage(daySpent, dailyLimit decimal.Decimal) string {
	return fmt.Sprintf("Daily limit exceeded. Spent today: %s. Limit: %s. Over by: %s.",
		core.FormatAmount(daySpent), core.FormatAmount(dailyLimit), core.FormatAmount(daySpent.Sub(dailyLimit)))
}
