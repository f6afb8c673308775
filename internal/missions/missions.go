// Package missions implements the gamified daily-mission system: a fixed
// catalog, a deterministic per-user daily pick, spend-based progress and
// a completion streak. Completion state lives in the per-user state
// store, not in the client.
package missions

import (
	"strings"
	"unicode/utf16"

	"github.com/shopspring/decimal"

	"laksha/internal/core"
)

const (
	TypeNoSpend       MissionType = "no-spend"
	TypeLimitCategory MissionType = "limit-category"
	TypeTrackExpenses MissionType = "track-expenses"
	TypeSaveTarget    MissionType = "save-target"
)

type (
	MissionType string

	// Mission is one catalog entry. TargetAmount is zero for missions
	// without an amount component. Keyword selects the expense
	// categories a limit-category mission counts.
	Mission struct {
		ID           string
		Title        string
		Description  string
		Emoji        string
		TargetAmount decimal.Decimal
		Type         MissionType
		Keyword      string
	}
)

// Catalog is the fixed set of daily missions. Order matters: the daily
// pick indexes into it.
var Catalog = []Mission{
	{
		ID:           "no-chai-day",
		Title:        "Chai-Free Challenge",
		Description:  "Skip your chai/coffee breaks today and save ₹50!",
		Emoji:        "☕",
		TargetAmount: decimal.NewFromInt(50),
		Type:         TypeNoSpend,
	},
	{
		ID:          "no-spend-challenge",
		Title:       "Complete No-Spend Day",
		Description: "Challenge yourself - zero expenses today!",
		Emoji:       "💪",
		Type:        TypeNoSpend,
	},
	{
		ID:           "auto-rickshaw-limit",
		Title:        "Smart Auto-Rickshaw",
		Description:  "Keep auto/transport under ₹100 - try sharing or bus!",
		Emoji:        "🛺",
		TargetAmount: decimal.NewFromInt(100),
		Type:         TypeLimitCategory,
		Keyword:      "auto",
	},
	{
		ID:           "street-food-budget",
		Title:        "Street Food Control",
		Description:  "Limit street food & snacks to ₹150 today!",
		Emoji:        "🥘",
		TargetAmount: decimal.NewFromInt(150),
		Type:         TypeLimitCategory,
		Keyword:      "food",
	},
	{
		ID:          "track-every-rupee",
		Title:       "Every Rupee Tracker",
		Description: "Track every expense today - even ₹5 paan!",
		Emoji:       "📝",
		Type:        TypeTrackExpenses,
	},
	{
		ID:           "petrol-saver",
		Title:        "Petrol Price Fighter",
		Description:  "Save ₹200 on petrol today - walk or cycle short distances!",
		Emoji:        "⛽",
		TargetAmount: decimal.NewFromInt(200),
		Type:         TypeSaveTarget,
	},
	{
		ID:           "mobile-recharge-limit",
		Title:        "Mobile Bill Smart",
		Description:  "No unnecessary mobile recharges today - save ₹100!",
		Emoji:        "📱",
		TargetAmount: decimal.NewFromInt(100),
		Type:         TypeLimitCategory,
		Keyword:      "recharge",
	},
	{
		ID:          "ott-pause",
		Title:       "OTT Subscription Pause",
		Description: "Skip new OTT subscriptions or movie tickets today!",
		Emoji:       "🎬",
		Type:        TypeNoSpend,
	},
}

// ForDate picks the mission for a user on a YYYY-MM-DD reference-zone
// date. The pick is a stable hash of userKey+date, so the same user sees
// the same mission all day and different days rotate through the catalog.
func ForDate(userKey, date string) Mission {
	seed := hash31(userKey + date)
	if seed < 0 {
		seed = -seed
	}
	return Catalog[seed%len(Catalog)]
}

// Progress scores a mission 0-100 against the user's expenses for the
// mission's day.
func Progress(m Mission, dayExpenses []core.Expense) int {
	switch m.Type {
	case TypeNoSpend:
		if len(dayExpenses) == 0 {
			return 100
		}
		return 0

	case TypeLimitCategory:
		if !m.TargetAmount.IsPositive() || m.Keyword == "" {
			return 0
		}
		spent := decimal.Zero
		for _, e := range dayExpenses {
			if strings.Contains(strings.ToLower(e.Category), m.Keyword) {
				spent = spent.Add(e.Amount)
			}
		}
		p := 100 - spentPercent(spent, m.TargetAmount)
		if p < 0 {
			return 0
		}
		return p

	case TypeTrackExpenses:
		if len(dayExpenses) >= 3 {
			return 100
		}
		return len(dayExpenses) * 33

	case TypeSaveTarget:
		target := m.TargetAmount
		if !target.IsPositive() {
			target = decimal.NewFromInt(100)
		}
		spent := decimal.Zero
		for _, e := range dayExpenses {
			spent = spent.Add(e.Amount)
		}
		saved := target.Sub(spent)
		if saved.IsNegative() {
			saved = decimal.Zero
		}
		p := spentPercent(saved, target)
		if p > 100 {
			return 100
		}
		return p
	}
	return 0
}

func spentPercent(part, whole decimal.Decimal) int {
	return int(part.Mul(decimal.NewFromInt(100)).Div(whole).IntPart())
}

// hash31 is the 31-based string hash used upstream for the daily pick,
// computed over UTF-16 code units so existing users keep their mission
// rotation for any key, surrogate pairs included.
func hash31(s string) int {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(u)
	}
	return int(h)
}
