// Package pricing holds the static package/term rate card. A Quote is the
// all-or-nothing snapshot persisted on the booking at step 2.
package pricing

import (
	"fmt"

	"github.com/washplan/washplan/app/models"
)

// Quote is a priced snapshot for one package/term combination.
type Quote struct {
	MonthlyPriceCents int
	SetupFeeCents     int
	MinimumTermMonths int
}

// rateCard maps packageType -> termType -> quote. Month-to-month carries a
// setup fee instead of a term commitment; twelve-month waives it.
var rateCard = map[string]map[string]Quote{
	models.PackageWasher: {
		models.TermMonthToMonth: {MonthlyPriceCents: 4900, SetupFeeCents: 9900, MinimumTermMonths: 1},
		models.TermSixMonth:     {MonthlyPriceCents: 4400, SetupFeeCents: 4900, MinimumTermMonths: 6},
		models.TermTwelveMonth:  {MonthlyPriceCents: 3900, SetupFeeCents: 0, MinimumTermMonths: 12},
	},
	models.PackageDryer: {
		models.TermMonthToMonth: {MonthlyPriceCents: 4900, SetupFeeCents: 9900, MinimumTermMonths: 1},
		models.TermSixMonth:     {MonthlyPriceCents: 4400, SetupFeeCents: 4900, MinimumTermMonths: 6},
		models.TermTwelveMonth:  {MonthlyPriceCents: 3900, SetupFeeCents: 0, MinimumTermMonths: 12},
	},
	models.PackageWasherDryer: {
		models.TermMonthToMonth: {MonthlyPriceCents: 7900, SetupFeeCents: 9900, MinimumTermMonths: 1},
		models.TermSixMonth:     {MonthlyPriceCents: 6900, SetupFeeCents: 4900, MinimumTermMonths: 6},
		models.TermTwelveMonth:  {MonthlyPriceCents: 5900, SetupFeeCents: 0, MinimumTermMonths: 12},
	},
}

// QuoteFor looks up the priced snapshot for a package/term combination.
func QuoteFor(packageType, termType string) (Quote, error) {
	terms, ok := rateCard[packageType]
	if !ok {
		return Quote{}, fmt.Errorf("unknown package type: %s", packageType)
	}
	q, ok := terms[termType]
	if !ok {
		return Quote{}, fmt.Errorf("unknown term type %s for package %s", termType, packageType)
	}
	return q, nil
}

// IsPackageType reports whether v is a known package type.
func IsPackageType(v string) bool {
	_, ok := rateCard[v]
	return ok
}

// IsTermType reports whether v is a known term type.
func IsTermType(v string) bool {
	switch v {
	case models.TermMonthToMonth, models.TermSixMonth, models.TermTwelveMonth:
		return true
	default:
		return false
	}
}
