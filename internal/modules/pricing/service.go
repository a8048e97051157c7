// README: Fare computation for a settled ride; pure, no state.
package pricing

import "ridesim/internal/types"

// Revenue is the fare for a trip carrying count riders under DefaultRate.
func Revenue(count int) types.Money {
	return DefaultRate.Revenue(count)
}

// Revenue returns zero for an empty trip, otherwise BaseFare + count*PerPassenger.
func (r Rate) Revenue(count int) types.Money {
	if count <= 0 {
		return types.Money{Amount: 0, Currency: r.Currency}
	}
	return types.Money{
		Amount:   r.BaseFare + int64(count)*r.PerPassenger,
		Currency: r.Currency,
	}
}
