package dataset

import (
	"fmt"
	"strconv"

	"flexmarket-report/internal/table"
)

// Order type and energy/system labels.
const (
	Offer  = "Offer"
	Bid    = "Bid"
	Energy = "Energy"
	System = "System"
)

// OrderTypeRule classifies balancing actions as bids or offers.
type OrderTypeRule string

const (
	// OrderTypePairSign marks positive bid-offer pair ids as offers.
	OrderTypePairSign OrderTypeRule = "pair-sign/v1"
	// OrderTypePairSignAdjustmentVolume uses the pair sign for unit actions and
	// the volume sign for adjustment actions, whose unit id is an integer below 2000.
	OrderTypePairSignAdjustmentVolume OrderTypeRule = "pair-sign-disbsad-volume/v2"
)

// EnergySystemRule separates energy actions from system actions.
type EnergySystemRule string

const (
	// EnergySystemSOFlag marks SO-flagged actions as system.
	EnergySystemSOFlag EnergySystemRule = "so-flag/v1"
	// EnergySystemSOOrCADLFlag marks SO-flagged or CADL-flagged actions as system.
	EnergySystemSOOrCADLFlag EnergySystemRule = "so-or-cadl-flag/v2"
)

// Rules bundles the classification rules of a run.
type Rules struct {
	OrderType    OrderTypeRule
	EnergySystem EnergySystemRule
}

// DefaultRules returns the current rule versions.
func DefaultRules() Rules {
	return Rules{OrderType: OrderTypePairSignAdjustmentVolume, EnergySystem: EnergySystemSOOrCADLFlag}
}

// Validate rejects unknown rule versions.
func (r Rules) Validate() error {
	switch r.OrderType {
	case OrderTypePairSign, OrderTypePairSignAdjustmentVolume:
	default:
		return fmt.Errorf("%w: order type %q (valid: %s, %s)", ErrUnknownRule, r.OrderType, OrderTypePairSign, OrderTypePairSignAdjustmentVolume)
	}
	switch r.EnergySystem {
	case EnergySystemSOFlag, EnergySystemSOOrCADLFlag:
	default:
		return fmt.Errorf("%w: energy/system %q (valid: %s, %s)", ErrUnknownRule, r.EnergySystem, EnergySystemSOFlag, EnergySystemSOOrCADLFlag)
	}
	return nil
}

// Classify returns Offer or Bid for a balancing action row.
func (r OrderTypeRule) Classify(row table.Row) table.Value {
	if r == OrderTypePairSignAdjustmentVolume && IsAdjustmentID(row.Text(ColBMUID)) {
		return signLabel(row.Get(ColVolume))
	}
	return signLabel(row.Get(ColPairID))
}

// Classify returns Energy or System for a balancing action row.
func (r EnergySystemRule) Classify(row table.Row) table.Value {
	system := row.Text(ColSOFlag) == "T"
	if r == EnergySystemSOOrCADLFlag {
		system = system || row.Text(ColCADLFlag) == "T"
	}
	if system {
		return table.Str(System)
	}
	return table.Str(Energy)
}

// IsAdjustmentID reports whether a unit id is the integer id of an adjustment action.
func IsAdjustmentID(id string) bool {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 || n >= 2000 {
		return false
	}
	return strconv.Itoa(n) == id
}

func signLabel(v table.Value) table.Value {
	if f, ok := v.Float(); ok && f > 0 {
		return table.Str(Offer)
	}
	return table.Str(Bid)
}
