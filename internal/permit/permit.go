// Package permit orchestrates vault allowances for the non-native sources of
// an intent: off-chain permit signatures batched through the relay's
// sponsored-approvals endpoint where the token supports them, on-chain
// approvals everywhere else.
package permit

import (
	"math/big"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
)

// Requirement is the allowance state of one non-native source against its
// network's vault.
type Requirement struct {
	NetworkID uint64
	Token     string
	Symbol    string
	Variant   registry.PermitVariant
	// Current is the vault allowance already granted. Zero for Tron-family
	// sources, where the allowance is not read and an exact approve is issued.
	Current *big.Int
	// Required is the direct (non-custodial) portion of the source draw.
	Required *big.Int
}

// Needed reports whether the current allowance falls short.
func (r Requirement) Needed() bool {
	return r.Current.Cmp(r.Required) < 0
}

// ChoiceKind selects how much allowance to grant for one flagged source.
type ChoiceKind int

const (
	// ChoiceMin grants exactly the required amount.
	ChoiceMin ChoiceKind = iota
	// ChoiceMax grants the unlimited allowance.
	ChoiceMax
	// ChoiceExact grants a caller-picked amount, at least the required one.
	ChoiceExact
)

// Choice is the user's allowance decision for one flagged source.
type Choice struct {
	Kind   ChoiceKind
	Amount *big.Int
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// resolve turns a choice into the allowance value to grant.
func resolve(req Requirement, choice Choice) (*big.Int, error) {
	switch choice.Kind {
	case ChoiceMin:
		return new(big.Int).Set(req.Required), nil
	case ChoiceMax:
		return new(big.Int).Set(maxUint256), nil
	case ChoiceExact:
		if choice.Amount == nil || choice.Amount.Cmp(req.Required) < 0 {
			return nil, cerrs.OnNetwork(cerrs.CodeAllowance, req.NetworkID,
				"exact allowance below the required amount", nil)
		}
		return new(big.Int).Set(choice.Amount), nil
	default:
		return nil, cerrs.Newf(cerrs.CodeAllowance, "unknown allowance choice kind %d", choice.Kind)
	}
}

// resolveAll pairs flagged requirements with choices. A single choice applies
// to every flagged source; otherwise choices are positional and must cover
// them all.
func resolveAll(needed []Requirement, choices []Choice) ([]*big.Int, error) {
	if len(choices) == 1 && len(needed) > 1 {
		expanded := make([]Choice, len(needed))
		for i := range expanded {
			expanded[i] = choices[0]
		}
		choices = expanded
	}
	if len(choices) < len(needed) {
		return nil, cerrs.Newf(cerrs.CodeAllowance,
			"%d allowance choices for %d flagged sources", len(choices), len(needed))
	}

	values := make([]*big.Int, len(needed))
	for i, req := range needed {
		v, err := resolve(req, choices[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
