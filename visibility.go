package salelink

import (
	"context"
)

// VisibilityPolicy decides which lines a principal may see. There is one
// implementation per class of principal.
type VisibilityPolicy interface {
	Visible(ctx context.Context, principal Principal, lines []OrderLine) ([]OrderLine, error)
}

// AllSales lets every line through.
type AllSales struct{}

func (AllSales) Visible(_ context.Context, _ Principal, lines []OrderLine) ([]OrderLine, error) {
	return lines, nil
}

// NoSales hides every line.
type NoSales struct{}

func (NoSales) Visible(context.Context, Principal, []OrderLine) ([]OrderLine, error) {
	return nil, nil
}

// OwnershipChecker answers whether a line belongs to an order the principal owns.
type OwnershipChecker interface {
	OwnsLine(ctx context.Context, principal Principal, line OrderLine) (bool, error)
}

// OwnershipFunc adapts a function to OwnershipChecker.
type OwnershipFunc func(ctx context.Context, principal Principal, line OrderLine) (bool, error)

func (f OwnershipFunc) OwnsLine(ctx context.Context, principal Principal, line OrderLine) (bool, error) {
	return f(ctx, principal, line)
}

// SalespersonOwnership treats a line as owned when its order is assigned to the
// principal or to nobody.
var SalespersonOwnership = OwnershipFunc(func(_ context.Context, p Principal, line OrderLine) (bool, error) {
	return line.SalespersonID == 0 || line.SalespersonID == p.ID, nil
})

// OwnSales keeps the lines Owner says the principal owns.
type OwnSales struct {
	Owner OwnershipChecker
}

func (o OwnSales) Visible(ctx context.Context, principal Principal, lines []OrderLine) ([]OrderLine, error) {
	owner := o.Owner
	if owner == nil {
		owner = SalespersonOwnership
	}
	visible := make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		ok, err := owner.OwnsLine(ctx, principal, line)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, line)
		}
	}
	return visible, nil
}

// CapabilityAuthorizer implements AuthorizationService by picking a policy from
// the principal's capabilities: view-all beats view-own, nothing means no lines.
type CapabilityAuthorizer struct {
	Owner OwnershipChecker
}

// PolicyFor returns the policy applied to p.
func (a CapabilityAuthorizer) PolicyFor(p Principal) VisibilityPolicy {
	switch {
	case p.Has(CapViewAllSales):
		return AllSales{}
	case p.Has(CapViewOwnSales):
		return OwnSales{Owner: a.Owner}
	default:
		return NoSales{}
	}
}

func (a CapabilityAuthorizer) VisibleOrderLines(ctx context.Context, p Principal, candidates []OrderLine) ([]OrderLine, error) {
	if !p.Valid() {
		return nil, &AuthorizationError{PrincipalID: p.ID, Reason: "principal is not resolved"}
	}
	return a.PolicyFor(p).Visible(ctx, p, candidates)
}
