package engine

import (
	"github.com/google/btree"

	"github.com/efreitasn/mocktrader/internal/domain"
)

// Position is an investor's net executed quantity in one security.
type Position struct {
	Security string
	Quantity int64
}

func positionLess(a, b Position) bool {
	return a.Security < b.Security
}

// Portfolio holds the positions derived from an investor's orders, ordered
// by security.
type Portfolio struct {
	positions *btree.BTreeG[Position]
}

func newPortfolio() *Portfolio {
	const degree = 8
	return &Portfolio{positions: btree.NewG[Position](degree, positionLess)}
}

// Aggregate sums executed quantities per security. Orders with nothing
// executed contribute nothing, so every resulting position is positive.
// The result does not depend on the order of the input.
func Aggregate(orders []*domain.Order) *Portfolio {
	p := newPortfolio()
	for _, o := range orders {
		if o.ExecutedQty <= 0 {
			continue
		}
		pos, _ := p.positions.Get(Position{Security: o.Security})
		pos.Security = o.Security
		pos.Quantity += o.ExecutedQty
		p.positions.ReplaceOrInsert(pos)
	}
	return p
}

// Quantity returns the net quantity held in security, or 0.
func (p *Portfolio) Quantity(security string) int64 {
	pos, ok := p.positions.Get(Position{Security: security})
	if !ok {
		return 0
	}
	return pos.Quantity
}

// Len returns the number of securities held.
func (p *Portfolio) Len() int {
	return p.positions.Len()
}

// Positions returns every position in ascending security order.
func (p *Portfolio) Positions() []Position {
	result := make([]Position, 0, p.positions.Len())
	p.positions.Ascend(func(pos Position) bool {
		result = append(result, pos)
		return true
	})
	return result
}
