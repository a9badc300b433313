package resolver

import (
	"fmt"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/translate"
)

// maxSubgameNodes bounds tree construction. The per-street raise cap keeps
// real trees far below this; hitting it means a malformed root state.
const maxSubgameNodes = 1 << 20

type sgNodeKind uint8

const (
	sgDecision sgNodeKind = iota
	sgLeaf
)

// sgNode is one arena slot in a subgame tree. Decision nodes carry the
// actor, the move menu, and child indices; leaves carry the settled chip
// state. A leaf with foldWinner < 0 is a showdown (or the depth limit) and
// is valued by the leaf table.
type sgNode struct {
	kind       sgNodeKind
	actor      int
	moves      []subgameMove
	children   []int32
	foldWinner int
	pot        int
	contrib    [2]int
}

// subgame is a depth-limited game tree rooted at the current decision: it
// expands the betting of the current street only, ending at fold leaves and
// at round-close leaves valued by the leaf evaluator.
type subgame struct {
	nodes  []sgNode
	street abstraction.Street
}

type subgameBuilder struct {
	cfg        abstraction.Config
	translator *translate.Translator
	nodes      []sgNode
}

// buildSubgame expands the tree under the root betting state.
func buildSubgame(root betState, cfg abstraction.Config, tr *translate.Translator) (*subgame, error) {
	b := &subgameBuilder{cfg: cfg, translator: tr}
	if _, err := b.expand(root); err != nil {
		return nil, err
	}
	return &subgame{nodes: b.nodes, street: root.street}, nil
}

func (b *subgameBuilder) expand(bs betState) (int32, error) {
	if len(b.nodes) >= maxSubgameNodes {
		return 0, fmt.Errorf("subgame exceeds %d nodes", maxSubgameNodes)
	}

	if bs.folded >= 0 {
		return b.append(sgNode{
			kind:       sgLeaf,
			foldWinner: 1 - bs.folded,
			pot:        bs.pot(),
			contrib:    bs.contrib,
		}), nil
	}
	if bs.roundClosed() {
		// Depth limit: betting beyond this street is valued by the leaf
		// table, which already prices the remaining streets.
		return b.append(sgNode{
			kind:       sgLeaf,
			foldWinner: -1,
			pot:        bs.pot(),
			contrib:    bs.contrib,
		}), nil
	}

	moves := legalMoves(&bs, b.cfg, b.translator)
	if len(moves) == 0 {
		return 0, fmt.Errorf("no legal moves at %s with bet %d", bs.street, bs.currentBet)
	}

	node := sgNode{
		kind:     sgDecision,
		actor:    bs.actor,
		moves:    moves,
		children: make([]int32, len(moves)),
	}
	id := b.append(node)
	for i, m := range moves {
		child := bs
		if err := child.apply(m.concrete); err != nil {
			return 0, fmt.Errorf("expanding subgame: %w", err)
		}
		cid, err := b.expand(child)
		if err != nil {
			return 0, err
		}
		b.nodes[id].children[i] = cid
	}
	return id, nil
}

func (b *subgameBuilder) append(n sgNode) int32 {
	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, n)
	return id
}

// size returns the node count, root is always index 0.
func (s *subgame) size() int {
	return len(s.nodes)
}
