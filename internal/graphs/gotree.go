package graphs

import (
	"strconv"

	"github.com/evolbioinfo/gotree/tree"
)

// FromGotree copies a gotree tree into an arena tree. Child order follows
// gotree's neighbor order. Internal nodes without a name are labeled with
// their support value when one is set.
func FromGotree(gt *tree.Tree) *Tree {
	t := &Tree{root: NoNode}
	ids := make(map[*tree.Node]NodeID)
	gt.PreOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		id := t.AddNode(cur.Name())
		ids[cur] = id
		if prev == nil {
			t.root = id
			return true
		}
		t.AddChild(ids[prev], id)
		if e != nil {
			if e.Length() != tree.NIL_LENGTH {
				t.SetLength(id, e.Length())
			}
			if !cur.Tip() && cur.Name() == "" && e.Support() != tree.NIL_SUPPORT {
				t.SetLabel(id, strconv.FormatFloat(e.Support(), 'f', -1, 64))
			}
		}
		return true
	})
	return t
}
