package store

import "github.com/concolic-go/concolic/constraint"

// Snapshot flattens every node in tree into NodeRecords suitable for
// SaveTree, in creation order.
func Snapshot(tree *constraint.Tree) []NodeRecord {
	nodes := tree.Nodes()
	out := make([]NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		rec := NodeRecord{
			ID:          n.ID,
			ParentID:    -1,
			Processed:   n.Processed,
			Inputs:      n.Inputs,
			SolvingTime: n.SolvingTime,
			BranchID:    n.BranchID,
		}
		if n.Parent != nil {
			rec.ParentID = n.Parent.ID
		}
		if n.Predicate != nil {
			rec.HasPredicate = true
			rec.Result = n.Predicate.Result
			rec.ExprSMT = n.Predicate.Expr.String()
		}
		out = append(out, rec)
	}
	return out
}
