package pnl

import "fmt"

// BuildChildrenMap derives the parent to children lookup from the configured
// account nodes. Children appear in encounter order so repeated builds over
// the same configuration produce identical output. Nodes without a label are
// skipped.
func BuildChildrenMap(accounts []AccountNode) map[string][]string {
	children := make(map[string][]string)
	for _, node := range accounts {
		if node.Label == "" || node.ParentLabel == "" {
			continue
		}
		children[node.ParentLabel] = append(children[node.ParentLabel], node.Label)
	}
	return children
}

// AccountIndex converts the configured node list into a label lookup.
// Later duplicates overwrite earlier ones.
func AccountIndex(accounts []AccountNode) map[string]AccountNode {
	index := make(map[string]AccountNode, len(accounts))
	for _, node := range accounts {
		if node.Label == "" {
			continue
		}
		index[node.Label] = node
	}
	return index
}

// DetectCycle walks every node's parent chain and reports the first cycle
// found. It must run when configuration is loaded: rollup assumes an acyclic
// forest and would otherwise recurse forever.
func DetectCycle(accounts []AccountNode) error {
	index := AccountIndex(accounts)
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(index))
	for label := range index {
		if state[label] != unvisited {
			continue
		}
		cursor := label
		var chain []string
		for cursor != "" {
			if state[cursor] == done {
				break
			}
			if state[cursor] == visiting {
				return fmt.Errorf("%w: at account %q", ErrHierarchyCycle, cursor)
			}
			state[cursor] = visiting
			chain = append(chain, cursor)
			node, ok := index[cursor]
			if !ok {
				break
			}
			cursor = node.ParentLabel
		}
		for _, visited := range chain {
			state[visited] = done
		}
	}
	return nil
}
