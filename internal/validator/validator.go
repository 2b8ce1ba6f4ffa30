// Package validator checks script graphs at publish time so that traversal
// never has to deal with dangling references.
package validator

import (
	"fmt"
	"strings"

	"github.com/velora/leadflow/pkg/domain"
)

// ValidateScript checks a script for duplicate ids, broken edges and
// unreachable nodes. All problems are collected and reported together.
func ValidateScript(script *domain.ScriptDefinition) error {
	if len(script.Nodes) == 0 {
		return fmt.Errorf("script %s has no nodes", script.ID)
	}

	var errs []string

	index := make(map[string]*domain.Node, len(script.Nodes))
	for i := range script.Nodes {
		node := &script.Nodes[i]
		if node.ID == "" {
			errs = append(errs, "node with empty id")
			continue
		}
		if _, dup := index[node.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate node id '%s'", node.ID))
			continue
		}
		index[node.ID] = node
	}

	if script.RootNodeID != "" {
		if _, ok := index[script.RootNodeID]; !ok {
			errs = append(errs, fmt.Sprintf("root node '%s' not found", script.RootNodeID))
		}
	}

	for _, node := range script.Nodes {
		for _, target := range edgesOf(&node) {
			if _, ok := index[target]; !ok {
				errs = append(errs, fmt.Sprintf("node '%s' links to missing node '%s'", node.ID, target))
			}
		}
	}

	// Crawl from the root and report nodes no answer can ever reach.
	if root := script.Root(); root != nil {
		visited := map[string]bool{}
		queue := []string{root.ID}
		for len(queue) > 0 {
			currentID := queue[0]
			queue = queue[1:]
			if visited[currentID] {
				continue
			}
			visited[currentID] = true

			node, ok := index[currentID]
			if !ok {
				continue // already reported as a broken edge
			}
			for _, target := range edgesOf(node) {
				if !visited[target] {
					queue = append(queue, target)
				}
			}
		}
		for _, node := range script.Nodes {
			if node.ID != "" && !visited[node.ID] {
				errs = append(errs, fmt.Sprintf("node '%s' is unreachable from the root", node.ID))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("script %s: found %d errors:\n- %s", script.ID, len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}

// edgesOf lists the non-empty outgoing edges of a node.
func edgesOf(node *domain.Node) []string {
	var targets []string
	add := func(id string) {
		if id != "" {
			targets = append(targets, id)
		}
	}
	add(node.YesNextNodeID)
	add(node.NoNextNodeID)
	add(node.DefaultNextID)
	for _, opt := range node.Options {
		add(opt.NextNodeID)
	}
	return targets
}
