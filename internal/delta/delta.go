package delta

import (
	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// Edge is a resolved, projected relationship ready to diff against the
// stored edge set.
type Edge struct {
	Source string
	Target string
	Label string
}

// Update carries only the property keys that differ from the stored copy,
// plus the recomputed hash for hash-set types (update payload
// rule: "contains only those property keys whose values differ").
type Update struct {
	ID string
	Label string
	Properties map[string]string
	MD5Hash string
}

// Delta is the full add/update/delete set for one crawl's node and edge
// diff, computed against the pre-crawl snapshot read at the start of the
// crawl.
type Delta struct {
	ResourcesToStore []Projected
	ResourcesToUpdate []Update
	ResourceIDsToDelete []string
	LinksToAdd []Edge
	LinksToDelete []Edge
}

// edgeKey is the uniqueness tuple 's edge invariant.
type edgeKey struct {
	Source string
	Target string
	Label string
}

// ProjectEdges resolves every resource's relationships to edges, dropping
// any whose target is the unknown sentinel or is not itself a resource in
// the current working set (step 1's dangling-ref rule).
func ProjectEdges(resources []*model.Resource) []Edge {
	known := make(map[string]bool, len(resources))
	for _, r := range resources {
		known[r.ID] = true
	}

	var edges []Edge
	for _, r := range resources {
		for _, rel := range r.Relationships {
			if rel.IsUnknown() || !known[rel.Target] {
				continue
			}
			edges = append(edges, Edge{Source: rel.Source, Target: rel.Target, Label: rel.Label})
		}
	}
	return edges
}

// Compute runs the full node and edge diff against the
// pre-crawl snapshot.
func Compute(resources []*model.Resource, dbResources map[string]graphstore.StoredResource, dbRelationships []graphstore.StoredRelationship) Delta {
	configEdges := ProjectEdges(resources)

	d := Delta{
		LinksToAdd: diffEdgesAdd(configEdges, dbRelationships),
		LinksToDelete: diffEdgesDelete(configEdges, dbRelationships),
	}

	byID := make(map[string]*model.Resource, len(resources))
	for _, r := range resources {
		byID[r.ID] = r
	}

	for id, r := range byID {
		if _, inDB := dbResources[id]; !inDB {
			d.ResourcesToStore = append(d.ResourcesToStore, Project(r))
		}
	}

	for id := range dbResources {
		if _, inWorkingSet := byID[id]; !inWorkingSet {
			d.ResourceIDsToDelete = append(d.ResourceIDsToDelete, id)
		}
	}

	for id, r := range byID {
		stored, inDB := dbResources[id]
		if !inDB {
			continue
		}
		if update, needsUpdate := decideUpdate(r, stored); needsUpdate {
			d.ResourcesToUpdate = append(d.ResourcesToUpdate, update)
		}
	}

	return d
}

func diffEdgesAdd(configEdges []Edge, dbRelationships []graphstore.StoredRelationship) []Edge {
	dbSet := edgeSet(dbRelationships)
	var add []Edge
	for _, e := range configEdges {
		if !dbSet[edgeKey{e.Source, e.Target, e.Label}] {
			add = append(add, e)
		}
	}
	return add
}

func diffEdgesDelete(configEdges []Edge, dbRelationships []graphstore.StoredRelationship) []Edge {
	configSet := make(map[edgeKey]bool, len(configEdges))
	for _, e := range configEdges {
		configSet[edgeKey{e.Source, e.Target, e.Label}] = true
	}
	var del []Edge
	for _, rel := range dbRelationships {
		if rel.Target == model.UnknownTarget {
			continue
		}
		key := edgeKey{rel.Source, rel.Target, rel.Label}
		if !configSet[key] {
			del = append(del, Edge{Source: rel.Source, Target: rel.Target, Label: rel.Label})
		}
	}
	return del
}

func edgeSet(dbRelationships []graphstore.StoredRelationship) map[edgeKey]bool {
	set := make(map[edgeKey]bool, len(dbRelationships))
	for _, rel := range dbRelationships {
		if rel.Target == model.UnknownTarget {
			continue
		}
		set[edgeKey{rel.Source, rel.Target, rel.Label}] = true
	}
	return set
}

// decideUpdate applies update-decision function to a resource
// present in both the working set and the pre-crawl snapshot.
func decideUpdate(r *model.Resource, stored graphstore.StoredResource) (Update, bool) {
	current := Project(r)

	switch {
	case model.InHashSet(r.ResourceType):
		if current.MD5Hash == stored.MD5Hash {
			return Update{}, false
		}
	case isNullSupplementaryConfig(stored.Properties["supplementaryConfiguration"]) && !isNullSupplementaryConfig(current.Properties["supplementaryConfiguration"]):
		// matched: always an update, diff computed below.
	case r.ResourceType == "tag":
		return Update{}, false
	default:
		if current.Properties["configurationItemCaptureTime"] == stored.Properties["configurationItemCaptureTime"] {
			return Update{}, false
		}
	}

	diff := make(map[string]string)
	for k, v := range current.Properties {
		if stored.Properties[k] != v {
			diff[k] = v
		}
	}
	if len(diff) == 0 {
		return Update{}, false
	}
	return Update{ID: r.ID, Label: current.Label, Properties: diff, MD5Hash: current.MD5Hash}, true
}

// isNullSupplementaryConfig reports whether a stringified supplementaryConfiguration
// property represents "null": either genuinely absent (a resource stored
// before this property existed) or the JSON literal produced for a nil map.
func isNullSupplementaryConfig(v string) bool {
	return v == "" || v == "null"
}
