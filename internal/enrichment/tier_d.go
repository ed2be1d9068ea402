package enrichment

import (
	"fmt"
	"sort"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

const tagResourceType = "tag"

type tagKey struct {
	Key string
	Value string
}

// RunTierD derives one Tag resource per distinct key=value pair across the
// working set, each carrying an associated-with edge from the tag to every
// resource that carries it (Tier D). Tags are global.
func RunTierD(resources []*model.Resource) []*model.Resource {
	targetsByTag := make(map[tagKey][]string)
	order := make([]tagKey, 0)

	for _, r := range resources {
		for _, t := range r.Tags {
			k := tagKey{Key: t.Key, Value: t.Value}
			if _, seen := targetsByTag[k]; !seen {
				order = append(order, k)
			}
			targetsByTag[k] = append(targetsByTag[k], r.ID)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].Key != order[j].Key {
			return order[i].Key < order[j].Key
		}
		return order[i].Value < order[j].Value
	})

	out := make([]*model.Resource, 0, len(order))
	for _, k := range order {
		tagID := fmt.Sprintf("arn:aws:tag:global::tag/%s=%s", k.Key, k.Value)
		tag := &model.Resource{
			ID: tagID,
			AccountID: "global",
			Region: "global",
			ResourceType: tagResourceType,
			ResourceName: fmt.Sprintf("%s=%s", k.Key, k.Value),
		}
		for _, targetID := range targetsByTag[k] {
			tag.AddRelationship(targetID, "associated-with")
		}
		out = append(out, tag)
	}
	return out
}
