package inference

import (
	"context"

	"github.com/jmespath/go-jmespath"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// descriptors maps a resource type to the fixed set of schema-driven
// RelationshipDescriptor declarations evaluated against it before the
// resource type's hard-coded handler runs. The registry is
// deliberately small: most of the named relationships are reproduced
// directly as hard-coded handlers below, since they need live
// SDK calls or control flow a path expression cannot express. Descriptors
// cover the handful of relationships that really are pure data extraction.
var descriptors = map[string][]model.RelationshipDescriptor{
	"lambda-function": {
		{RelationshipName: "associated-with", ResourceType: "iam-role", IdentifierType: model.IdentifierARN, Path: "Role"},
	},
	"dynamodb-table": {
		{RelationshipName: "associated-with", ResourceType: "kms-key", IdentifierType: model.IdentifierARN, Path: "SSEDescription.KMSMasterKeyArn"},
	},
}

// evaluateDescriptors runs every registered descriptor for r's resource
// type, appending each non-nil, resolved result as a Relationship.
func evaluateDescriptors(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) {
	for _, d := range descriptors[r.ResourceType] {
		root := d.RootPath
		if root == "" {
			root = "configuration"
		}
		data, err := jmespath.Search(root, map[string]any{"configuration": r.Configuration})
		if err != nil || data == nil {
			continue
		}
		result, err := jmespath.Search(d.Path, data)
		if err != nil || result == nil {
			continue
		}
		for _, target := range flattenStrings(result) {
			resolved := target
			if d.IdentifierType == model.IdentifierEndpoint {
				id, ok := maps.EndpointToID[target]
				if !ok {
					continue
				}
				resolved = id
			}
			r.AddRelationship(resolved, d.RelationshipName)
		}
	}
}

// flattenStrings flattens a jmespath result (possibly a nested array) into
// its leaf string values, 's "results that are arrays
// (including nested) are flattened."
func flattenStrings(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, elem := range t {
			out = append(out, flattenStrings(elem)...)
		}
		return out
	default:
		return nil
	}
}
