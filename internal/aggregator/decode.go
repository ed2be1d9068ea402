package aggregator

import (
	"encoding/json"
	"strings"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// wireItem is one row of an aggregate-query JSON page. configuration and
// supplementaryConfiguration arrive from Config as JSON-encoded strings
// (double-encoded), not nested objects.
type wireItem struct {
	AccountID string `json:"accountId"`
	ARN string `json:"ARN"`
	AvailabilityZone string `json:"availabilityZone"`
	AwsRegion string `json:"awsRegion"`
	Configuration json.RawMessage `json:"configuration"`
	ConfigurationItemCaptureTime string `json:"configurationItemCaptureTime"`
	ConfigurationItemStatus string `json:"configurationItemStatus"`
	ResourceID string `json:"resourceId"`
	ResourceName string `json:"resourceName"`
	ResourceType string `json:"resourceType"`
	SupplementaryConfiguration json.RawMessage `json:"supplementaryConfiguration"`
	Tags []wireTag `json:"tags"`
	Relationships []wireRelationship `json:"relationships"`
}

type wireTag struct {
	Key string `json:"key"`
	Value string `json:"value"`
}

type wireRelationship struct {
	ResourceID string `json:"resourceId"`
	ResourceName string `json:"resourceName"`
	ResourceType string `json:"resourceType"`
	RelationshipName string `json:"relationshipName"`
}

// decodeStringifiedJSON unmarshals a field that may be either a JSON string
// containing encoded JSON, or (if the aggregator ever changes its encoding)
// a literal nested object.
func decodeStringifiedJSON(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		var nested map[string]any
		if err := json.Unmarshal([]byte(asString), &nested); err == nil {
			return nested
		}
		return nil
	}

	var nested map[string]any
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested
	}
	return nil
}

// normalizeResourceType converts Config's native "AWS::EC2::Instance" form
// into a lowercase, dash-joined form consistent with the resourceType
// vocabulary the rest of the pipeline reads.
func normalizeResourceType(nativeType string) string {
	parts := strings.Split(nativeType, "::")
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	joined := strings.Join(parts, "-")
	return strings.TrimPrefix(joined, "aws-")
}

func decodeResource(raw json.RawMessage) (*model.Resource, error) {
	var item wireItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}

	tags := make([]model.Tag, 0, len(item.Tags))
	for _, t := range item.Tags {
		tags = append(tags, model.Tag{Key: t.Key, Value: t.Value})
	}

	var relationships []model.Relationship
	for _, rel := range item.Relationships {
		relationships = append(relationships, model.Relationship{
			Source: item.ARN,
			// Baseline aggregator relationships name a resourceId/type, not
			// a resolved ARN; the RelationshipInferencer re-derives the
			// canonical edges this pipeline actually persists, so these are
			// carried only for descriptor evaluation, not for delta/persist.
			Target: model.UnknownTarget,
			Label: rel.RelationshipName,
		})
	}

	return &model.Resource{
		ID: item.ARN,
		AccountID: item.AccountID,
		Region: item.AwsRegion,
		AvailabilityZone: item.AvailabilityZone,
		ResourceType: normalizeResourceType(item.ResourceType),
		ResourceID: item.ResourceID,
		ResourceName: item.ResourceName,
		Configuration: decodeStringifiedJSON(item.Configuration),
		SupplementaryConfiguration: decodeStringifiedJSON(item.SupplementaryConfiguration),
		Tags: tags,
		ConfigurationItemCaptureTime: item.ConfigurationItemCaptureTime,
		ConfigurationItemStatus: item.ConfigurationItemStatus,
		Relationships: relationships,
	}, nil
}
