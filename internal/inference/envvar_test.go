package inference

import (
	"testing"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

func TestInferEnvVarEdge_ExactARNMatch(t *testing.T) {
	target := &model.Resource{ID: "arn:aws:sqs:us-east-1:111:my-queue"}
	owner := &model.Resource{ID: "arn:fn"}
	maps := BuildLookupMaps([]*model.Resource{target, owner})

	inferEnvVarEdge(owner, maps, "111", "QUEUE_ARN", "arn:aws:sqs:us-east-1:111:my-queue")

	if !owner.HasRelationshipTo(target.ID, "associated-with") {
		t.Errorf("expected exact ARN match to add an edge, got %+v", owner.Relationships)
	}
}

func TestInferEnvVarEdge_ResourceIdFallback(t *testing.T) {
	target := &model.Resource{ID: "arn:table", ResourceType: "dynamodb-table", ResourceID: "my-table", AccountID: "111"}
	owner := &model.Resource{ID: "arn:fn", AccountID: "111"}
	maps := BuildLookupMaps([]*model.Resource{target, owner})

	inferEnvVarEdge(owner, maps, "111", "TABLE_NAME", "my-table")

	if !owner.HasRelationshipTo(target.ID, "associated-with") {
		t.Errorf("expected resourceId fallback to add an edge, got %+v", owner.Relationships)
	}
}

func TestInferEnvVarEdge_SuppressesAccountIdMatchAgainstPublicAccessBlock(t *testing.T) {
	block := &model.Resource{ID: "arn:block", ResourceType: resourceTypeS3PublicAccessBlock, ResourceID: "111", AccountID: "111", Region: "global"}
	owner := &model.Resource{ID: "arn:fn", AccountID: "111"}
	maps := BuildLookupMaps([]*model.Resource{block, owner})

	inferEnvVarEdge(owner, maps, "111", "ACCOUNT_ID", "111")

	if len(owner.Relationships) != 0 {
		t.Errorf("expected account-id env var to be suppressed, got %+v", owner.Relationships)
	}
}

func TestInferEnvVarEdge_NoMatchAddsNoEdge(t *testing.T) {
	owner := &model.Resource{ID: "arn:fn", AccountID: "111"}
	maps := BuildLookupMaps([]*model.Resource{owner})

	inferEnvVarEdge(owner, maps, "111", "UNRELATED", "something-unresolvable")

	if len(owner.Relationships) != 0 {
		t.Errorf("expected no edge for an unresolvable value, got %+v", owner.Relationships)
	}
}
