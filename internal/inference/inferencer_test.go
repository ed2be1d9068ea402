package inference

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

func TestInferencer_Run_Stage1FeedsStage2AndPostPasses(t *testing.T) {
	stream := &model.Resource{ID: "arn:stream", AccountID: "111", Region: "us-east-1", ResourceType: "dynamodb-stream"}
	fn := &model.Resource{ID: "arn:fn", AccountID: "111", Region: "us-east-1", ResourceType: "lambda-function", ResourceName: "my-fn"}

	client := fakeClient{eventSourceMappings: map[string][]lambdatypes.EventSourceMappingConfiguration{
		"my-fn": {{EventSourceArn: aws.String("arn:stream")}},
	}}

	inf := &Inferencer{ClientFor: func(accountID, region string) (Client, bool) { return client, true }}
	targets := []AccountRegion{{AccountID: "111", Region: "us-east-1"}}

	errs := inf.Run(context.Background(), targets, []*model.Resource{stream, fn})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !fn.HasRelationshipTo("arn:stream", "associated-with") {
		t.Errorf("expected stage 1's eventSources handler to have run, got %+v", fn.Relationships)
	}
}

func TestInferencer_Run_SkipsUnresolvedClientTargets(t *testing.T) {
	inf := &Inferencer{ClientFor: func(accountID, region string) (Client, bool) { return nil, false }}
	r := &model.Resource{ID: "arn:r", AccountID: "111", Region: "us-east-1"}

	errs := inf.Run(context.Background(), []AccountRegion{{AccountID: "111", Region: "us-east-1"}}, []*model.Resource{r})
	if len(errs) != 0 {
		t.Fatalf("expected no errors when no client resolves, got %v", errs)
	}
}
