package enrichment

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/awsclient"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

const tierCConcurrency = 10

// gatewayHTTPMethods are the methods the second-order enricher attempts per
// path item; a NotFound response per method is non-error (Tier C).
var gatewayHTTPMethods = []string{"GET", "POST", "PUT", "DELETE"}

// RunTierC runs the gateway path-item -> method enricher over every Tier B
// gateway-path-item output, concurrency 10.
func RunTierC(ctx context.Context, client TierCClient, tierBOutputs []*model.Resource) ([]*model.Resource, []error) {
	sem := make(chan struct{}, tierCConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var out []*model.Resource
	var errs []error

	for _, parent := range tierBOutputs {
		if parent.ResourceType != "gateway-path-item" {
			continue
		}
		restAPIID, _ := parent.Configuration["RestApiId"].(string)
		if restAPIID == "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(parent *model.Resource, restAPIID string) {
			defer wg.Done()
			defer func() { <-sem }()

			for _, httpMethod := range gatewayHTTPMethods {
				method, err := client.Method(ctx, restAPIID, parent.ResourceID, httpMethod)
				mu.Lock()
				if err != nil {
					log.Warn().Str("handlerName", "gatewayMethod").Str("accountId", parent.AccountID).Str("region", parent.Region).Err(err).Msg("tier C handler failed")
					errs = append(errs, &handlerError{HandlerName: "gatewayMethod", AccountID: parent.AccountID, Region: parent.Region, Err: err})
					mu.Unlock()
					continue
				}
				if method == nil {
					mu.Unlock()
					continue
				}
				child := &model.Resource{
					ID: fmt.Sprintf("%s/methods/%s", parent.ID, httpMethod),
					AccountID: parent.AccountID,
					Region: parent.Region,
					ResourceType: "gateway-method",
					ResourceID: httpMethod,
					ResourceName: httpMethod,
				}
				child.AddRelationship(parent.ID, "contained-in")
				out = append(out, child)
				mu.Unlock()
			}
		}(parent, restAPIID)
	}
	wg.Wait()
	return out, errs
}

// Ensure the ClientSet alias stays consistent with internal/awsclient's
// *ProviderClient, the concrete implementation orchestrator wires in.
var _ ClientSet = (*awsclient.ProviderClient)(nil)
