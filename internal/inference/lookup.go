package inference

import (
	"fmt"
	"strings"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// isEndpointLikeKey matches the configuration-map keys the endpoint lookup
// scans for: anything ending in "endpoint" (case-insensitive), plus the
// literal "value"/"address" keys calls out.
func isEndpointLikeKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, "endpoint") || lower == "value" || lower == "address"
}

func resourceIdentifierKey(resourceType, idOrName, accountID, region string) string {
	return fmt.Sprintf("%s|%s|%s|%s", resourceType, idOrName, accountID, region)
}

func envVarIdentifierKey(idOrName, accountID string) string {
	return fmt.Sprintf("%s|%s", idOrName, accountID)
}

// BuildLookupMaps constructs the fixed set of indices the two inference
// stages read from, scanning the full working set once.
func BuildLookupMaps(resources []*model.Resource) *model.LookupMaps {
	maps := model.NewLookupMaps()

	for _, r := range resources {
		maps.KnownResourceIDs[r.ID] = true
		maps.ByID[r.ID] = r
		indexResource(maps, r)
		indexEndpoints(maps, r)
		indexASG(maps, r)
		indexLoadBalancer(maps, r)
	}

	return maps
}

func indexResource(maps *model.LookupMaps, r *model.Resource) {
	for _, idOrName := range []string{r.ResourceID, r.ResourceName} {
		if idOrName == "" {
			continue
		}
		maps.ResourceIdentifierToID[resourceIdentifierKey(r.ResourceType, idOrName, r.AccountID, r.Region)] = r.ID
		maps.EnvVarResourceIdentifierToID[envVarIdentifierKey(idOrName, r.AccountID)] = r.ID
	}
}

func indexEndpoints(maps *model.LookupMaps, r *model.Resource) {
	scanForEndpoints(r.Configuration, r.ID, maps.EndpointToID)
}

func scanForEndpoints(node any, resourceID string, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for key, value := range v {
			if isEndpointLikeKey(key) {
				if s, ok := value.(string); ok && s != "" {
					out[s] = resourceID
					continue
				}
			}
			scanForEndpoints(value, resourceID, out)
		}
	case []any:
		for _, elem := range v {
			scanForEndpoints(elem, resourceID, out)
		}
	}
}

// indexASG populates asgResourceNameToResourceIdMap and, from each ASG's
// known target groups and launched instances, targetGroupToAsgMap.
func indexASG(maps *model.LookupMaps, r *model.Resource) {
	if !strings.Contains(r.ResourceType, "autoscaling") {
		return
	}
	if r.ResourceName != "" {
		maps.ASGResourceNameToID[r.ResourceName] = r.ID
	}

	instanceIDs := make(map[string]struct{})
	if rawInstances, ok := r.Configuration["Instances"].([]any); ok {
		for _, raw := range rawInstances {
			if inst, ok := raw.(map[string]any); ok {
				if id, ok := inst["InstanceId"].(string); ok && id != "" {
					instanceIDs[id] = struct{}{}
				}
			}
		}
	}

	tgArns := stringsFromAny(r.Configuration["TargetGroupARNs"])
	for _, tgArn := range tgArns {
		maps.TargetGroupToASG[tgArn] = model.ASGBinding{ASGArn: r.ID, InstanceIDs: instanceIDs}
	}
}

func indexLoadBalancer(maps *model.LookupMaps, r *model.Resource) {
	if !strings.Contains(r.ResourceType, "loadbalancer") && !strings.Contains(r.ResourceType, "load-balancer") {
		return
	}
	dnsName, _ := r.Configuration["DNSName"].(string)
	if dnsName == "" {
		return
	}
	maps.ElbDNSToResource[dnsName] = model.ElbIdentity{ResourceID: r.ID, ResourceType: r.ResourceType, Region: r.Region}
}

func stringsFromAny(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
