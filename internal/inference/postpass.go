package inference

import (
	"sort"
	"strings"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

var vpcSuffix = "VPC"

// alreadyQualified reports whether label already embeds suffix as its
// qualifier, either CamelCase-appended ("attached-to Instance") or
// hyphen-joined into the label itself ("associated-with-security-group",
// "contained-in-subnet"), so normalization never double-appends.
func alreadyQualified(label, suffix string) bool {
	collapsed := strings.ToLower(strings.ReplaceAll(label, "-", ""))
	return strings.HasSuffix(collapsed, strings.ToLower(suffix))
}

// NormalizeRelationshipNames appends a camel-case type suffix to unqualified
// relationship names whose target type is in the normalization set, so that
// e.g. a bare "Is contained in" edge to an instance becomes "Is contained in
// Instance" (post-pass).
func NormalizeRelationshipNames(resources []*model.Resource, maps *model.LookupMaps) {
	for _, r := range resources {
		for i, rel := range r.Relationships {
			target, ok := lookupResourceByID(maps, rel.Target)
			if !ok {
				continue
			}
			suffix, inSet := model.NormalizationSuffix(target.ResourceType)
			if !inSet {
				continue
			}
			if alreadyQualified(rel.Label, suffix) {
				continue
			}
			if target.ResourceType == "vpc" {
				suffix = vpcSuffix
			}
			r.Relationships[i].Label = rel.Label + " " + suffix
		}
	}
}

var backfillExcludedTypes = map[string]bool{
	"tag": true,
	"compliance": true,
	"stack": true,
}

// BackfillVPCInfo sets vpcId/subnetId/availabilityZone from each resource's
// VPC and subnet edges, and synthesizes a missing contained-in VPC edge when
// every resolved subnet shares one VPC (post-pass).
func BackfillVPCInfo(resources []*model.Resource, maps *model.LookupMaps) {
	for _, r := range resources {
		if backfillExcludedTypes[r.ResourceType] {
			continue
		}

		hasVPCEdge := false
		var subnets []*model.Resource
		for _, rel := range r.Relationships {
			target, ok := lookupResourceByID(maps, rel.Target)
			if !ok {
				continue
			}
			if target.ResourceType == "vpc" {
				hasVPCEdge = true
				r.VpcID = target.ResourceID
			}
			if target.ResourceType == "subnet" && rel.Label != "contains" {
				subnets = append(subnets, target)
			}
		}

		if len(subnets) == 0 {
			continue
		}

		azSet := make(map[string]bool)
		vpcIDs := make(map[string]bool)
		for _, s := range subnets {
			if s.AvailabilityZone != "" {
				azSet[s.AvailabilityZone] = true
			}
			if s.VpcID != "" {
				vpcIDs[s.VpcID] = true
			}
		}
		azs := make([]string, 0, len(azSet))
		for az := range azSet {
			azs = append(azs, az)
		}
		sort.Strings(azs)
		r.AvailabilityZone = strings.Join(azs, ",")

		if len(subnets) == 1 {
			r.SubnetID = subnets[0].ResourceID
		}

		if !hasVPCEdge && len(vpcIDs) == 1 {
			for vpcID := range vpcIDs {
				r.VpcID = vpcID
				if target, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("vpc", vpcID, r.AccountID, r.Region)]; ok {
					r.AddRelationship(target, "contained-in VPC")
				}
			}
		}
	}
}
