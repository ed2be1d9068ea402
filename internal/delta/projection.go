// Package delta implements the save-time
// projection of a working-set Resource into the graph store's flat property
// shape, and the node/edge diff against what the store already holds.
//
// Follows the keep-a-single-"shape the wire format wants"-struct-per-
// domain-entity pattern used elsewhere in this module, rather than letting
// every caller reach into the live in-memory type; here that shape is
// Projected, built once per resource right before the diff instead of once
// per API response.
package delta

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// Projected is the flat property shape a graph store node or search index
// document carries; graphstore.StoredResource and searchindex.Item both
// decode into (or are built from) this shape's Properties map.
type Projected struct {
	ID string
	Label string
	Properties map[string]string
	MD5Hash string
}

// Project applies the save transformation to one resource. It is
// idempotent: re-projecting an already-projected resource's properties
// produces the same map, since every field read is copied, never mutated.
func Project(r *model.Resource) Projected {
	props := map[string]string{
		"accountId": r.AccountID,
		"region": r.Region,
		"availabilityZone": r.AvailabilityZone,
		"resourceType": r.ResourceType,
		"resourceId": r.ResourceID,
		"resourceName": r.ResourceName,
		"configurationItemCaptureTime": r.ConfigurationItemCaptureTime,
		"configurationItemStatus": r.ConfigurationItemStatus,
		"vpcId": r.VpcID,
		"subnetId": r.SubnetID,
		"private": fmt.Sprintf("%t", r.Private),
	}

	props["configuration"] = stringify(r.Configuration)
	props["supplementaryConfiguration"] = stringify(r.SupplementaryConfiguration)
	props["tags"] = stringifyTags(r.Tags)
	if state, ok := r.Configuration["State"]; ok {
		props["state"] = stringify(state)
	}

	loginURL, loggedInURL := consoleURLs(r)
	props["loginURL"] = loginURL
	props["loggedInURL"] = loggedInURL
	props["title"] = title(r)

	label := strings.ReplaceAll(r.ResourceType, "::", "_")

	projected := Projected{ID: r.ID, Label: label, Properties: props}
	if model.InHashSet(r.ResourceType) {
		projected.MD5Hash = hashProperties(props)
	}
	return projected
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func stringifyTags(tags []model.Tag) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// hashProperties is the md5Hash of the stringified final property map: keys
// sorted so the hash is deterministic regardless of map iteration order.
func hashProperties(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(props[k])
		sb.WriteByte('\n')
	}
	sum := md5.Sum([]byte(sb.String()))
	return fmt.Sprintf("%x", sum)
}

// arnTitle extracts the last "/"-delimited segment of an ARN, used for
// resource types whose resourceName is not itself a readable title.
func arnTitle(arn string) string {
	idx := strings.LastIndex(arn, "/")
	if idx == -1 || idx == len(arn)-1 {
		return arn
	}
	return arn[idx+1:]
}

var arnTitledTypes = map[string]bool{
	"elbv2-target-group": true,
	"elbv2-listener": true,
	"auto-scaling-group": true,
}

// title derives the display title: a Name tag wins outright;
// otherwise a fixed set of ARN-only types extract their title from the ARN's
// trailing segment; everything else falls back to resourceName or resourceId.
func title(r *model.Resource) string {
	if name, ok := r.TagValue("Name"); ok && name != "" {
		return name
	}
	if arnTitledTypes[r.ResourceType] {
		return arnTitle(r.ID)
	}
	if r.ResourceName != "" {
		return r.ResourceName
	}
	return r.ResourceID
}

// consoleURLs derives the per-type console deep link pair.
// loginURL uses the generic console.aws.amazon.com host, which prompts a
// fresh sign-in; loggedInURL uses the region-vanity subdomain AWS serves to
// an already-authenticated session, skipping the global-to-region redirect.
// Global-scoped types (identity, managed policy) have no region subdomain, so
// both URLs are identical.
func consoleURLs(r *model.Resource) (loginURL, loggedInURL string) {
	path := consolePath(r)
	if path == "" {
		return "", ""
	}
	if r.Region == "" || r.Region == "global" {
		url := fmt.Sprintf("https://console.aws.amazon.com%s", path)
		return url, url
	}
	loginURL = fmt.Sprintf("https://console.aws.amazon.com%s", path)
	loggedInURL = fmt.Sprintf("https://%s.console.aws.amazon.com%s", r.Region, path)
	return loginURL, loggedInURL
}

func consolePath(r *model.Resource) string {
	switch {
	case strings.Contains(r.ResourceType, "gateway") && !strings.Contains(r.ResourceType, "gateway-rule"):
		return fmt.Sprintf("/apigateway/home?region=%s#/apis/%s/resources", r.Region, r.ResourceID)
	case r.ResourceType == "auto-scaling-group":
		return fmt.Sprintf("/ec2autoscaling/home?region=%s#/details/%s", r.Region, r.ResourceName)
	case r.ResourceType == "lambda-function":
		return fmt.Sprintf("/lambda/home?region=%s#/functions/%s", r.Region, r.ResourceName)
	case r.ResourceType == "iam-role":
		return fmt.Sprintf("/iam/home#/roles/%s", r.ResourceName)
	case r.ResourceType == "iam-user":
		return fmt.Sprintf("/iam/home#/users/%s", r.ResourceName)
	case r.ResourceType == "s3-bucket":
		return fmt.Sprintf("/s3/buckets/%s", r.ResourceName)
	case strings.Contains(r.ResourceType, "vpc"):
		return fmt.Sprintf("/vpc/home?region=%s#vpcs:VpcId=%s", r.Region, r.ResourceID)
	case strings.Contains(r.ResourceType, "instance") || strings.Contains(r.ResourceType, "ec2"):
		return fmt.Sprintf("/ec2/v2/home?region=%s#Instances:instanceId=%s", r.Region, r.ResourceID)
	default:
		return ""
	}
}
