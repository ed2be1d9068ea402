package model

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// Projected is the flattened shape written to the graph store: every nested
// map is stringified because the graph store cannot carry nested documents
//.
type Projected struct {
	ID string
	AccountID string
	Region string
	AvailabilityZone string
	ResourceType string
	ResourceID string
	ResourceName string
	Configuration string
	SupplementaryConfiguration string
	Tags string
	ConfigurationItemCaptureTime string
	ConfigurationItemStatus string
	VpcID string
	SubnetID string
	Private bool
	LoginURL string
	LoggedInURL string
	Title string
	MD5Hash string
}

var arnSuffixPattern = regexp.MustCompile(`/([^/]+)$`)

// Project applies the deterministic save transformation to a
// single resource.
func Project(r *Resource) Projected {
	p := Projected{
		ID: r.ID,
		AccountID: r.AccountID,
		Region: r.Region,
		AvailabilityZone: r.AvailabilityZone,
		ResourceType: r.ResourceType,
		ResourceID: r.ResourceID,
		ResourceName: r.ResourceName,
		Configuration: stringifyMap(r.Configuration),
		SupplementaryConfiguration: stringifyMap(r.SupplementaryConfiguration),
		Tags: stringifyTags(r.Tags),
		ConfigurationItemCaptureTime: r.ConfigurationItemCaptureTime,
		ConfigurationItemStatus: r.ConfigurationItemStatus,
		VpcID: r.VpcID,
		SubnetID: r.SubnetID,
		Private: r.Private,
	}

	p.LoginURL, p.LoggedInURL = deriveURLs(r)
	p.Title = deriveTitle(r)

	if InHashSet(r.ResourceType) {
		p.MD5Hash = hashProjected(p)
	}

	return p
}

func stringifyMap(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

func stringifyTags(tags []Tag) string {
	if len(tags) == 0 {
		return ""
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	return string(b)
}

// deriveURLs implements the per-type login/loggedIn URL rule table: gateway,
// auto-scaling, lambda, identity, bucket, and a default compute/VPC mapping.
func deriveURLs(r *Resource) (loginURL, loggedInURL string) {
	region := r.Region
	switch {
	case strings.Contains(r.ResourceType, "apigateway"):
		base := "https://console.aws.amazon.com/apigateway/home?region=" + region
		return base, base + "#/apis/" + r.ResourceID + "/resources"
	case strings.Contains(r.ResourceType, "autoscaling"):
		base := "https://console.aws.amazon.com/ec2autoscaling/home?region=" + region
		return base, base + "#/details/" + r.ResourceName
	case strings.Contains(r.ResourceType, "lambda"):
		base := "https://console.aws.amazon.com/lambda/home?region=" + region
		return base, base + "#/functions/" + r.ResourceName
	case strings.Contains(r.ResourceType, "iam"):
		base := "https://console.aws.amazon.com/iam/home"
		return base, base + "#/" + resourceKindSegment(r.ResourceType) + "/" + r.ResourceName
	case strings.Contains(r.ResourceType, "s3") || strings.Contains(r.ResourceType, "bucket"):
		base := "https://console.aws.amazon.com/s3/home?region=" + region
		return base, "https://console.aws.amazon.com/s3/buckets/" + r.ResourceName
	case r.Region == "global":
		return "", ""
	default:
		// default compute/VPC mapping
		base := "https://console.aws.amazon.com/vpc/home?region=" + region
		return base, base + "#" + r.ResourceID
	}
}

func resourceKindSegment(resourceType string) string {
	if strings.Contains(resourceType, "role") {
		return "roles"
	}
	if strings.Contains(resourceType, "user") {
		return "users"
	}
	return "policies"
}

// deriveTitle prefers a Name tag; for ELBv2 target groups/listeners and
// auto-scaling groups, extracts from the ARN; else falls back to
// ResourceName or ResourceID.
func deriveTitle(r *Resource) string {
	if name, ok := r.TagValue("Name"); ok && name != "" {
		return name
	}

	switch r.ResourceType {
	case "elbv2-target-group", "elbv2-listener":
		if m := arnSuffixPattern.FindStringSubmatch(r.ID); len(m) == 2 {
			return m[1]
		}
	case "auto-scaling-group":
		if idx := strings.LastIndex(r.ID, ":autoScalingGroupName/"); idx >= 0 {
			return r.ID[idx+len(":autoScalingGroupName/"):]
		}
	}

	if r.ResourceName != "" {
		return r.ResourceName
	}
	return r.ResourceID
}

// hashProjected computes the MD5 hash of the stringified final property map,
// with map keys sorted so the hash is stable across runs.
func hashProjected(p Projected) string {
	fields := map[string]string{
		"accountId": p.AccountID,
		"region": p.Region,
		"availabilityZone": p.AvailabilityZone,
		"resourceType": p.ResourceType,
		"resourceId": p.ResourceID,
		"resourceName": p.ResourceName,
		"configuration": p.Configuration,
		"supplementaryConfiguration": p.SupplementaryConfiguration,
		"tags": p.Tags,
		"vpcId": p.VpcID,
		"subnetId": p.SubnetID,
		"title": p.Title,
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(fields[k])
		sb.WriteByte('\n')
	}

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
