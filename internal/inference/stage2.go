package inference

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

const stage2Concurrency = 30

type hardCodedHandler func(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error

var hardCodedHandlers = map[string]hardCodedHandler{
	"gateway-method": gatewayMethodHandler,
	"appregistry-application": appRegistryApplicationHandler,
	"distribution": distributionHandler,
	"streaming-distribution": distributionHandler,
	"security-group": securityGroupHandler,
	"subnet": subnetHandler,
	"container-task": containerTaskHandler,
	"ecs-taskdefinition": taskDefinitionHandler,
	"node-group": nodeGroupHandler,
	"elbv2-listener": elbv2ListenerHandler,
	"elbv2-target-group": elbv2TargetGroupHandler,
	"eventbridge-eventbus": eventBusHandler,
	"iam-role": identityHandler,
	"iam-user": identityHandler,
	"inline-policy": inlinePolicyHandler,
	"network-interface": networkInterfaceHandler,
	"rds-dbinstance": databaseInstanceHandler,
	"route-table": routeTableHandler,
}

// RunStage2 applies the schema-driven descriptors, then the hard-coded
// handler, to every resource that has one, concurrency 30.
func RunStage2(ctx context.Context, client Client, maps *model.LookupMaps, resources []*model.Resource) []error {
	sem := make(chan struct{}, stage2Concurrency)
	errCh := make(chan error, len(resources))
	done := make(chan struct{}, len(resources))

	for _, r := range resources {
		sem <- struct{}{}
		go func(r *model.Resource) {
			defer func() { <-sem; done <- struct{}{} }()
			evaluateDescriptors(ctx, client, maps, r)
			if handler, ok := hardCodedHandlers[r.ResourceType]; ok {
				if err := handler(ctx, client, maps, r); err != nil {
					errCh <- &handlerError{HandlerName: r.ResourceType, AccountID: r.AccountID, Region: r.Region, Err: err}
				}
			}
		}(r)
	}
	for range resources {
		<-done
	}
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errs
}

var integrationURIPattern = regexp.MustCompile(`functions/(arn:aws:lambda:[^/]+)/invocations`)

// gatewayMethodHandler adds associated-with lambda when the method's
// integration URI targets a function.
func gatewayMethodHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	uri, _ := configString(r.Configuration, "MethodIntegration", "Uri")
	if match := integrationURIPattern.FindStringSubmatch(uri); len(match) == 2 {
		r.AddRelationship(match[1], "associated-with")
	}
	return nil
}

// appRegistryApplicationHandler inherits the synthesized Tag resource's
// relationships, renamed to "contains", for the application's awsApplication
// tag value.
func appRegistryApplicationHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	appTag, ok := r.TagValue("awsApplication")
	if !ok {
		return nil
	}
	tagID, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("tag", fmt.Sprintf("awsApplication=%s", appTag), "global", "global")]
	if !ok {
		return nil
	}
	tagResource, ok := lookupResourceByID(maps, tagID)
	if !ok {
		return nil
	}
	for _, rel := range tagResource.Relationships {
		r.AddRelationship(rel.Target, "contains")
	}
	return nil
}

// distributionHandler rewrites bucket edges to the canonical bucket ARN and
// adds associated-with edges to origin load balancers recognized by DNS name.
func distributionHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	for i, rel := range r.Relationships {
		if rel.Label == "bucket" {
			if canonical, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("s3-bucket", rel.Target, r.AccountID, "global")]; ok {
				r.Relationships[i].Target = canonical
			}
		}
	}
	origins := stringsFromAny(r.Configuration["OriginDomains"])
	for _, domain := range origins {
		if lb, ok := maps.ElbDNSToResource[domain]; ok {
			r.AddRelationship(lb.ResourceID, "associated-with")
		}
	}
	return nil
}

// securityGroupHandler adds deduped associated-with-security-group edges for
// every group id referenced in ingress/egress rules.
func securityGroupHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	seen := make(map[string]bool)
	for _, ruleSet := range []string{"IpPermissions", "IpPermissionsEgress"} {
		rules, _ := r.Configuration[ruleSet].([]any)
		for _, raw := range rules {
			rule, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			pairs, _ := rule["UserIdGroupPairs"].([]any)
			for _, rawPair := range pairs {
				pair, ok := rawPair.(map[string]any)
				if !ok {
					continue
				}
				groupID, _ := pair["GroupId"].(string)
				if groupID == "" || seen[groupID] {
					continue
				}
				seen[groupID] = true
				if id, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("security-group", groupID, r.AccountID, r.Region)]; ok {
					r.AddRelationship(id, "associated-with-security-group")
				}
			}
		}
	}
	return nil
}

var natGatewayRoutePattern = regexp.MustCompile(`^nat-`)

// subnetHandler sets subnetId and derives privacy from the absence of a
// NAT-gateway route on the subnet's associated route table.
func subnetHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	r.SubnetID = r.ResourceID

	routeTable := findRelatedRouteTable(r, maps)
	if routeTable == nil {
		r.Private = true
		return nil
	}

	private := true
	for _, raw := range asSlice(routeTable.Configuration["Routes"]) {
		route, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if natID, _ := route["NatGatewayId"].(string); natID != "" {
			private = false
			break
		}
		if gatewayID, _ := route["GatewayId"].(string); natGatewayRoutePattern.MatchString(gatewayID) {
			private = false
			break
		}
	}
	r.Private = private
	return nil
}

func findRelatedRouteTable(r *model.Resource, maps *model.LookupMaps) *model.Resource {
	for _, rel := range r.Relationships {
		target, ok := lookupResourceByID(maps, rel.Target)
		if ok && target.ResourceType == "route-table" {
			return target
		}
	}
	return nil
}

// containerTaskHandler wires cluster, role, environment-variable, volume,
// and network-interface edges.
func containerTaskHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	if clusterArn, _ := r.Configuration["ClusterArn"].(string); clusterArn != "" {
		r.AddRelationship(clusterArn, "contained-in")
	}

	taskDefArn, _ := r.Configuration["TaskDefinitionArn"].(string)
	for _, field := range []string{"TaskRoleArn", "ExecutionRoleArn"} {
		roleArn, _ := r.Configuration[field].(string)
		if roleArn == "" && taskDefArn != "" {
			if def, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("ecs-taskdefinition", taskDefArn, r.AccountID, r.Region)]; ok {
				roleArn = def
			}
		}
		if roleArn != "" {
			r.AddRelationship(roleArn, "associated-with")
		}
	}

	inferContainerEnvironment(r, maps)

	for _, raw := range asSlice(r.Configuration["Volumes"]) {
		vol, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fsID, _ := vol["FileSystemId"].(string)
		accessPointID, _ := vol["AccessPointId"].(string)
		target := accessPointID
		if target == "" {
			target = fsID
		}
		if target != "" {
			r.AddRelationship(target, "associated-with")
		}
	}

	for _, raw := range asSlice(r.Configuration["Attachments"]) {
		att, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, detail := range asSlice(att["Details"]) {
			d, ok := detail.(map[string]any)
			if !ok {
				continue
			}
			name, _ := d["Name"].(string)
			value, _ := d["Value"].(string)
			switch name {
			case "subnetId":
				if id, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("subnet", value, r.AccountID, r.Region)]; ok {
					r.AddRelationship(id, "contained-in-subnet")
				}
			case "networkInterfaceId":
				if eni, ok := lookupResourceByID(maps, value); ok {
					r.AddRelationship(eni.ID, "attached-to")
					eni.AddRelationship(r.ID, "attached-to")
				}
			}
		}
	}
	return nil
}

func taskDefinitionHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	inferContainerEnvironment(r, maps)
	return nil
}

func inferContainerEnvironment(r *model.Resource, maps *model.LookupMaps) {
	for _, raw := range asSlice(r.Configuration["ContainerDefinitions"]) {
		def, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, envRaw := range asSlice(def["Environment"]) {
			env, ok := envRaw.(map[string]any)
			if !ok {
				continue
			}
			name, _ := env["Name"].(string)
			value, _ := env["Value"].(string)
			inferEnvVarEdge(r, maps, r.AccountID, name, value)
		}
	}
}

// nodeGroupHandler adds associated-with asg for each auto-scaling group
// named in the node group's resource block.
func nodeGroupHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	for _, raw := range asSlice(r.Configuration["Resources"]) {
		resources, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, asgRaw := range asSlice(resources["AutoScalingGroups"]) {
			asg, ok := asgRaw.(map[string]any)
			if !ok {
				continue
			}
			name, _ := asg["Name"].(string)
			if id, ok := maps.ASGResourceNameToID[name]; ok {
				r.AddRelationship(id, "associated-with")
			}
		}
	}
	return nil
}

func elbv2ListenerHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	lbArn, _ := r.Configuration["LoadBalancerArn"].(string)
	if lbArn != "" {
		r.AddRelationship(lbArn, "associated-with")
	}

	seenTG := make(map[string]bool)
	for _, raw := range asSlice(r.Configuration["DefaultActions"]) {
		action, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if tgArn, _ := action["TargetGroupArn"].(string); tgArn != "" && !seenTG[tgArn] {
			seenTG[tgArn] = true
			r.AddRelationship(tgArn, "associated-with")
		}
		if userPoolArn, _ := extractCognitoUserPoolArn(action); userPoolArn != "" {
			r.AddRelationship(userPoolArn, "associated-with")
		}
		fc, ok := action["ForwardConfig"].(map[string]any)
		if !ok {
			continue
		}
		for _, tgRaw := range asSlice(fc["TargetGroups"]) {
			tg, ok := tgRaw.(map[string]any)
			if !ok {
				continue
			}
			if tgArn, _ := tg["TargetGroupArn"].(string); tgArn != "" && !seenTG[tgArn] {
				seenTG[tgArn] = true
				r.AddRelationship(tgArn, "associated-with")
			}
		}
	}
	return nil
}

func extractCognitoUserPoolArn(action map[string]any) (string, bool) {
	cfg, ok := action["AuthenticateCognitoConfig"].(map[string]any)
	if !ok {
		return "", false
	}
	arn, _ := cfg["UserPoolArn"].(string)
	return arn, arn != ""
}

// elbv2TargetGroupHandler adds the target group's VPC containment edge and
// associated-with edges for live healthy targets, skipping instances already
// covered by a single per-ASG edge.
func elbv2TargetGroupHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	if r.VpcID != "" {
		vpcArn := fmt.Sprintf("arn:aws:ec2:%s:%s:vpc/%s", r.Region, r.AccountID, r.VpcID)
		r.AddRelationship(vpcArn, "contained-in")
	}

	binding, hasASG := maps.TargetGroupToASG[r.ID]

	health, err := client.TargetHealth(ctx, r.ID)
	if err != nil {
		return err
	}
	for _, h := range health {
		if h.TargetHealth == nil || string(h.TargetHealth.State) != "healthy" || h.Target == nil {
			continue
		}
		targetID := aws.ToString(h.Target.Id)
		if hasASG {
			if _, launched := binding.InstanceIDs[targetID]; launched {
				continue
			}
		}
		if strings.HasPrefix(targetID, "arn:") {
			r.AddRelationship(targetID, "associated-with")
			continue
		}
		instanceArn := fmt.Sprintf("arn:aws:ec2:%s:%s:instance/%s", r.Region, r.AccountID, targetID)
		r.AddRelationship(instanceArn, "associated-with")
	}
	if hasASG {
		r.AddRelationship(binding.ASGArn, "associated-with")
	}
	return nil
}

func eventBusHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	for _, ruleID := range maps.EventBusRuleMap[r.ID] {
		r.AddRelationship(ruleID, "associated-with")
	}
	return nil
}

// identityHandler adds attached-to managed-policy edges for every
// provider-partition managed policy attached to a role. It is also registered
// for iam-user, but adds no edges for users: only roles are looked up.
func identityHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	if r.ResourceType != "iam-role" {
		return nil
	}
	policies, err := client.AttachedRolePolicies(ctx, r.ResourceName)
	if err != nil {
		return err
	}
	for _, p := range policies {
		arn := aws.ToString(p.PolicyArn)
		if strings.Contains(arn, ":iam::aws:policy/") {
			r.AddRelationship(arn, "attached-to")
		}
	}
	return nil
}

var inlinePolicyARNPattern = regexp.MustCompile(`/\*$`)

// inlinePolicyHandler adds attached-to edges for every statement Resource
// entry that resolves to a known resource once its trailing "/*" is trimmed.
func inlinePolicyHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	for _, raw := range asSlice(r.Configuration["Statement"]) {
		stmt, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, arn := range resourceEntries(stmt["Resource"]) {
			trimmed := inlinePolicyARNPattern.ReplaceAllString(arn, "")
			target, ok := lookupResourceByID(maps, trimmed)
			if !ok {
				continue
			}
			r.AddRelationship(target.ID, "attached-to")
		}
	}
	return nil
}

func resourceEntries(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, elem := range t {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

var (
	natGatewayDescriptionPattern = regexp.MustCompile(`(?i)nat gateway (nat-[0-9a-f]+)`)
	albDescriptionPattern = regexp.MustCompile(`(?i)elb (app|net)/[^/]+/([0-9a-f]+)`)
	vpcEndpointDescriptionPattern = regexp.MustCompile(`(?i)vpc endpoint (vpce-[0-9a-f]+)`)
	searchDomainDescriptionPattern = regexp.MustCompile(`(?i)opensearch|elasticsearch`)
	functionInterfaceTypePattern = regexp.MustCompile(`(?i)^lambda$`)
)

// networkInterfaceHandler pattern-matches the description and interface type
// to determine the owning resource (NAT gateway, application load balancer,
// VPC endpoint, search domain, or function). If no pattern matches, or the
// matched owner is not itself a known resource, the edge target is unknown
// and gets dropped by the delta stage.
func networkInterfaceHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	description, _ := r.Configuration["Description"].(string)
	interfaceType, _ := r.Configuration["InterfaceType"].(string)

	target := model.UnknownTarget
	switch {
	case natGatewayDescriptionPattern.MatchString(description):
		natID := natGatewayDescriptionPattern.FindStringSubmatch(description)[1]
		if id, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("nat-gateway", natID, r.AccountID, r.Region)]; ok {
			target = id
		}
	case albDescriptionPattern.MatchString(description):
		if id, ok := resolveLoadBalancerFromDescription(maps, description); ok {
			target = id
		}
	case vpcEndpointDescriptionPattern.MatchString(description):
		vpceID := vpcEndpointDescriptionPattern.FindStringSubmatch(description)[1]
		if id, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("vpc-endpoint", vpceID, r.AccountID, r.Region)]; ok {
			target = id
		}
	case searchDomainDescriptionPattern.MatchString(description):
		if id, ok := lookupByTypePrefix(maps, "search-domain", r.AccountID, r.Region); ok {
			target = id
		}
	case functionInterfaceTypePattern.MatchString(interfaceType):
		if functionName := extractLambdaNameFromDescription(description); functionName != "" {
			if id, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("lambda-function", functionName, r.AccountID, r.Region)]; ok {
				target = id
			}
		}
	}

	r.AddRelationship(target, "attached-to")
	if target != model.UnknownTarget {
		if owner, ok := lookupResourceByID(maps, target); ok {
			owner.AddRelationship(r.ID, "associated-with")
		}
	}
	return nil
}

func resolveLoadBalancerFromDescription(maps *model.LookupMaps, description string) (string, bool) {
	for dns, identity := range maps.ElbDNSToResource {
		if strings.Contains(description, dns) {
			return identity.ResourceID, true
		}
	}
	return "", false
}

func lookupByTypePrefix(maps *model.LookupMaps, resourceType, accountID, region string) (string, bool) {
	for key, id := range maps.ResourceIdentifierToID {
		prefix := resourceType + "|"
		suffix := "|" + accountID + "|" + region
		if strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix) {
			return id, true
		}
	}
	return "", false
}

var lambdaENIDescriptionPattern = regexp.MustCompile(`AWS Lambda VPC ENI-([^-]+(?:-[^-]+)*)-[0-9a-f-]+$`)

func extractLambdaNameFromDescription(description string) string {
	match := lambdaENIDescriptionPattern.FindStringSubmatch(description)
	if len(match) != 2 {
		return ""
	}
	return match[1]
}

// databaseInstanceHandler finds the subnet whose AZ matches the instance's
// AZ via the instance's DB subnet group, and sets VPC/subnet containment.
func databaseInstanceHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	groupName, _ := r.Configuration["DBSubnetGroupName"].(string)
	if groupName == "" {
		return nil
	}
	group, err := client.DBSubnetGroup(ctx, groupName)
	if err != nil {
		return err
	}
	if group == nil {
		return nil
	}
	if group.VpcId != nil {
		r.AddRelationship(fmt.Sprintf("arn:aws:ec2:%s:%s:vpc/%s", r.Region, r.AccountID, aws.ToString(group.VpcId)), "contained-in")
	}
	for _, subnet := range group.Subnets {
		if subnet.SubnetAvailabilityZone != nil && aws.ToString(subnet.SubnetAvailabilityZone.Name) == r.AvailabilityZone {
			r.AddRelationship(fmt.Sprintf("arn:aws:ec2:%s:%s:subnet/%s", r.Region, r.AccountID, aws.ToString(subnet.SubnetIdentifier)), "contained-in")
			break
		}
	}
	return nil
}

var (
	natGatewayIDPattern = regexp.MustCompile(`^nat-`)
	vpcEndpointIDPattern = regexp.MustCompile(`^vpce-`)
	internetGatewayIDPattern = regexp.MustCompile(`^igw-`)
)

// routeTableHandler emits contains edges per route to the NAT gateway, VPC
// endpoint, or internet gateway it targets, resolving each bare id to its
// resource ARN the same way networkInterfaceHandler resolves a NAT gateway id.
func routeTableHandler(ctx context.Context, client Client, maps *model.LookupMaps, r *model.Resource) error {
	for _, raw := range asSlice(r.Configuration["Routes"]) {
		route, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range []string{"NatGatewayId", "GatewayId", "VpcEndpointId"} {
			id, _ := route[field].(string)
			if id == "" {
				continue
			}
			switch {
			case natGatewayIDPattern.MatchString(id):
				r.AddRelationship(resolveRouteTarget(maps, "nat-gateway", id, r.AccountID, r.Region), "contains")
			case vpcEndpointIDPattern.MatchString(id):
				r.AddRelationship(resolveRouteTarget(maps, "vpc-endpoint", id, r.AccountID, r.Region), "contains")
			case internetGatewayIDPattern.MatchString(id):
				r.AddRelationship(resolveRouteTarget(maps, "internet-gateway", id, r.AccountID, r.Region), "contains")
			}
		}
	}
	return nil
}

func resolveRouteTarget(maps *model.LookupMaps, resourceType, id, accountID, region string) string {
	if target, ok := maps.ResourceIdentifierToID[resourceIdentifierKey(resourceType, id, accountID, region)]; ok {
		return target
	}
	return model.UnknownTarget
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func configString(config map[string]any, path ...string) (string, bool) {
	var current any = config
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current = m[key]
	}
	s, ok := current.(string)
	return s, ok
}

func lookupResourceByID(maps *model.LookupMaps, id string) (*model.Resource, bool) {
	r, ok := maps.ByID[id]
	return r, ok
}
