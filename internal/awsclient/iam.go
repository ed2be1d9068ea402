package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classIAM throttle.Class = "iam-reads"

// ManagedPolicies lists provider-owned (AWS-managed) policies, a Tier A
// global batch resource with accountId = "aws".
func (p *ProviderClient) ManagedPolicies(ctx context.Context) ([]iamtypes.Policy, error) {
	var out []iamtypes.Policy
	paginator := iam.NewListPoliciesPaginator(p.iam, &iam.ListPoliciesInput{Scope: iamtypes.PolicyScopeTypeAws})
	for paginator.HasMorePages() {
		var page *iam.ListPoliciesOutput
		err := p.call(ctx, "iam", classIAM, "ListPolicies", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Policies...)
	}
	return out, nil
}

// RolePolicyNames lists the inline policy names attached to a role.
func (p *ProviderClient) RolePolicyNames(ctx context.Context, roleName string) ([]string, error) {
	var out *iam.ListRolePoliciesOutput
	err := p.call(ctx, "iam", classIAM, "ListRolePolicies", func() error {
		var innerErr error
		out, innerErr = p.iam.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{RoleName: aws.String(roleName)})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.PolicyNames, nil
}

// UserPolicyNames lists the inline policy names attached to a user.
func (p *ProviderClient) UserPolicyNames(ctx context.Context, userName string) ([]string, error) {
	var out *iam.ListUserPoliciesOutput
	err := p.call(ctx, "iam", classIAM, "ListUserPolicies", func() error {
		var innerErr error
		out, innerErr = p.iam.ListUserPolicies(ctx, &iam.ListUserPoliciesInput{UserName: aws.String(userName)})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.PolicyNames, nil
}

// RolePolicyDocument fetches one inline policy's statement document,
// consumed by the inline-policy hard-coded handler.
func (p *ProviderClient) RolePolicyDocument(ctx context.Context, roleName, policyName string) (string, error) {
	var out *iam.GetRolePolicyOutput
	err := p.call(ctx, "iam", classIAM, "GetRolePolicy", func() error {
		var innerErr error
		out, innerErr = p.iam.GetRolePolicy(ctx, &iam.GetRolePolicyInput{RoleName: aws.String(roleName), PolicyName: aws.String(policyName)})
		return innerErr
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.PolicyDocument), nil
}

// AttachedRolePolicies lists managed policies attached to roleName, used by
// the identity role/user hard-coded handler's attached-to edges.
func (p *ProviderClient) AttachedRolePolicies(ctx context.Context, roleName string) ([]iamtypes.AttachedPolicy, error) {
	var out []iamtypes.AttachedPolicy
	paginator := iam.NewListAttachedRolePoliciesPaginator(p.iam, &iam.ListAttachedRolePoliciesInput{RoleName: aws.String(roleName)})
	for paginator.HasMorePages() {
		var page *iam.ListAttachedRolePoliciesOutput
		err := p.call(ctx, "iam", classIAM, "ListAttachedRolePolicies", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.AttachedPolicies...)
	}
	return out, nil
}
