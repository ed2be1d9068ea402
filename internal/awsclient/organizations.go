package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"

	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// OrganizationalUnit is the flattened shape AccountResolver's OU walk needs.
type OrganizationalUnit struct {
	ID string
	Name string
}

// OrgAccount is an account discovered under an OU, including whether it is
// the organization's management account.
type OrgAccount struct {
	AccountID string
	Name string
	IsManagementAccount bool
}

// ListOrganizationalUnits lists the immediate child OUs of parentID, one
// throttled call per page at the Organizations-list rate (1/1000ms).
func (p *ProviderClient) ListOrganizationalUnits(ctx context.Context, parentID string) ([]OrganizationalUnit, error) {
	var out []OrganizationalUnit
	paginator := organizations.NewListOrganizationalUnitsForParentPaginator(p.organizations, &organizations.ListOrganizationalUnitsForParentInput{
		ParentId: aws.String(parentID),
	})
	for paginator.HasMorePages() {
		var page *organizations.ListOrganizationalUnitsForParentOutput
		err := p.call(ctx, "organizations", throttle.ClassOrganizationsList, "ListOrganizationalUnitsForParent", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		for _, ou := range page.OrganizationalUnits {
			out = append(out, OrganizationalUnit{ID: aws.ToString(ou.Id), Name: aws.ToString(ou.Name)})
		}
	}
	return out, nil
}

// ListAccountsForParent lists accounts directly under parentID (an OU or
// root), tagging the organization's management account.
func (p *ProviderClient) ListAccountsForParent(ctx context.Context, parentID, managementAccountID string) ([]OrgAccount, error) {
	var out []OrgAccount
	paginator := organizations.NewListAccountsForParentPaginator(p.organizations, &organizations.ListAccountsForParentInput{
		ParentId: aws.String(parentID),
	})
	for paginator.HasMorePages() {
		var page *organizations.ListAccountsForParentOutput
		err := p.call(ctx, "organizations", throttle.ClassOrganizationsList, "ListAccountsForParent", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		for _, a := range page.Accounts {
			if a.Status != orgtypes.AccountStatusActive {
				continue
			}
			id := aws.ToString(a.Id)
			out = append(out, OrgAccount{
				AccountID: id,
				Name: aws.ToString(a.Name),
				IsManagementAccount: id == managementAccountID,
			})
		}
	}
	return out, nil
}

// DescribeOrganization returns the organization's management account id,
// used to label that account during the OU walk.
func (p *ProviderClient) DescribeOrganization(ctx context.Context) (managementAccountID string, err error) {
	var out *organizations.DescribeOrganizationOutput
	callErr := p.call(ctx, "organizations", throttle.ClassOrganizationsList, "DescribeOrganization", func() error {
		var innerErr error
		out, innerErr = p.organizations.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{})
		return innerErr
	})
	if callErr != nil {
		return "", callErr
	}
	return aws.ToString(out.Organization.MasterAccountId), nil
}
