package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/opensearchservice"
	ostypes "github.com/aws/aws-sdk-go-v2/service/opensearchservice/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classSearchDomains throttle.Class = "opensearch-describe-domains"

// searchDomainBatchSize is the batch size enforced by the search service's
// "describe domains" call: at most 5 domain names per request.
const searchDomainBatchSize = 5

// SearchDomains lists and describes every OpenSearch domain in the region, a
// Tier A regional batch resource, batching DescribeDomains calls 5 at a time.
func (p *ProviderClient) SearchDomains(ctx context.Context) ([]ostypes.DomainStatus, error) {
	var names *opensearchservice.ListDomainNamesOutput
	err := p.call(ctx, "opensearchservice", classSearchDomains, "ListDomainNames", func() error {
		var innerErr error
		names, innerErr = p.opensearch.ListDomainNames(ctx, &opensearchservice.ListDomainNamesInput{})
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	domainNames := make([]string, 0, len(names.DomainNames))
	for _, d := range names.DomainNames {
		if d.DomainName != nil {
			domainNames = append(domainNames, *d.DomainName)
		}
	}

	var out []ostypes.DomainStatus
	for start := 0; start < len(domainNames); start += searchDomainBatchSize {
		end := start + searchDomainBatchSize
		if end > len(domainNames) {
			end = len(domainNames)
		}
		batch := domainNames[start:end]

		var described *opensearchservice.DescribeDomainsOutput
		err := p.call(ctx, "opensearchservice", classSearchDomains, "DescribeDomains", func() error {
			var innerErr error
			described, innerErr = p.opensearch.DescribeDomains(ctx, &opensearchservice.DescribeDomainsInput{DomainNames: batch})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, described.DomainStatusList...)
	}

	return out, nil
}
