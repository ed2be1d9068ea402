// Package aggregator runs one
// advanced query against the Config aggregator's SQL dialect, JSON page
// decoding, and the shouldDiscover filter that keeps stale accounts/regions
// out of the working set.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// resourceNotRecorded is the configurationItemStatus value shouldDiscover
// excludes.
const resourceNotRecorded = "ResourceNotRecorded"

// globalRegion is the sentinel region value for account-wide, regionless
// resources.
const globalRegion = "global"

// AggregateQuerier is the ConfigService surface this reader needs.
type AggregateQuerier interface {
	AggregateQuery(ctx context.Context, aggregatorName, expression string) ([]json.RawMessage, error)
}

// Reader runs the aggregate query and filters the result to discoverable
// resources.
type Reader struct {
	Client AggregateQuerier
	AggregatorName string
	ExcludedResourceTypes []string
}

func (r *Reader) expression() string {
	expr := "SELECT *, configuration, configurationItemStatus, relationships, supplementaryConfiguration, tags"
	if len(r.ExcludedResourceTypes) == 0 {
		return expr
	}
	quoted := make([]string, len(r.ExcludedResourceTypes))
	for i, t := range r.ExcludedResourceTypes {
		quoted[i] = fmt.Sprintf("'%s'", t)
	}
	return fmt.Sprintf("%s WHERE resourceType NOT IN (%s)", expr, strings.Join(quoted, ", "))
}

// Read issues the aggregate query, decodes every page, and returns the
// subset of resources shouldDiscover accepts.
func (r *Reader) Read(ctx context.Context, accountsMap map[string]*model.Account) ([]*model.Resource, error) {
	pages, err := r.Client.AggregateQuery(ctx, r.AggregatorName, r.expression())
	if err != nil {
		return nil, err
	}

	out := make([]*model.Resource, 0, len(pages))
	for _, page := range pages {
		resource, decodeErr := decodeResource(page)
		if decodeErr != nil {
			log.Warn().Err(decodeErr).Msg("failed to decode aggregator page, skipping")
			continue
		}
		if !ShouldDiscover(resource, accountsMap) {
			continue
		}
		out = append(out, resource)
	}
	return out, nil
}

// ShouldDiscover implements the staleness filter predicate: the resource's
// status is recorded, its account is in the resolved accounts map, and
// either the resource is global or its region is one the account crawls.
func ShouldDiscover(r *model.Resource, accountsMap map[string]*model.Account) bool {
	if r.ConfigurationItemStatus == resourceNotRecorded {
		return false
	}
	acct, ok := accountsMap[r.AccountID]
	if !ok {
		return false
	}
	if r.Region == globalRegion {
		return true
	}
	for _, region := range acct.Regions {
		if region.Name == r.Region {
			return true
		}
	}
	return false
}
