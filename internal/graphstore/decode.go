package graphstore

import "encoding/json"

type resourcePageWire struct {
	Items []struct {
		ID string `json:"id"`
		Label string `json:"label"`
		MD5Hash string `json:"md5Hash"`
		Properties map[string]string `json:"properties"`
	} `json:"items"`
	HasMore bool `json:"hasMore"`
}

// decodeResourcePage parses a page of stored resources, rejecting nil
// property values the way the graph store's read projection does.
func decodeResourcePage(body []byte) ([]StoredResource, bool, error) {
	var wire resourcePageWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, false, err
	}

	out := make([]StoredResource, 0, len(wire.Items))
	for _, item := range wire.Items {
		props := make(map[string]string, len(item.Properties))
		for k, v := range item.Properties {
			if v == "" {
				continue
			}
			props[k] = v
		}
		out = append(out, StoredResource{
			ID: item.ID,
			Label: item.Label,
			MD5Hash: item.MD5Hash,
			Properties: props,
		})
	}

	return out, !wire.HasMore, nil
}

type relationshipPageWire struct {
	Items []struct {
		Source string `json:"source"`
		Target string `json:"target"`
		Label string `json:"label"`
	} `json:"items"`
	HasMore bool `json:"hasMore"`
}

func decodeRelationshipPage(body []byte) ([]StoredRelationship, bool, error) {
	var wire relationshipPageWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, false, err
	}

	out := make([]StoredRelationship, 0, len(wire.Items))
	for _, item := range wire.Items {
		out = append(out, StoredRelationship{Source: item.Source, Target: item.Target, Label: item.Label})
	}

	return out, !wire.HasMore, nil
}

type accountPageWire struct {
	Items []struct {
		AccountID string `json:"accountId"`
		OrganizationID string `json:"organizationId"`
		Name string `json:"name"`
		IsManagementAccount bool `json:"isManagementAccount"`
		IsIamRoleDeployed bool `json:"isIamRoleDeployed"`
		LastCrawled string `json:"lastCrawled"`
		Regions []StoredAccountRegion `json:"regions"`
	} `json:"items"`
	HasMore bool `json:"hasMore"`
}

// decodeAccountPage parses a page of stored accounts. Accounts never carry
// credentials on the wire: the graph store strips them before persistence
//, so there is nothing to reject here the way nil properties are
// rejected on a resource page.
func decodeAccountPage(body []byte) ([]StoredAccount, bool, error) {
	var wire accountPageWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, false, err
	}

	out := make([]StoredAccount, 0, len(wire.Items))
	for _, item := range wire.Items {
		out = append(out, StoredAccount{
			AccountID: item.AccountID,
			OrganizationID: item.OrganizationID,
			Name: item.Name,
			IsManagementAccount: item.IsManagementAccount,
			IsIamRoleDeployed: item.IsIamRoleDeployed,
			LastCrawled: item.LastCrawled,
			Regions: item.Regions,
		})
	}

	return out, !wire.HasMore, nil
}
