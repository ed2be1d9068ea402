package inference

import "github.com/rcourtman/cloud-discovery-engine/internal/model"

const resourceTypeS3PublicAccessBlock = "s3-account-public-access-block"

// inferEnvVarEdge implements the environment-variable inference rule: a value
// that is an exact resource ARN in the working set gets an
// associated-with edge; otherwise it is tried as a resourceId key, then a
// resourceName key (both without a resource type), then as an endpoint. A
// match against the account's S3 public-access-block resource whose id is
// literally the account id is suppressed, since any env var that happens to
// hold an account id would otherwise spuriously "resolve" to it.
func inferEnvVarEdge(owner *model.Resource, maps *model.LookupMaps, accountID, key, value string) {
	if value == "" {
		return
	}

	if maps.KnownResourceIDs[value] {
		owner.AddRelationship(value, "associated-with")
		return
	}

	if id, ok := resolveEnvVarTarget(maps, accountID, value); ok {
		owner.AddRelationship(id, "associated-with")
	}
}

func resolveEnvVarTarget(maps *model.LookupMaps, accountID, value string) (string, bool) {
	if id, ok := maps.EnvVarResourceIdentifierToID[envVarIdentifierKey(value, accountID)]; ok && !suppressed(maps, id, value, accountID) {
		return id, true
	}
	if id, ok := maps.EndpointToID[value]; ok && !suppressed(maps, id, value, accountID) {
		return id, true
	}
	return "", false
}

// suppressed implements the accountId-as-env-var false-positive guard: a
// match against an S3-account-public-access-block resource whose resourceId
// equals the owning account id is not a real relationship.
func suppressed(maps *model.LookupMaps, resolvedID, value, accountID string) bool {
	return value == accountID && resolvedID != "" &&
		maps.ResourceIdentifierToID[resourceIdentifierKey(resourceTypeS3PublicAccessBlock, accountID, accountID, "global")] == resolvedID
}
