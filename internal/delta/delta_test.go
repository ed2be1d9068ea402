package delta

import (
	"testing"

	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

func TestProjectEdges_DropsUnknownAndDanglingTargets(t *testing.T) {
	a := &model.Resource{ID: "arn:a"}
	a.AddRelationship("arn:b", "associated-with")
	a.AddRelationship(model.UnknownTarget, "attached-to")
	a.AddRelationship("arn:missing", "contained-in")
	b := &model.Resource{ID: "arn:b"}

	edges := ProjectEdges([]*model.Resource{a, b})

	if len(edges) != 1 {
		t.Fatalf("expected exactly one resolved edge, got %+v", edges)
	}
	if edges[0].Target != "arn:b" {
		t.Errorf("expected the resolved edge to target arn:b, got %q", edges[0].Target)
	}
}

func TestCompute_NodeDiff_StoreUpdateDelete(t *testing.T) {
	keep := &model.Resource{ID: "arn:keep", ResourceType: "ec2::instance", ConfigurationItemCaptureTime: "t2"}
	fresh := &model.Resource{ID: "arn:fresh", ResourceType: "ec2::instance"}
	resources := []*model.Resource{keep, fresh}

	dbResources := map[string]graphstore.StoredResource{
		"arn:keep": {ID: "arn:keep", Properties: map[string]string{"configurationItemCaptureTime": "t1"}},
		"arn:gone": {ID: "arn:gone"},
	}

	d := Compute(resources, dbResources, nil)

	if len(d.ResourcesToStore) != 1 || d.ResourcesToStore[0].ID != "arn:fresh" {
		t.Errorf("expected arn:fresh to be in resourcesToStore, got %+v", d.ResourcesToStore)
	}
	if len(d.ResourceIDsToDelete) != 1 || d.ResourceIDsToDelete[0] != "arn:gone" {
		t.Errorf("expected arn:gone to be in resourceIdsToDelete, got %+v", d.ResourceIDsToDelete)
	}
	if len(d.ResourcesToUpdate) != 1 || d.ResourcesToUpdate[0].ID != "arn:keep" {
		t.Errorf("expected arn:keep to be updated since captureTime differs, got %+v", d.ResourcesToUpdate)
	}
}

func TestDecideUpdate_HashSetTypeUsesHashNotCaptureTime(t *testing.T) {
	r := &model.Resource{ID: "arn:listener", ResourceType: "elbv2-listener", ConfigurationItemCaptureTime: "same"}
	current := Project(r)
	stored := graphstore.StoredResource{ID: r.ID, MD5Hash: current.MD5Hash, Properties: map[string]string{"configurationItemCaptureTime": "same"}}

	if _, needsUpdate := decideUpdate(r, stored); needsUpdate {
		t.Error("expected no update when the hash matches, even though other properties differ from empty stored properties")
	}
}

func TestDecideUpdate_TagTypeNeverUpdatesByCaptureTime(t *testing.T) {
	r := &model.Resource{ID: "arn:tag", ResourceType: "tag", ConfigurationItemCaptureTime: "t2"}
	stored := graphstore.StoredResource{ID: r.ID, Properties: map[string]string{"configurationItemCaptureTime": "t1", "supplementaryConfiguration": "{}"}}

	if _, needsUpdate := decideUpdate(r, stored); needsUpdate {
		t.Error("expected tag resources to never update on captureTime alone")
	}
}

func TestDecideUpdate_SupplementaryConfigAppearingForcesUpdate(t *testing.T) {
	r := &model.Resource{ID: "arn:r", ResourceType: "ec2::instance", SupplementaryConfiguration: map[string]any{"Foo": "bar"}}
	stored := graphstore.StoredResource{ID: r.ID, Properties: map[string]string{"supplementaryConfiguration": ""}}

	update, needsUpdate := decideUpdate(r, stored)
	if !needsUpdate {
		t.Fatal("expected an update when supplementaryConfiguration newly appears")
	}
	if _, ok := update.Properties["supplementaryConfiguration"]; !ok {
		t.Errorf("expected the supplementaryConfiguration key in the diff, got %+v", update.Properties)
	}
}

func TestCompute_EdgeDiff(t *testing.T) {
	a := &model.Resource{ID: "arn:a"}
	a.AddRelationship("arn:b", "associated-with")
	b := &model.Resource{ID: "arn:b"}

	dbRelationships := []graphstore.StoredRelationship{
		{Source: "arn:a", Target: "arn:b", Label: "associated-with"},
		{Source: "arn:a", Target: "arn:stale", Label: "attached-to"},
	}

	d := Compute([]*model.Resource{a, b}, map[string]graphstore.StoredResource{}, dbRelationships)

	if len(d.LinksToAdd) != 0 {
		t.Errorf("expected no new links since the only edge already exists in the db, got %+v", d.LinksToAdd)
	}
	if len(d.LinksToDelete) != 1 || d.LinksToDelete[0].Target != "arn:stale" {
		t.Errorf("expected the stale edge to be in linksToDelete, got %+v", d.LinksToDelete)
	}
}
