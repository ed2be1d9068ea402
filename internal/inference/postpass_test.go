package inference

import (
	"testing"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

func TestNormalizeRelationshipNames_AppendsTypeSuffix(t *testing.T) {
	instance := &model.Resource{ID: "arn:instance", ResourceType: "instance"}
	owner := &model.Resource{ID: "arn:owner"}
	owner.AddRelationship("arn:instance", "Is contained in")
	maps := BuildLookupMaps([]*model.Resource{instance, owner})

	NormalizeRelationshipNames([]*model.Resource{owner}, maps)

	if owner.Relationships[0].Label != "Is contained in Instance" {
		t.Errorf("expected suffix to be appended, got %q", owner.Relationships[0].Label)
	}
}

func TestNormalizeRelationshipNames_SkipsAlreadyQualifiedNames(t *testing.T) {
	instance := &model.Resource{ID: "arn:instance", ResourceType: "instance"}
	owner := &model.Resource{ID: "arn:owner"}
	owner.AddRelationship("arn:instance", "attached-to Instance")
	maps := BuildLookupMaps([]*model.Resource{instance, owner})

	NormalizeRelationshipNames([]*model.Resource{owner}, maps)

	if owner.Relationships[0].Label != "attached-to Instance" {
		t.Errorf("expected already-qualified name to be left alone, got %q", owner.Relationships[0].Label)
	}
}

func TestNormalizeRelationshipNames_SkipsHyphenEmbeddedQualifiers(t *testing.T) {
	sg := &model.Resource{ID: "arn:sg", ResourceType: "security-group"}
	subnet := &model.Resource{ID: "arn:subnet", ResourceType: "subnet"}
	owner := &model.Resource{ID: "arn:owner"}
	owner.AddRelationship("arn:sg", "associated-with-security-group")
	owner.AddRelationship("arn:subnet", "contained-in-subnet")
	maps := BuildLookupMaps([]*model.Resource{sg, subnet, owner})

	NormalizeRelationshipNames([]*model.Resource{owner}, maps)

	if owner.Relationships[0].Label != "associated-with-security-group" {
		t.Errorf("expected hyphen-embedded security-group qualifier to be left alone, got %q", owner.Relationships[0].Label)
	}
	if owner.Relationships[1].Label != "contained-in-subnet" {
		t.Errorf("expected hyphen-embedded subnet qualifier to be left alone, got %q", owner.Relationships[1].Label)
	}
}

func TestBackfillVPCInfo_SetsAZAndSubnetFromSubnetEdges(t *testing.T) {
	subnet := &model.Resource{ID: "arn:subnet", ResourceType: "subnet", ResourceID: "subnet-1", VpcID: "vpc-1", AvailabilityZone: "us-east-1a"}
	r := &model.Resource{ID: "arn:r", AccountID: "111", Region: "us-east-1"}
	r.AddRelationship("arn:subnet", "contained-in")
	maps := BuildLookupMaps([]*model.Resource{subnet, r})

	BackfillVPCInfo([]*model.Resource{r}, maps)

	if r.SubnetID != "subnet-1" {
		t.Errorf("expected subnetId to be backfilled, got %q", r.SubnetID)
	}
	if r.AvailabilityZone != "us-east-1a" {
		t.Errorf("expected availabilityZone to be backfilled, got %q", r.AvailabilityZone)
	}
	if r.VpcID != "vpc-1" {
		t.Errorf("expected vpcId to be synthesized from the common subnet VPC, got %q", r.VpcID)
	}
}

func TestBackfillVPCInfo_SkipsTagResources(t *testing.T) {
	subnet := &model.Resource{ID: "arn:subnet", ResourceType: "subnet", ResourceID: "subnet-1", VpcID: "vpc-1"}
	tag := &model.Resource{ID: "arn:tag", ResourceType: "tag"}
	tag.AddRelationship("arn:subnet", "associated-with")
	maps := BuildLookupMaps([]*model.Resource{subnet, tag})

	BackfillVPCInfo([]*model.Resource{tag}, maps)

	if tag.VpcID != "" {
		t.Error("expected tag resources to be excluded from VPC backfill")
	}
}
