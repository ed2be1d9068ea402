package model

import "testing"

func TestProject_TitlePrefersNameTag(t *testing.T) {
	r := &Resource{
		ID: "arn:aws:ec2:us-east-1:111122223333:instance/i-abc",
		ResourceID: "i-abc",
		ResourceName: "fallback-name",
		Tags: []Tag{{Key: "Name", Value: "web-server-1"}},
	}
	p := Project(r)
	if p.Title != "web-server-1" {
		t.Errorf("Title = %q, want %q", p.Title, "web-server-1")
	}
}

func TestProject_TitleFallsBackToResourceName(t *testing.T) {
	r := &Resource{ID: "arn:x", ResourceID: "i-abc", ResourceName: "my-instance"}
	p := Project(r)
	if p.Title != "my-instance" {
		t.Errorf("Title = %q, want %q", p.Title, "my-instance")
	}
}

func TestProject_TitleFromTargetGroupARN(t *testing.T) {
	r := &Resource{
		ID: "arn:aws:elasticloadbalancing:us-east-1:111122223333:targetgroup/my-tg/abc123",
		ResourceType: "elbv2-target-group",
	}
	p := Project(r)
	if p.Title != "abc123" {
		t.Errorf("Title = %q, want %q", p.Title, "abc123")
	}
}

func TestProject_HashSetMembersGetMD5Hash(t *testing.T) {
	r := &Resource{ID: "arn:x", ResourceType: "container-task", ResourceID: "task-1"}
	p := Project(r)
	if p.MD5Hash == "" {
		t.Error("expected MD5Hash to be set for a hash-set member")
	}
}

func TestProject_NonHashSetMembersHaveNoHash(t *testing.T) {
	r := &Resource{ID: "arn:x", ResourceType: "ec2-instance", ResourceID: "i-1"}
	p := Project(r)
	if p.MD5Hash != "" {
		t.Errorf("expected no MD5Hash for non-hash-set type, got %q", p.MD5Hash)
	}
}

func TestProject_HashIsDeterministic(t *testing.T) {
	r1 := &Resource{ID: "arn:x", ResourceType: "spot", ResourceID: "sir-1", Configuration: map[string]any{"a": 1}}
	r2 := &Resource{ID: "arn:x", ResourceType: "spot", ResourceID: "sir-1", Configuration: map[string]any{"a": 1}}
	if Project(r1).MD5Hash != Project(r2).MD5Hash {
		t.Error("expected identical resources to hash identically")
	}
}

func TestProject_StringifiesNestedMaps(t *testing.T) {
	r := &Resource{
		ID: "arn:x",
		Configuration: map[string]any{"key": "value"},
		Tags: []Tag{{Key: "env", Value: "prod"}},
	}
	p := Project(r)
	if p.Configuration == "" {
		t.Error("expected non-empty stringified configuration")
	}
	if p.Tags == "" {
		t.Error("expected non-empty stringified tags")
	}
}
