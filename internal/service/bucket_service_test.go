package service

import (
	"context"
	"errors"
	"testing"

	"vaultdrive/internal/domain"
)

func TestCreateBucket(t *testing.T) {
	f := newResolverFixture()
	owner := f.users.addUser("alice", "alice@example.com")
	stranger := f.users.addUser("eve", "eve@example.com")
	svc := NewBucketService(f.buckets, f.svc)

	root, err := svc.CreateBucket(context.Background(), owner.ID, "docs", nil, false, false, nil)
	if err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if root.OwnerID != owner.ID {
		t.Errorf("expected owner %d, got %d", owner.ID, root.OwnerID)
	}

	t.Run("duplicate name conflicts", func(t *testing.T) {
		_, err := svc.CreateBucket(context.Background(), owner.ID, "docs", nil, false, false, nil)
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("nested bucket needs write on parent", func(t *testing.T) {
		_, err := svc.CreateBucket(context.Background(), stranger.ID, "inner", &root.ID, false, false, nil)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}

		child, err := svc.CreateBucket(context.Background(), owner.ID, "inner", &root.ID, true, true, nil)
		if err != nil {
			t.Fatalf("CreateBucket nested: %v", err)
		}
		if child.ParentID == nil || *child.ParentID != root.ID {
			t.Error("expected child bound to parent")
		}
		if !child.RequiresApproval || !child.OwnerAutoApproves {
			t.Error("expected approval settings preserved")
		}
	})

	t.Run("missing parent", func(t *testing.T) {
		missing := int64(404)
		_, err := svc.CreateBucket(context.Background(), owner.ID, "inner", &missing, false, false, nil)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := svc.CreateBucket(context.Background(), owner.ID, "", nil, false, false, nil)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestCreateApproverGroup(t *testing.T) {
	f := newResolverFixture()
	owner := f.users.addUser("alice", "alice@example.com")
	member := f.users.addUser("bob", "bob@example.com")
	stranger := f.users.addUser("eve", "eve@example.com")
	bucket := f.buckets.addBucket(domain.Bucket{Name: "legal", OwnerID: owner.ID})

	approvers := newFakeApproverStore()
	svc := NewApproverService(approvers, f.svc)
	target := domain.Target{Type: domain.TargetBucket, ID: bucket.ID}

	t.Run("requires admin access", func(t *testing.T) {
		_, err := svc.CreateGroup(context.Background(), stranger.ID, target, "Legal", domain.ApprovalStandard, 1, []int64{member.ID})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("owner creates group", func(t *testing.T) {
		group, err := svc.CreateGroup(context.Background(), owner.ID, target, "Legal", domain.ApprovalUnanimous, 2, []int64{owner.ID, member.ID})
		if err != nil {
			t.Fatalf("CreateGroup: %v", err)
		}
		if group.BucketID == nil || *group.BucketID != bucket.ID {
			t.Error("expected group bound to the bucket")
		}
		if !group.IsGroup {
			t.Error("expected multi-member group flagged as group")
		}

		groups, err := svc.GroupsForUser(context.Background(), member.ID)
		if err != nil {
			t.Fatalf("GroupsForUser: %v", err)
		}
		if len(groups) != 1 || groups[0].ID != group.ID {
			t.Errorf("expected member to belong to the new group, got %+v", groups)
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := svc.CreateGroup(context.Background(), owner.ID, target, "", domain.ApprovalStandard, 1, []int64{member.ID}); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation for empty name, got %v", err)
		}
		if _, err := svc.CreateGroup(context.Background(), owner.ID, target, "x", domain.ApprovalType("maybe"), 1, []int64{member.ID}); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation for bad type, got %v", err)
		}
		if _, err := svc.CreateGroup(context.Background(), owner.ID, target, "x", domain.ApprovalStandard, 1, nil); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation for empty members, got %v", err)
		}
	})
}
