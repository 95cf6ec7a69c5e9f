package entitlement

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/silver-circles/internal/models"
)

var (
	guest       *Actor
	unverified  = &Actor{UserID: 1}
	member      = &Actor{UserID: 2, Verified: true}
	premiumUser = &Actor{UserID: 3, Verified: true, Premium: true}
	admin       = &Actor{UserID: 4, Verified: true, Admin: true}
)

func TestEngine_Decide(t *testing.T) {
	freeGroup := Target{Found: true, GroupID: 10}
	premiumGroup := Target{Found: true, Premium: true, GroupID: 11}

	tests := []struct {
		name string
		req  Request
		want Decision
	}{
		{
			name: "missing resource wins over everything",
			req:  Request{Actor: guest, Action: ManageGroup, Target: Missing()},
			want: DenyNotFound,
		},
		{
			name: "anonymous create post",
			req:  Request{Actor: guest, Action: CreatePost, Target: Tier(false)},
			want: DenyAuthRequired,
		},
		{
			name: "anonymous reads free forum",
			req:  Request{Actor: guest, Action: ReadForum, Target: Tier(false)},
			want: Allow,
		},
		{
			name: "anonymous reads premium forum gets 403-class denial",
			req:  Request{Actor: guest, Action: ReadForum, Target: Tier(true)},
			want: DenyPremiumRequired,
		},
		{
			name: "unverified login",
			req:  Request{Actor: unverified, Action: Login, Target: NoTarget()},
			want: DenyUnverified,
		},
		{
			name: "verified login",
			req:  Request{Actor: member, Action: Login, Target: NoTarget()},
			want: Allow,
		},
		{
			name: "unverified user may still read free content",
			req:  Request{Actor: unverified, Action: ReadGroup, Target: freeGroup},
			want: Allow,
		},
		{
			name: "non-premium member of premium group",
			req:  Request{Actor: member, Action: JoinCall, Target: premiumGroup, IsMember: true},
			want: DenyPremiumRequired,
		},
		{
			name: "premium non-member lists calls",
			req:  Request{Actor: premiumUser, Action: ListGroupCalls, Target: premiumGroup},
			want: DenyNotMember,
		},
		{
			name: "premium member lists calls",
			req:  Request{Actor: premiumUser, Action: ListGroupCalls, Target: premiumGroup, IsMember: true},
			want: Allow,
		},
		{
			name: "member creates call in free group",
			req:  Request{Actor: member, Action: CreateCall, Target: freeGroup, IsMember: true},
			want: Allow,
		},
		{
			name: "non-admin manages forum",
			req:  Request{Actor: premiumUser, Action: ManageForum, Target: NoTarget()},
			want: DenyAdminRequired,
		},
		{
			name: "admin manages premium forum without premium",
			req:  Request{Actor: admin, Action: ManageForum, Target: Tier(true)},
			want: Allow,
		},
		{
			name: "anonymous admin action needs auth first",
			req:  Request{Actor: guest, Action: ListUsers, Target: NoTarget()},
			want: DenyAuthRequired,
		},
		{
			name: "leave is not tier gated",
			req:  Request{Actor: member, Action: LeaveGroup, Target: premiumGroup},
			want: Allow,
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Decide(tt.req))
		})
	}
}

func TestEngine_PremiumConcealment(t *testing.T) {
	engine := NewEngine(WithPremiumConcealment(true))

	assert.Equal(t, DenyNotFound, engine.Decide(Request{Actor: guest, Action: ReadForum, Target: Tier(true)}))
	assert.Equal(t, DenyPremiumRequired, engine.Decide(Request{Actor: member, Action: ReadForum, Target: Tier(true)}),
		"authenticated users still see the upsell")
	assert.Equal(t, Allow, engine.Decide(Request{Actor: guest, Action: ReadForum, Target: Tier(false)}))
}

// Для любого непремиального пользователя любое чтение, вступление или
// публикация в премиальном ресурсе отклоняется, даже при членстве.
func TestEngine_PremiumDominatesMembership(t *testing.T) {
	engine := NewEngine()
	target := Target{Found: true, Premium: true, GroupID: 7}
	actions := []Action{
		ReadForum, ReadPosts, CreatePost, ReadReplies, CreateReply,
		ReadGroup, JoinGroup, ListGroupCalls, CreateCall, JoinCall,
	}
	actors := []*Actor{unverified, member, {UserID: 9, Verified: true, Admin: true}}

	for _, action := range actions {
		for _, actor := range actors {
			for _, isMember := range []bool{false, true} {
				got := engine.Decide(Request{Actor: actor, Action: action, Target: target, IsMember: isMember})
				assert.Equal(t, DenyPremiumRequired, got, "action %s actor %d member %v", action.Name, actor.UserID, isMember)
			}
		}
	}
}

// Получение премиума или членства никогда не отнимает доступ.
func TestEngine_Monotonic(t *testing.T) {
	engine := NewEngine()
	targets := []Target{Tier(false), Tier(true), {Found: true, GroupID: 1}, {Found: true, Premium: true, GroupID: 1}}

	for _, action := range actionsByName {
		for _, target := range targets {
			for _, verified := range []bool{false, true} {
				for _, isAdmin := range []bool{false, true} {
					base := &Actor{UserID: 1, Verified: verified, Admin: isAdmin}
					upgraded := &Actor{UserID: 1, Verified: verified, Admin: isAdmin, Premium: true}

					before := engine.Decide(Request{Actor: base, Action: action, Target: target})
					afterPremium := engine.Decide(Request{Actor: upgraded, Action: action, Target: target})
					afterMember := engine.Decide(Request{Actor: base, Action: action, Target: target, IsMember: true})
					if before.Allowed() {
						assert.True(t, afterPremium.Allowed(), "premium revoked access for %s", action.Name)
						assert.True(t, afterMember.Allowed(), "membership revoked access for %s", action.Name)
					}
				}
			}
		}
	}
}

func TestActorFromUser(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name        string
		user        *models.User
		wantNil     bool
		wantPremium bool
	}{
		{name: "anonymous", user: nil, wantNil: true},
		{name: "free", user: &models.User{ID: 1}},
		{name: "premium without expiry", user: &models.User{ID: 1, IsPremium: true}, wantPremium: true},
		{name: "premium active", user: &models.User{ID: 1, IsPremium: true, PremiumUntil: &future}, wantPremium: true},
		{name: "stale premium flag", user: &models.User{ID: 1, IsPremium: true, PremiumUntil: &past}},
		{name: "expiry exactly now", user: &models.User{ID: 1, IsPremium: true, PremiumUntil: &now}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActorFromUser(tt.user, now)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.wantPremium, got.Premium)
		})
	}
}

func TestDecision_Codes(t *testing.T) {
	for _, d := range []Decision{DenyAuthRequired, DenyUnverified, DenyPremiumRequired, DenyNotMember, DenyAdminRequired, DenyNotFound} {
		assert.NotEmpty(t, d.Reason(), string(d))
		assert.NotEmpty(t, d.Message(), string(d))
		parsed, ok := ParseDecision(string(d))
		assert.True(t, ok)
		assert.Equal(t, d, parsed)
	}
	assert.True(t, Allow.Allowed())
	assert.Empty(t, Allow.Reason())
	_, ok := ParseDecision("MAYBE")
	assert.False(t, ok)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(Allow))

	err := Check(DenyNotMember)
	require.Error(t, err)
	wrapped := fmt.Errorf("community.JoinCall: %w", err)
	d, ok := AsDenied(wrapped)
	require.True(t, ok)
	assert.Equal(t, DenyNotMember, d)
	assert.Contains(t, err.Error(), "not_member")

	_, ok = AsDenied(errors.New("boom"))
	assert.False(t, ok)
}
