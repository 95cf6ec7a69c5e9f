package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMembershipChecker struct {
	mock.Mock
}

func (m *MockMembershipChecker) HasMembership(ctx context.Context, userID, groupID int64) (bool, error) {
	args := m.Called(ctx, userID, groupID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthorizer_Authorize(t *testing.T) {
	group := Target{Found: true, GroupID: 5}
	premiumGroup := Target{Found: true, Premium: true, GroupID: 6}

	tests := []struct {
		name      string
		actor     *Actor
		action    Action
		target    Target
		mockSetup func(m *MockMembershipChecker)
		want      Decision
		wantErr   bool
	}{
		{
			name:   "member joins call",
			actor:  member,
			action: JoinCall,
			target: group,
			mockSetup: func(m *MockMembershipChecker) {
				m.On("HasMembership", mock.Anything, member.UserID, int64(5)).Return(true, nil).Once()
			},
			want: Allow,
		},
		{
			name:   "non-member joins call",
			actor:  member,
			action: JoinCall,
			target: group,
			mockSetup: func(m *MockMembershipChecker) {
				m.On("HasMembership", mock.Anything, member.UserID, int64(5)).Return(false, nil).Once()
			},
			want: DenyNotMember,
		},
		{
			name:      "tier denial skips membership lookup",
			actor:     member,
			action:    JoinCall,
			target:    premiumGroup,
			mockSetup: func(_ *MockMembershipChecker) {},
			want:      DenyPremiumRequired,
		},
		{
			name:      "anonymous skips membership lookup",
			actor:     nil,
			action:    ListGroupCalls,
			target:    group,
			mockSetup: func(_ *MockMembershipChecker) {},
			want:      DenyAuthRequired,
		},
		{
			name:      "not group scoped",
			actor:     member,
			action:    ReadGroup,
			target:    group,
			mockSetup: func(_ *MockMembershipChecker) {},
			want:      Allow,
		},
		{
			name:   "store failure is an error, not a denial",
			actor:  member,
			action: CreateCall,
			target: group,
			mockSetup: func(m *MockMembershipChecker) {
				m.On("HasMembership", mock.Anything, member.UserID, int64(5)).Return(false, errors.New("connection refused")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := new(MockMembershipChecker)
			tt.mockSetup(members)
			a := NewAuthorizer(NewEngine(), members, newNoopLogger())

			got, err := a.Authorize(context.Background(), tt.actor, tt.action, tt.target)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			members.AssertExpectations(t)
		})
	}
}

func TestActionByName(t *testing.T) {
	a, ok := ActionByName("calls.join")
	require.True(t, ok)
	assert.Equal(t, JoinCall, a)

	_, ok = ActionByName("calls.delete")
	assert.False(t, ok)
}
