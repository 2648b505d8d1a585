package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChatAPI struct {
	mock.Mock
}

func (m *mockChatAPI) GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error) {
	args := m.Called(ctx, params)
	member, _ := args.Get(0).(telego.ChatMember)
	return member, args.Error(1)
}

func (m *mockChatAPI) GetChat(ctx context.Context, params *telego.GetChatParams) (*telego.ChatFullInfo, error) {
	args := m.Called(ctx, params)
	chat, _ := args.Get(0).(*telego.ChatFullInfo)
	return chat, args.Error(1)
}

func forChat(id int64) any {
	return mock.MatchedBy(func(p *telego.GetChatMemberParams) bool { return p.ChatID.ID == id })
}

func TestIsMember(t *testing.T) {
	api := new(mockChatAPI)
	api.On("GetChatMember", mock.Anything, forChat(-1001)).Return(&telego.ChatMemberMember{}, nil)
	api.On("GetChatMember", mock.Anything, forChat(-1002)).Return(&telego.ChatMemberLeft{}, nil)
	api.On("GetChatMember", mock.Anything, forChat(-1003)).Return(nil, errors.New("chat not found"))
	oracle := NewChatMemberOracle(api)

	ok, err := oracle.IsMember(context.Background(), -1001, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = oracle.IsMember(context.Background(), -1002, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = oracle.IsMember(context.Background(), -1003, 5)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestIsJoinedStatus(t *testing.T) {
	assert.True(t, IsJoinedStatus("member"))
	assert.True(t, IsJoinedStatus("administrator"))
	assert.True(t, IsJoinedStatus("creator"))
	assert.False(t, IsJoinedStatus("left"))
	assert.False(t, IsJoinedStatus("kicked"))
	assert.False(t, IsJoinedStatus("restricted"))
}

func TestInviteLinks(t *testing.T) {
	api := new(mockChatAPI)
	api.On("GetChat", mock.Anything, mock.MatchedBy(func(p *telego.GetChatParams) bool { return p.ChatID.ID == -1001234 })).
		Return(&telego.ChatFullInfo{InviteLink: "https://t.me/+invite"}, nil)
	api.On("GetChat", mock.Anything, mock.MatchedBy(func(p *telego.GetChatParams) bool { return p.ChatID.ID == -1005678 })).
		Return(nil, errors.New("forbidden"))

	links := NewChatMemberOracle(api).InviteLinks(context.Background(), []int64{-1001234, -1005678})

	assert.Equal(t, []string{"https://t.me/+invite", "https://t.me/c/5678/1"}, links)
}
