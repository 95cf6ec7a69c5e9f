package entitlement

// Action описывает защищаемое действие и правила, которые к нему применяются.
type Action struct {
	Name         string
	RequiresAuth bool
	// TierGated: премиальный ресурс требует действующего премиума.
	TierGated bool
	// GroupScoped: действие требует членства в группе ресурса.
	GroupScoped bool
	AdminOnly   bool
	// IsLogin: вход недоступен до подтверждения почты.
	IsLogin bool
}

// Действия платформы. Административные действия не зависят от уровня ресурса.
var (
	ListForums  = Action{Name: "forums.list", TierGated: true}
	ReadForum   = Action{Name: "forums.read", TierGated: true}
	ReadPosts   = Action{Name: "posts.list", TierGated: true}
	CreatePost  = Action{Name: "posts.create", RequiresAuth: true, TierGated: true}
	ReadReplies = Action{Name: "replies.list", TierGated: true}
	CreateReply = Action{Name: "replies.create", RequiresAuth: true, TierGated: true}

	ListGroups     = Action{Name: "groups.list", TierGated: true}
	ReadGroup      = Action{Name: "groups.read", TierGated: true}
	ListMyGroups   = Action{Name: "groups.mine", RequiresAuth: true}
	JoinGroup      = Action{Name: "groups.join", RequiresAuth: true, TierGated: true}
	LeaveGroup     = Action{Name: "groups.leave", RequiresAuth: true}
	ListGroupCalls = Action{Name: "calls.list", RequiresAuth: true, TierGated: true, GroupScoped: true}
	CreateCall     = Action{Name: "calls.create", RequiresAuth: true, TierGated: true, GroupScoped: true}
	JoinCall       = Action{Name: "calls.join", RequiresAuth: true, TierGated: true, GroupScoped: true}
	ListMyCalls    = Action{Name: "calls.mine", RequiresAuth: true}

	Login              = Action{Name: "auth.login", IsLogin: true}
	ViewProfile        = Action{Name: "auth.me", RequiresAuth: true}
	ResendVerification = Action{Name: "auth.resend_verification", RequiresAuth: true}
	EnsureSubscription = Action{Name: "subscription.ensure", RequiresAuth: true}

	ManageForum = Action{Name: "admin.forums", RequiresAuth: true, AdminOnly: true}
	ManageGroup = Action{Name: "admin.groups", RequiresAuth: true, AdminOnly: true}
	ListUsers   = Action{Name: "admin.users.list", RequiresAuth: true, AdminOnly: true}
	ManageUser  = Action{Name: "admin.users.update", RequiresAuth: true, AdminOnly: true}
)

var actionsByName = func() map[string]Action {
	all := []Action{
		ListForums, ReadForum, ReadPosts, CreatePost, ReadReplies, CreateReply,
		ListGroups, ReadGroup, ListMyGroups, JoinGroup, LeaveGroup,
		ListGroupCalls, CreateCall, JoinCall, ListMyCalls,
		Login, ViewProfile, ResendVerification, EnsureSubscription,
		ManageForum, ManageGroup, ListUsers, ManageUser,
	}
	m := make(map[string]Action, len(all))
	for _, a := range all {
		m[a.Name] = a
	}
	return m
}()

// ActionByName ищет действие по имени.
func ActionByName(name string) (Action, bool) {
	a, ok := actionsByName[name]
	return a, ok
}
