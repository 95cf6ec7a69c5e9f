// Package storagetest содержит хранилище в памяти с тем же набором методов,
// что и repository.Storage. Используется в тестах сервисов и хендлеров.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

type membershipKey struct {
	userID, groupID int64
}

type participantKey struct {
	callID, userID int64
}

// Memory — потокобезопасное хранилище в памяти.
// Err, если задан, возвращается каждым методом вместо результата.
type Memory struct {
	mu sync.Mutex

	Err error
	Now func() time.Time

	nextID       int64
	users        map[int64]*models.User
	groups       map[int64]*models.Group
	forums       map[int64]*models.Forum
	posts        map[int64]*models.ForumPost
	replies      map[int64]*models.ForumReply
	calls        map[int64]*models.ZoomCall
	memberships  map[membershipKey]time.Time
	participants map[participantKey]time.Time
}

// New создаёт пустое хранилище.
func New() *Memory {
	return &Memory{
		Now:          time.Now,
		users:        make(map[int64]*models.User),
		groups:       make(map[int64]*models.Group),
		forums:       make(map[int64]*models.Forum),
		posts:        make(map[int64]*models.ForumPost),
		replies:      make(map[int64]*models.ForumReply),
		calls:        make(map[int64]*models.ZoomCall),
		memberships:  make(map[membershipKey]time.Time),
		participants: make(map[participantKey]time.Time),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) fail(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if m.Err != nil {
		return fmt.Errorf("%s: %w", op, m.Err)
	}
	return nil
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

// CreateUser сохраняет пользователя, проверяя уникальность имени и почты.
func (m *Memory) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storagetest.CreateUser"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUsernameTaken)
		}
		if u.Email == user.Email {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
	}
	user.ID = m.id()
	user.CreatedAt = m.Now()
	m.users[user.ID] = cloneUser(&user)
	return cloneUser(&user), nil
}

// GetUser возвращает пользователя по ID.
func (m *Memory) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storagetest.GetUser"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, notFound(op)
	}
	return cloneUser(u), nil
}

func userField(u *models.User, key models.UserKey) (string, bool) {
	deref := func(p *string) (string, bool) {
		if p == nil {
			return "", false
		}
		return *p, true
	}
	switch key {
	case models.KeyUsername:
		return u.Username, true
	case models.KeyEmail:
		return u.Email, true
	case models.KeyVerificationToken:
		return deref(u.VerificationToken)
	case models.KeyPasswordResetToken:
		return deref(u.PasswordResetToken)
	case models.KeyBillingSubscription:
		return deref(u.BillingSubscriptionID)
	}
	return "", false
}

// GetUserByKey возвращает пользователя по значению уникального поля.
func (m *Memory) GetUserByKey(ctx context.Context, key models.UserKey, value string) (*models.User, error) {
	const op = "storagetest.GetUserByKey"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if v, ok := userField(u, key); ok && v == value {
			return cloneUser(u), nil
		}
	}
	return nil, notFound(op)
}

// UpdateUser применяет патч с merge‑семантикой.
func (m *Memory) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	const op = "storagetest.UpdateUser"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, notFound(op)
	}
	applyToken := func(token **string, expiry **time.Time, p *models.TokenPatch) {
		if p.Token == "" {
			*token, *expiry = nil, nil
			return
		}
		t, e := p.Token, p.Expiry
		*token, *expiry = &t, &e
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.AboutMe != nil {
		u.AboutMe = *patch.AboutMe
	}
	if patch.ProfileImage != nil {
		u.ProfileImage = *patch.ProfileImage
	}
	if patch.IsVerified != nil {
		u.IsVerified = *patch.IsVerified
	}
	if patch.Verification != nil {
		applyToken(&u.VerificationToken, &u.VerificationTokenExpiry, patch.Verification)
	}
	if patch.PasswordReset != nil {
		applyToken(&u.PasswordResetToken, &u.PasswordResetExpiry, patch.PasswordReset)
	}
	if patch.IsPremium != nil {
		u.IsPremium = *patch.IsPremium
	}
	if patch.PremiumUntil != nil {
		if patch.PremiumUntil.Value == nil {
			u.PremiumUntil = nil
		} else {
			v := *patch.PremiumUntil.Value
			u.PremiumUntil = &v
		}
	}
	if patch.BillingCustomerID != nil {
		v := *patch.BillingCustomerID
		u.BillingCustomerID = &v
	}
	if patch.BillingSubscriptionID != nil {
		v := *patch.BillingSubscriptionID
		u.BillingSubscriptionID = &v
	}
	if patch.IsAdmin != nil {
		u.IsAdmin = *patch.IsAdmin
	}
	return cloneUser(u), nil
}

func (m *Memory) sortedUsers() []*models.User {
	result := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, cloneUser(u))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ListUsers возвращает страницу пользователей.
func (m *Memory) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storagetest.ListUsers"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	all := m.sortedUsers()
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

// FindPremiumExpired возвращает пользователей с истёкшим премиумом.
func (m *Memory) FindPremiumExpired(ctx context.Context, now time.Time, afterID int64, limit int) ([]*models.User, error) {
	const op = "storagetest.FindPremiumExpired"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	var result []*models.User
	for _, u := range m.sortedUsers() {
		if u.ID > afterID && u.IsPremium && u.PremiumUntil != nil && !u.PremiumUntil.After(now) {
			result = append(result, u)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// CreateGroup сохраняет группу.
func (m *Memory) CreateGroup(ctx context.Context, group models.Group) (*models.Group, error) {
	const op = "storagetest.CreateGroup"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	group.ID = m.id()
	group.CreatedAt = m.Now()
	g := group
	m.groups[g.ID] = &g
	return &group, nil
}

// GetGroup возвращает группу по ID.
func (m *Memory) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	const op = "storagetest.GetGroup"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	g, ok := m.groups[id]
	if !ok {
		return nil, notFound(op)
	}
	c := *g
	return &c, nil
}

func (m *Memory) filterGroups(keep func(*models.Group) bool) []models.Group {
	result := make([]models.Group, 0)
	for _, g := range m.groups {
		if keep(g) {
			result = append(result, *g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ListGroups возвращает группы указанного уровня.
func (m *Memory) ListGroups(ctx context.Context, premium bool) ([]models.Group, error) {
	const op = "storagetest.ListGroups"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	return m.filterGroups(func(g *models.Group) bool { return g.IsPremium == premium }), nil
}

// ListGroupsForUser возвращает группы пользователя.
func (m *Memory) ListGroupsForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	const op = "storagetest.ListGroupsForUser"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	return m.filterGroups(func(g *models.Group) bool {
		_, ok := m.memberships[membershipKey{userID, g.ID}]
		return ok
	}), nil
}

// ListSuggestedGroups возвращает группы, в которых пользователь не состоит.
func (m *Memory) ListSuggestedGroups(ctx context.Context, userID int64, includePremium bool, limit int) ([]models.Group, error) {
	const op = "storagetest.ListSuggestedGroups"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	result := m.filterGroups(func(g *models.Group) bool {
		_, member := m.memberships[membershipKey{userID, g.ID}]
		return !member && (includePremium || !g.IsPremium)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdateGroup применяет патч к группе.
func (m *Memory) UpdateGroup(ctx context.Context, id int64, patch models.GroupPatch) (*models.Group, error) {
	const op = "storagetest.UpdateGroup"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	g, ok := m.groups[id]
	if !ok {
		return nil, notFound(op)
	}
	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.Description != nil {
		g.Description = *patch.Description
	}
	if patch.IsPremium != nil {
		g.IsPremium = *patch.IsPremium
	}
	c := *g
	return &c, nil
}

// DeleteGroup удаляет группу и её членства.
func (m *Memory) DeleteGroup(ctx context.Context, id int64) error {
	const op = "storagetest.DeleteGroup"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return err
	}
	if _, ok := m.groups[id]; !ok {
		return notFound(op)
	}
	delete(m.groups, id)
	for k := range m.memberships {
		if k.groupID == id {
			delete(m.memberships, k)
		}
	}
	for cid, c := range m.calls {
		if c.GroupID == id {
			delete(m.calls, cid)
		}
	}
	return nil
}

// AddMembership добавляет членство. Возвращает false для существующего.
func (m *Memory) AddMembership(ctx context.Context, userID, groupID int64) (bool, error) {
	const op = "storagetest.AddMembership"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return false, err
	}
	if _, ok := m.groups[groupID]; !ok {
		return false, notFound(op)
	}
	if _, ok := m.users[userID]; !ok {
		return false, notFound(op)
	}
	key := membershipKey{userID, groupID}
	if _, ok := m.memberships[key]; ok {
		return false, nil
	}
	m.memberships[key] = m.Now()
	return true, nil
}

// RemoveMembership удаляет членство. Возвращает false, если его не было.
func (m *Memory) RemoveMembership(ctx context.Context, userID, groupID int64) (bool, error) {
	const op = "storagetest.RemoveMembership"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return false, err
	}
	key := membershipKey{userID, groupID}
	if _, ok := m.memberships[key]; !ok {
		return false, nil
	}
	delete(m.memberships, key)
	return true, nil
}

// HasMembership сообщает, состоит ли пользователь в группе.
func (m *Memory) HasMembership(ctx context.Context, userID, groupID int64) (bool, error) {
	const op = "storagetest.HasMembership"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return false, err
	}
	_, ok := m.memberships[membershipKey{userID, groupID}]
	return ok, nil
}

// ListMembershipsForUser возвращает членства пользователя.
func (m *Memory) ListMembershipsForUser(ctx context.Context, userID int64) ([]models.Membership, error) {
	const op = "storagetest.ListMembershipsForUser"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	result := make([]models.Membership, 0)
	for k, joined := range m.memberships {
		if k.userID == userID {
			result = append(result, models.Membership{UserID: k.userID, GroupID: k.groupID, JoinedAt: joined})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GroupID < result[j].GroupID })
	return result, nil
}

// ListMembersForGroup возвращает участников группы.
func (m *Memory) ListMembersForGroup(ctx context.Context, groupID int64) ([]models.UserSummary, error) {
	const op = "storagetest.ListMembersForGroup"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	result := make([]models.UserSummary, 0)
	for _, u := range m.sortedUsers() {
		if _, ok := m.memberships[membershipKey{u.ID, groupID}]; ok {
			result = append(result, u.Summary())
		}
	}
	return result, nil
}

// CreateForum сохраняет форум.
func (m *Memory) CreateForum(ctx context.Context, forum models.Forum) (*models.Forum, error) {
	const op = "storagetest.CreateForum"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	forum.ID = m.id()
	forum.CreatedAt = m.Now()
	f := forum
	m.forums[f.ID] = &f
	return &forum, nil
}

// GetForum возвращает форум по ID.
func (m *Memory) GetForum(ctx context.Context, id int64) (*models.Forum, error) {
	const op = "storagetest.GetForum"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	f, ok := m.forums[id]
	if !ok {
		return nil, notFound(op)
	}
	c := *f
	return &c, nil
}

// ListForums возвращает форумы указанного уровня.
func (m *Memory) ListForums(ctx context.Context, premium bool) ([]models.Forum, error) {
	const op = "storagetest.ListForums"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	result := make([]models.Forum, 0)
	for _, f := range m.forums {
		if f.IsPremium == premium {
			result = append(result, *f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateForum применяет патч к форуму.
func (m *Memory) UpdateForum(ctx context.Context, id int64, patch models.ForumPatch) (*models.Forum, error) {
	const op = "storagetest.UpdateForum"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	f, ok := m.forums[id]
	if !ok {
		return nil, notFound(op)
	}
	if patch.Title != nil {
		f.Title = *patch.Title
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	if patch.IsPremium != nil {
		f.IsPremium = *patch.IsPremium
	}
	c := *f
	return &c, nil
}

// DeleteForum удаляет форум.
func (m *Memory) DeleteForum(ctx context.Context, id int64) error {
	const op = "storagetest.DeleteForum"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return err
	}
	if _, ok := m.forums[id]; !ok {
		return notFound(op)
	}
	delete(m.forums, id)
	return nil
}

// CreatePost сохраняет пост.
func (m *Memory) CreatePost(ctx context.Context, post models.ForumPost) (*models.ForumPost, error) {
	const op = "storagetest.CreatePost"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	if _, ok := m.forums[post.ForumID]; !ok {
		return nil, notFound(op)
	}
	post.ID = m.id()
	post.CreatedAt = m.Now()
	p := post
	m.posts[p.ID] = &p
	return &post, nil
}

// GetPost возвращает пост по ID.
func (m *Memory) GetPost(ctx context.Context, id int64) (*models.ForumPost, error) {
	const op = "storagetest.GetPost"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, notFound(op)
	}
	c := *p
	return &c, nil
}

func (m *Memory) summary(userID int64) *models.UserSummary {
	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	s := u.Summary()
	return &s
}

// ListPostViews возвращает посты форума, новые первыми.
func (m *Memory) ListPostViews(ctx context.Context, forumID int64) ([]models.ForumPostView, error) {
	const op = "storagetest.ListPostViews"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	result := make([]models.ForumPostView, 0)
	for _, p := range m.posts {
		if p.ForumID != forumID {
			continue
		}
		v := models.ForumPostView{ForumPost: *p, User: m.summary(p.UserID)}
		for _, r := range m.replies {
			if r.PostID == p.ID {
				v.ReplyCount++
			}
		}
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// CreateReply сохраняет ответ.
func (m *Memory) CreateReply(ctx context.Context, reply models.ForumReply) (*models.ForumReply, error) {
	const op = "storagetest.CreateReply"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	if _, ok := m.posts[reply.PostID]; !ok {
		return nil, notFound(op)
	}
	reply.ID = m.id()
	reply.CreatedAt = m.Now()
	r := reply
	m.replies[r.ID] = &r
	return &reply, nil
}

// ListReplyViews возвращает ответы на пост.
func (m *Memory) ListReplyViews(ctx context.Context, postID int64) ([]models.ForumReplyView, error) {
	const op = "storagetest.ListReplyViews"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	result := make([]models.ForumReplyView, 0)
	for _, r := range m.replies {
		if r.PostID == postID {
			result = append(result, models.ForumReplyView{ForumReply: *r, User: m.summary(r.UserID)})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CreateCall сохраняет созвон.
func (m *Memory) CreateCall(ctx context.Context, call models.ZoomCall) (*models.ZoomCall, error) {
	const op = "storagetest.CreateCall"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	if _, ok := m.groups[call.GroupID]; !ok {
		return nil, notFound(op)
	}
	if !call.StartTime.Before(call.EndTime) {
		return nil, fmt.Errorf("%s: start must precede end", op)
	}
	call.ID = m.id()
	call.CreatedAt = m.Now()
	c := call
	m.calls[c.ID] = &c
	return &call, nil
}

// GetCall возвращает созвон по ID.
func (m *Memory) GetCall(ctx context.Context, id int64) (*models.ZoomCall, error) {
	const op = "storagetest.GetCall"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	c, ok := m.calls[id]
	if !ok {
		return nil, notFound(op)
	}
	cc := *c
	return &cc, nil
}

func (m *Memory) callViews(keep func(*models.ZoomCall, *models.Group) bool) []models.ZoomCallView {
	result := make([]models.ZoomCallView, 0)
	for _, c := range m.calls {
		g := m.groups[c.GroupID]
		if g == nil || !keep(c, g) {
			continue
		}
		gc := *g
		v := models.ZoomCallView{ZoomCall: *c, Group: &gc}
		for k := range m.participants {
			if k.callID == c.ID {
				v.ParticipantCount++
			}
		}
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result
}

// ListCallsForGroup возвращает созвоны группы.
func (m *Memory) ListCallsForGroup(ctx context.Context, groupID int64) ([]models.ZoomCallView, error) {
	const op = "storagetest.ListCallsForGroup"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	return m.callViews(func(c *models.ZoomCall, _ *models.Group) bool { return c.GroupID == groupID }), nil
}

// ListUpcomingCallsForUser возвращает будущие созвоны групп пользователя.
func (m *Memory) ListUpcomingCallsForUser(ctx context.Context, userID int64, now time.Time, includePremium bool) ([]models.ZoomCallView, error) {
	const op = "storagetest.ListUpcomingCallsForUser"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return nil, err
	}
	return m.callViews(func(c *models.ZoomCall, g *models.Group) bool {
		_, member := m.memberships[membershipKey{userID, c.GroupID}]
		return member && c.StartTime.After(now) && (includePremium || !g.IsPremium)
	}), nil
}

// AddCallParticipant отмечает участника созвона.
func (m *Memory) AddCallParticipant(ctx context.Context, callID, userID int64) (bool, error) {
	const op = "storagetest.AddCallParticipant"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx, op); err != nil {
		return false, err
	}
	if _, ok := m.calls[callID]; !ok {
		return false, notFound(op)
	}
	key := participantKey{callID, userID}
	if _, ok := m.participants[key]; ok {
		return false, nil
	}
	m.participants[key] = m.Now()
	return true, nil
}
