package models

import "time"

// Forum — тематический форум. IsPremium определяет уровень доступа.
type Forum struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPremium   bool      `json:"isPremium"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ForumPost — пост на форуме.
type ForumPost struct {
	ID        int64     `json:"id"`
	ForumID   int64     `json:"forumId"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ForumPostView — пост вместе с автором и числом ответов.
type ForumPostView struct {
	ForumPost
	User       *UserSummary `json:"user,omitempty"`
	ReplyCount int          `json:"replyCount"`
}

// ForumReply — ответ на пост.
type ForumReply struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	UserID    int64     `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ForumReplyView — ответ вместе с автором.
type ForumReplyView struct {
	ForumReply
	User *UserSummary `json:"user,omitempty"`
}

// Group — группа по интересам.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPremium   bool      `json:"isPremium"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GroupWithMembers — группа со списком участников.
type GroupWithMembers struct {
	Group
	Members []UserSummary `json:"members"`
}

// Membership — участие пользователя в группе, уникально для пары (UserID, GroupID).
type Membership struct {
	UserID   int64     `json:"userId"`
	GroupID  int64     `json:"groupId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// ZoomCall — запланированный видеозвонок группы. Видимость наследуется
// от уровня группы, участие — от членства в группе.
type ZoomCall struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"groupId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	ZoomLink    string    `json:"zoomLink"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ZoomCallView — звонок с группой и числом участников.
type ZoomCallView struct {
	ZoomCall
	Group            *Group `json:"group,omitempty"`
	ParticipantCount int    `json:"participantCount"`
}

// ForumPatch — частичное обновление форума администратором.
type ForumPatch struct {
	Title       *string
	Description *string
	IsPremium   *bool
}

// GroupPatch — частичное обновление группы администратором.
type GroupPatch struct {
	Name        *string
	Description *string
	IsPremium   *bool
}
