package model

import (
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleEndUser      Role = "end_user"
	RoleSupportAgent Role = "support_agent"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleEndUser || r == RoleSupportAgent || r == RoleAdmin
}

// Staff reports whether the role may see internal comments and work tickets.
func (r Role) Staff() bool {
	return r == RoleSupportAgent || r == RoleAdmin
}

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

type TicketPriority string

const (
	PriorityLow      TicketPriority = "Low"
	PriorityMedium   TicketPriority = "Medium"
	PriorityHigh     TicketPriority = "High"
	PriorityCritical TicketPriority = "Critical"
)

func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type User struct {
	ID         uint64    `gorm:"column:id;primaryKey" json:"id"`
	Username   string    `gorm:"column:username;type:varchar(100);uniqueIndex;not null" json:"username"`
	Password   string    `gorm:"column:password;type:varchar(255);not null" json:"-"`
	Name       string    `gorm:"column:name;type:varchar(255)" json:"name"`
	Email      string    `gorm:"column:email;type:varchar(255);index" json:"email"`
	Role       Role      `gorm:"column:role;type:varchar(32);not null" json:"role"`
	Department string    `gorm:"column:department;type:varchar(100)" json:"department"`
	Picture    string    `gorm:"column:picture;type:varchar(512)" json:"picture,omitempty"`
	Active     bool      `gorm:"column:active;not null" json:"active"`
	Provider   string    `gorm:"column:provider;type:varchar(32);not null;default:local" json:"provider"`
	CreatedAt  time.Time `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt"`
}

func (User) TableName() string { return "users" }

type Comment struct {
	ID        int64     `json:"id"`
	AuthorID  uint64    `json:"authorId"`
	Content   string    `json:"content"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"createdAt"`
}

type Ticket struct {
	ID          uint64                       `gorm:"column:id;primaryKey" json:"id"`
	Title       string                       `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Description string                       `gorm:"column:description;type:text" json:"description"`
	Category    string                       `gorm:"column:category;type:varchar(100)" json:"category"`
	Priority    TicketPriority               `gorm:"column:priority;type:varchar(32);index;not null" json:"priority"`
	Status      TicketStatus                 `gorm:"column:status;type:varchar(32);index;not null" json:"status"`
	CreatedBy   uint64                       `gorm:"column:createdBy;index;not null" json:"createdBy"`
	AssignedTo  *uint64                      `gorm:"column:assignedTo;index" json:"assignedTo"`
	Department  string                       `gorm:"column:department;type:varchar(100);index" json:"department"`
	CreatedAt   time.Time                    `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt"`
	UpdatedAt   time.Time                    `gorm:"column:updatedAt;autoUpdateTime:false" json:"updatedAt"`
	Comments    datatypes.JSONSlice[Comment] `gorm:"column:comments" json:"comments"`
}

func (Ticket) TableName() string { return "tickets" }

// VisibleTo returns a copy with internal comments removed for non-staff viewers.
func (t Ticket) VisibleTo(role Role) Ticket {
	if role.Staff() {
		return t
	}
	out := t
	out.Comments = make(datatypes.JSONSlice[Comment], 0, len(t.Comments))
	for _, c := range t.Comments {
		if !c.Internal {
			out.Comments = append(out.Comments, c)
		}
	}
	return out
}

type KnowledgeArticle struct {
	ID       uint64                      `gorm:"column:id;primaryKey" json:"id"`
	Title    string                      `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Category string                      `gorm:"column:category;type:varchar(100)" json:"category"`
	Solution string                      `gorm:"column:solution;type:text" json:"solution"`
	Keywords datatypes.JSONSlice[string] `gorm:"column:keywords" json:"keywords"`
}

func (KnowledgeArticle) TableName() string { return "knowledge_base" }

type Department struct {
	ID          uint64 `gorm:"column:id;primaryKey" json:"id"`
	Name        string `gorm:"column:name;type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`
}

func (Department) TableName() string { return "departments" }

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

type ChatSession struct {
	ID        string                           `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	UserID    uint64                           `gorm:"column:userId;index;not null" json:"userId"`
	Title     string                           `gorm:"column:title;type:varchar(255)" json:"title"`
	Messages  datatypes.JSONSlice[ChatMessage] `gorm:"column:messages" json:"messages"`
	CreatedAt time.Time                        `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time                        `gorm:"column:updatedAt;autoUpdateTime:false" json:"updatedAt"`
	IsActive  bool                             `gorm:"column:isActive;not null" json:"isActive"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{&User{}, &Department{}, &KnowledgeArticle{}, &Ticket{}, &ChatSession{}}
}
