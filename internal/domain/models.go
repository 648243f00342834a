// Package domain defines the persistence models for conversation sessions,
// submission requests, published martyr records, and per-user abuse counters.
// These types are mapped with GORM and form the core data layer of the
// martyrs gallery bot.
package domain

import "time"

// Session states. A session walks the WaitingX states in order and is
// deleted once the flow completes, is cancelled, or expires.
const (
	StateIdle                 = "idle"
	StateWaitingFirstName     = "waiting_first_name"
	StateWaitingFatherName    = "waiting_father_name"
	StateWaitingFamilyName    = "waiting_family_name"
	StateWaitingBirthDate     = "waiting_birth_date"
	StateWaitingMartyrdomDate = "waiting_martyrdom_date"
	StateWaitingPlace         = "waiting_place"
	StateWaitingPhoto         = "waiting_photo"
)

// FlowType distinguishes why a session exists: creating a brand new entry,
// editing an already-published record, or rewriting the user's own pending
// submission in place.
type FlowType string

const (
	FlowAdd         FlowType = "add"
	FlowEdit        FlowType = "edit"
	FlowPendingEdit FlowType = "pending_edit"
)

// RequestType classifies a SubmissionRequest.
type RequestType string

const (
	RequestAdd    RequestType = "add"
	RequestEdit   RequestType = "edit"
	RequestDelete RequestType = "delete"
)

// RequestStatus is the moderation state of a SubmissionRequest.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// MartyrPayload is the fixed-shape record a flow assembles. It is embedded
// both in SubmissionRequest (the candidate) and in Martyr (the published
// entry) so the two always share one column layout.
type MartyrPayload struct {
	NameFirst     string `json:"name_first"     gorm:"type:varchar(128);column:name_first"`
	NameFather    string `json:"name_father"    gorm:"type:varchar(128);column:name_father"`
	NameFamily    string `json:"name_family"    gorm:"type:varchar(128);column:name_family"`
	FullName      string `json:"full_name"      gorm:"type:varchar(255);column:full_name;index"`
	Age           *int   `json:"age,omitempty"  gorm:"column:age"`
	DateBirth     string `json:"date_birth"     gorm:"type:varchar(16);column:date_birth"`
	DateMartyrdom string `json:"date_martyrdom" gorm:"type:varchar(16);column:date_martyrdom"`
	Place         string `json:"place"          gorm:"type:varchar(255);column:place"`
	ImageURL      string `json:"image_url"      gorm:"type:text;column:image_url"`
}

// Submitter is a snapshot of the submitting user's display identity, taken
// when the flow starts and never re-fetched.
type Submitter struct {
	TelegramID string `json:"telegram_id" gorm:"type:varchar(64);column:submitter_id"`
	FirstName  string `json:"first_name"  gorm:"type:varchar(128);column:submitter_first_name"`
	LastName   string `json:"last_name"   gorm:"type:varchar(128);column:submitter_last_name"`
	Username   string `json:"username"    gorm:"type:varchar(128);column:submitter_username"`
}

// Draft holds the partially collected field values of an in-progress flow.
// PhotoFileID/PhotoCaption are the transport-level photo reference captured
// at the final step, before the image is persisted to the image host.
type Draft struct {
	FirstName     string `json:"first_name"     gorm:"type:varchar(128);column:draft_first_name"`
	FatherName    string `json:"father_name"    gorm:"type:varchar(128);column:draft_father_name"`
	FamilyName    string `json:"family_name"    gorm:"type:varchar(128);column:draft_family_name"`
	BirthDate     string `json:"birth_date"     gorm:"type:varchar(16);column:draft_birth_date"`
	MartyrdomDate string `json:"martyrdom_date" gorm:"type:varchar(16);column:draft_martyrdom_date"`
	Place         string `json:"place"          gorm:"type:varchar(255);column:draft_place"`
	Age           *int   `json:"age,omitempty"  gorm:"column:draft_age"`
	PhotoFileID   string `json:"photo_file_id"  gorm:"type:text;column:draft_photo_file_id"`
	PhotoCaption  string `json:"photo_caption"  gorm:"type:text;column:draft_photo_caption"`
}

// Session is the per-user persisted progress of a multi-step collection
// flow. Exactly one row may exist per user (primary key = user id); every
// save is an upsert by key. TargetID is set only for edit flows: for
// FlowEdit it names the published Martyr being changed, for FlowPendingEdit
// the user's own pending SubmissionRequest.
type Session struct {
	UserID    string    `json:"user_id"   gorm:"type:varchar(64);primaryKey"`
	State     string    `json:"state"     gorm:"type:varchar(32);not null;default:'idle'"`
	Flow      FlowType  `json:"flow"      gorm:"type:varchar(16);not null;default:'add'"`
	TargetID  string    `json:"target_id" gorm:"type:char(36)"`
	Draft     Draft     `json:"draft"     gorm:"embedded"`
	Submitter Submitter `json:"submitter" gorm:"embedded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// IsEditing reports whether the session changes an existing entity rather
// than creating a new one.
func (s *Session) IsEditing() bool { return s.Flow != FlowAdd }

// SubmissionRequest is a proposed add/edit/delete action awaiting an
// administrator decision.
//
// Invariant: at most one pending request may exist per non-nil TargetID.
// The moderation service checks this before inserting edit/delete requests;
// add requests carry no target and are exempt.
type SubmissionRequest struct {
	ID         string        `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID     string        `json:"user_id" gorm:"type:varchar(64);not null;index:idx_user_requests"`
	Type       RequestType   `json:"type"    gorm:"type:varchar(16);not null;check:type IN ('add','edit','delete')"`
	TargetID   *string       `json:"target_id,omitempty" gorm:"type:char(36);index"`
	Payload    MartyrPayload `json:"payload"   gorm:"embedded"`
	Submitter  Submitter     `json:"submitter" gorm:"embedded"`
	Status     RequestStatus `json:"status"  gorm:"type:varchar(16);not null;default:'pending';index:idx_status_created,priority:1;check:status IN ('pending','approved','rejected')"`
	CreatedAt  time.Time     `json:"created_at" gorm:"index:idx_status_created,priority:2"`
	ReviewedAt *time.Time    `json:"reviewed_at,omitempty"`
}

// TableName returns the database table name for SubmissionRequest.
func (SubmissionRequest) TableName() string { return "submission_requests" }

// Martyr is a published, publicly visible gallery entry. It is created only
// by approving an add request, mutated in place only by approving an edit
// request, and deleted only by approving a delete request.
//
// RequestID records the add request this row originated from. The unique
// index makes a retried approval detectable: re-running Approve after a
// crash between record creation and request-status update finds the linked
// row instead of inserting a duplicate.
type Martyr struct {
	ID          string        `json:"id"         gorm:"type:char(36);primaryKey"`
	RequestID   string        `json:"request_id" gorm:"type:char(36);not null;uniqueIndex:ux_martyr_request"`
	OwnerUserID string        `json:"owner_user_id" gorm:"type:varchar(64);not null;index:idx_owner_martyrs"`
	Payload     MartyrPayload `json:"payload" gorm:"embedded"`
	CreatedAt   time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Martyr.
func (Martyr) TableName() string { return "martyrs" }

// AbuseCounter tracks per-user inbound event volume. Blocked users are
// dropped silently before any bot logic runs. A periodic sweep resets rows
// whose ReachedLimit flag is set, unblocking previously limited users.
type AbuseCounter struct {
	TelegramID   string    `json:"telegram_id"   gorm:"type:varchar(64);primaryKey"`
	RequestCount int       `json:"request_count" gorm:"not null;default:0"`
	ReachedLimit bool      `json:"reached_limit" gorm:"not null;default:false;index"`
	IsBlocked    bool      `json:"is_blocked"    gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for AbuseCounter.
func (AbuseCounter) TableName() string { return "abuse_counters" }
