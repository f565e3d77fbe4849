package domain

// Event kinds consumed and produced by the service.
const (
	KindProfile     = 0
	KindTextNote    = 1
	KindContactList = 3
	KindReaction    = 7
	KindGoal        = 9041
	KindZapReceipt  = 9735
)

// MaxSupplySats is the total bitcoin supply in satoshis.
const MaxSupplySats int64 = 21_000_000 * 100_000_000

// RawEvent is a relay event as delivered by the transport.
type RawEvent struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig,omitempty"`
}

// Category names the subscription an event arrived on. Kind 1 notes are
// comments or goal updates depending on the category.
type Category string

const (
	CategoryGoals     Category = "goals"
	CategoryProfiles  Category = "profiles"
	CategoryZaps      Category = "zaps"
	CategoryReactions Category = "reactions"
	CategoryComments  Category = "comments"
	CategoryUpdates   Category = "updates"
	CategoryContacts  Category = "contacts"
)

// Categories lists every category in ingestion order.
var Categories = []Category{
	CategoryGoals,
	CategoryProfiles,
	CategoryZaps,
	CategoryReactions,
	CategoryComments,
	CategoryUpdates,
	CategoryContacts,
}

// Profile describes a public identity.
type Profile struct {
	Pubkey      string `json:"pubkey"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	LUD16       string `json:"lud16,omitempty"`
	About       string `json:"about,omitempty"`
}

// Label returns the best human readable name of the profile.
func (p Profile) Label() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Name != "":
		return p.Name
	case len(p.Pubkey) > 8:
		return p.Pubkey[:8]
	default:
		return p.Pubkey
	}
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalStatusActive GoalStatus = "active"
	GoalStatusPaused GoalStatus = "paused"
	GoalStatusClosed GoalStatus = "closed"
	GoalStatusDone   GoalStatus = "done"
)

// Goal is a fundraising target. GoalID is stable across edits, EventID
// identifies one version and is what child records reference.
type Goal struct {
	EventID      string     `json:"event_id"`
	GoalID       string     `json:"goal_id"`
	AuthorPubkey string     `json:"author_pubkey"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	TargetSats   int64      `json:"target_sats"`
	Status       GoalStatus `json:"status"`
	CreatedAt    int64      `json:"created_at"`
}

// ValueTransfer is a payment receipt (zap) pointing at a goal and a recipient.
type ValueTransfer struct {
	EventID         string `json:"event_id"`
	TargetEventID   string `json:"target_event_id,omitempty"`
	RecipientPubkey string `json:"recipient_pubkey,omitempty"`
	ZapperPubkey    string `json:"zapper_pubkey,omitempty"`
	AmountMsat      int64  `json:"amount_msat"`
	Memo            string `json:"memo,omitempty"`
	CreatedAt       int64  `json:"created_at"`
}

// Sats converts the amount to whole satoshis, rounding down.
func (v ValueTransfer) Sats() int64 {
	if v.AmountMsat <= 0 {
		return 0
	}
	return v.AmountMsat / 1000
}

// Reaction is a vote or emoji attached to an event.
type Reaction struct {
	EventID       string `json:"event_id"`
	TargetEventID string `json:"target_event_id"`
	ReactorPubkey string `json:"reactor_pubkey"`
	Content       string `json:"content"`
	CreatedAt     int64  `json:"created_at"`
}

// Comment is a text note referencing a goal.
type Comment struct {
	EventID       string `json:"event_id"`
	TargetEventID string `json:"target_event_id"`
	AuthorPubkey  string `json:"author_pubkey"`
	Content       string `json:"content"`
	CreatedAt     int64  `json:"created_at"`
}

// GoalUpdate is a progress note. It only counts as an update of a goal when
// its author is the goal author; that check happens on read.
type GoalUpdate struct {
	EventID      string `json:"event_id"`
	GoalEventID  string `json:"goal_event_id"`
	AuthorPubkey string `json:"author_pubkey"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"created_at"`
}

// Supporter aggregates value transfers of one payer.
type Supporter struct {
	Pubkey    string `json:"pubkey,omitempty"`
	TotalSats int64  `json:"total_sats"`
	Count     int    `json:"count"`
}

// VoteTally counts reactions per class.
type VoteTally struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Emoji int `json:"emoji"`
}

// EmojiCount is one row of the emoji breakdown.
type EmojiCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// GoalView is a goal enriched with its aggregates, ready for listing.
type GoalView struct {
	Goal       Goal      `json:"goal"`
	Author     *Profile  `json:"author,omitempty"`
	RaisedSats int64     `json:"raised_sats"`
	Progress   float64   `json:"progress"`
	ZapCount   int       `json:"zap_count"`
	Votes      VoteTally `json:"votes"`
	// Position is the order in which the goal was first seen.
	Position int `json:"-"`
}

// RemainingSats is how much is still missing to reach the target.
func (v GoalView) RemainingSats() int64 {
	rest := v.Goal.TargetSats - v.RaisedSats
	if rest < 0 {
		return 0
	}
	return rest
}

// StoreCounts reports collection sizes of the normalized store.
type StoreCounts struct {
	Profiles  int `json:"profiles"`
	Goals     int `json:"goals"`
	Zaps      int `json:"zaps"`
	Reactions int `json:"reactions"`
	Comments  int `json:"comments"`
	Updates   int `json:"updates"`
}

// RelayStatus is the connection state of one configured relay.
type RelayStatus struct {
	URL       string `json:"url"`
	Connected bool   `json:"connected"`
	LastError string `json:"last_error,omitempty"`
}
