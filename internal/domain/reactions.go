package domain

// ReactionClass splits reactions into votes and emoji.
type ReactionClass int

const (
	ReactionUpvote ReactionClass = iota
	ReactionDownvote
	ReactionEmoji
)

// String implements fmt.Stringer.
func (c ReactionClass) String() string {
	switch c {
	case ReactionUpvote:
		return "upvote"
	case ReactionDownvote:
		return "downvote"
	default:
		return "emoji"
	}
}

// ClassifyReaction maps reaction content to exactly one class: "+" and the
// empty string are upvotes, "-" is a downvote, everything else is an emoji.
func ClassifyReaction(content string) ReactionClass {
	switch content {
	case "+", "":
		return ReactionUpvote
	case "-":
		return ReactionDownvote
	default:
		return ReactionEmoji
	}
}
