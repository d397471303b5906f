package dream

// Category is the kind of reply the model produced, taken from the
// sentinel emoji the persona prompt instructs it to lead with.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryDream
	CategoryClarification
	CategoryChat
)

func (c Category) String() string {
	switch c {
	case CategoryDream:
		return "dream"
	case CategoryClarification:
		return "question"
	case CategoryChat:
		return "chat"
	default:
		return "unknown"
	}
}

const (
	sentinelDream         = '🌙'
	sentinelAstrological  = '🔮'
	sentinelClarification = '❓'
	sentinelChat          = '💭'
)

// Classify maps a model reply to its category by its first rune. The
// prompt promises a sentinel prefix; anything else, including an empty
// reply, is CategoryUnknown. The reply is not trimmed: a sentinel behind
// leading whitespace means the model broke the contract.
func Classify(reply string) Category {
	for _, r := range reply {
		switch r {
		case sentinelDream, sentinelAstrological:
			return CategoryDream
		case sentinelClarification:
			return CategoryClarification
		case sentinelChat:
			return CategoryChat
		default:
			return CategoryUnknown
		}
	}
	return CategoryUnknown
}
