package lore

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lore entry does not exist
	ErrNotFound = errors.New("lore entry not found")
	// ErrDuplicateTip is returned when a transaction hash was already recorded
	ErrDuplicateTip = errors.New("tip already recorded")
	// ErrInvalid wraps validation failures of user input
	ErrInvalid = errors.New("invalid lore input")
	// ErrLocked is returned when another process holds the data directory
	ErrLocked = errors.New("lore store is locked by another process")
)

// Entry is one piece of user-submitted worldbuilding
type Entry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Author       string    `json:"author,omitempty"`
	AuthorWallet string    `json:"authorWallet,omitempty"`
	Score        int       `json:"score"`
	Canon        bool      `json:"canon"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewEntry holds the fields a user submits
type NewEntry struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	Author       string `json:"author"`
	AuthorWallet string `json:"authorWallet"`
}

// ListFilter narrows List results
type ListFilter struct {
	CanonOnly bool
	Limit     int
}

// Tip is a verified on-chain payment to an entry's author
type Tip struct {
	TxHash    string    `json:"txHash"`
	EntryID   string    `json:"entryId"`
	Recipient string    `json:"recipient"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}
