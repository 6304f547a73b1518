package model

import "time"

// Thread is a conversation between one seeker and the owner of one listing.
type Thread struct {
	ID            string     `db:"id" json:"id"`
	ListingID     string     `db:"listing_id" json:"listing_id"`
	ListerID      string     `db:"lister_id" json:"lister_id"`
	SeekerID      string     `db:"seeker_id" json:"seeker_id"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
}

// HasParticipant reports whether userID is the lister or the seeker.
func (t Thread) HasParticipant(userID string) bool {
	return userID != "" && (t.ListerID == userID || t.SeekerID == userID)
}

// Message is one entry in a thread. Messages are never edited.
type Message struct {
	ID        string    `db:"id" json:"id"`
	Seq       int64     `db:"seq" json:"-"`
	ThreadID  string    `db:"thread_id" json:"thread_id"`
	SenderID  string    `db:"sender_id" json:"sender_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
