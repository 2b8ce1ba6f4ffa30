package domain

// Recommended actions issued at the end of a traversal.
const (
	ActionBookRdv    = "BOOK_RDV"
	ActionFollowUp   = "FOLLOW_UP"
	ActionDisqualify = "DISQUALIFY"
)
