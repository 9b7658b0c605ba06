package entity

// Inbound is one command as delivered by the chat transport
type Inbound struct {
	SenderID  string
	ChannelID string
	Text      string
}

// Reply is what goes back to the originator of a command
type Reply struct {
	Text      string
	InChannel bool
}

// Notification is an outbound message for the message-sending collaborator
type Notification struct {
	Target    string // channel or user id
	Text      string
	LinkNames bool
	AsUser    bool
}

// ChimeReport summarizes one broadcast tick
type ChimeReport struct {
	Evaluated int
	Notified  int
	Failed    int
}

// Overview is the data shown by the list command
type Overview struct {
	Officers    []Officer
	Flags       [7]bool
	UnknownKeys []string
}
