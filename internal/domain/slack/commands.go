package slack

import (
	"regexp"
	"strings"
)

type CommandType string

const (
	CmdEnroll          CommandType = "enroll"
	CmdUnenroll        CommandType = "unenroll"
	CmdList            CommandType = "list"
	CmdFlashEvent      CommandType = "flashevent"
	CmdForceFlashEvent CommandType = "forceflashevent"
	CmdErase           CommandType = "erase"
	CmdChime           CommandType = "chime"
	CmdCheckin         CommandType = "checkin"
	CmdThanks          CommandType = "thanks"
	CmdHelp            CommandType = "help"
	CmdChatter         CommandType = "chatter"
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

var leadingMention = regexp.MustCompile(`^\s*<@[A-Za-z0-9]+(\|[^>]*)?>[:,]?\s*`)

// StripBotMention removes a leading "<@BOT>" so "@bot enroll ..." parses like "enroll ...".
// Only the given bot id is stripped; an empty id strips any leading mention.
func StripBotMention(text, botUserID string) string {
	loc := leadingMention.FindStringIndex(text)
	if loc == nil {
		return text
	}
	if botUserID != "" && ParseMention(strings.TrimSpace(text[:loc[1]])) != botUserID {
		return text
	}
	return text[loc[1]:]
}

// ParseMention extracts a user id from "<@U123>", "<@U123|name>", "@U123" or "U123".
func ParseMention(mention string) string {
	id := strings.TrimSpace(mention)
	id = strings.TrimRight(id, ":,")
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	id = strings.TrimPrefix(id, "@")
	if i := strings.Index(id, "|"); i >= 0 {
		id = id[:i]
	}
	return id
}

// ParseCommand tokenizes text on whitespace; the first token picks the command
// regardless of case. Anything unrecognized becomes chatter.
func ParseCommand(text string) *Command {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return &Command{Type: CmdHelp, Raw: text}
	}

	cmd := &Command{
		Raw: text,
	}
	if len(parts) > 1 {
		cmd.Args = parts[1:]
	}

	switch strings.ToLower(parts[0]) {
	case "enroll":
		cmd.Type = CmdEnroll
	case "unenroll":
		cmd.Type = CmdUnenroll
	case "list", "ls":
		cmd.Type = CmdList
	case "flashevent":
		cmd.Type = CmdFlashEvent
	case "forceflashevent":
		cmd.Type = CmdForceFlashEvent
	case "erase", "rawerase":
		cmd.Type = CmdErase
	case "chime":
		cmd.Type = CmdChime
	case "checkin":
		cmd.Type = CmdCheckin
	case "thanks", "thx":
		cmd.Type = CmdThanks
	case "thank":
		if len(parts) > 1 && strings.HasPrefix(strings.ToLower(parts[1]), "you") {
			cmd.Type = CmdThanks
		} else {
			cmd.Type = CmdChatter
		}
	case "help":
		cmd.Type = CmdHelp
	default:
		cmd.Type = CmdChatter
	}

	return cmd
}

func GetHelpText() string {
	return `*I will respond to the following messages:*

*Roster:*
• ` + "`enroll @user name offset`" + ` - Enroll a member for notifications (ex: enroll @whopper whopper +5)
• ` + "`unenroll @user`" + ` - Remove a member
• ` + "`list`" + ` - List the weekly schedule and enrolled members

*Flash events:*
• ` + "`flashevent on|off`" + ` - Toggle flash event notifications for your today
• ` + "`forceflashevent 0-6 [on|off]`" + ` - Set the flash event for a weekday (0 = Sunday)
• ` + "`forceflashevent 0-6 clear confirm`" + ` - Remove the flag for a weekday

*Maintenance:*
• ` + "`erase key confirm`" + ` - Erase a corrupt or garbage entry

*Other:*
• ` + "`checkin`" + ` - Have a little chat
• ` + "`thanks`" + ` - Be polite
• ` + "`help`" + ` - Show this message`
}
