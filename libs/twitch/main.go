package twitch

import (
	"strings"

	irc "github.com/gempir/go-twitch-irc/v3"
)

// Command returns the lowercased first word of a chat message.
func Command(message string) string {
	fields := strings.Fields(message)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Args returns the words after the command.
func Args(message string) []string {
	fields := strings.Fields(message)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

// Mention prefixes text with the sender's display name.
func Mention(message irc.PrivateMessage, text string) string {
	name := message.User.DisplayName
	if name == "" {
		name = message.User.Name
	}
	return "@" + name + ": " + text
}

// IsModOrBroadcaster reports whether the sender moderates the channel or owns it.
func IsModOrBroadcaster(message irc.PrivateMessage) bool {
	if message.Tags["mod"] == "1" {
		return true
	}
	if message.User.Badges["broadcaster"] == 1 {
		return true
	}
	return strings.EqualFold(message.User.Name, message.Channel) ||
		strings.EqualFold(message.Tags["display-name"], message.Channel)
}
