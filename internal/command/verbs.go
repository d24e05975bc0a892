package command

import "strings"

// Verb describes one DM command. The set is static.
type Verb struct {
	Name        string
	Usage       string
	Description string
	Aliases     []string
	Privileged  bool
}

var verbs = []Verb{
	{
		Name:        "help",
		Usage:       "/help",
		Description: "Show available commands",
		Aliases:     []string{"h", "?", "hlep", "halp"},
	},
	{
		Name:        "kick",
		Usage:       "/kick <handle> [reason]",
		Description: "Kick a user from every guild they are in",
		Aliases:     []string{"k", "kik", "kck", "boot"},
		Privileged:  true,
	},
	{
		Name:        "ban",
		Usage:       "/ban <handle> [reason]",
		Description: "Ban a user from every guild",
		Aliases:     []string{"b", "bna"},
		Privileged:  true,
	},
	{
		Name:        "timeout",
		Usage:       "/timeout <handle> <minutes> [reason]",
		Description: "Time a user out in every guild they are in",
		Aliases:     []string{"t", "to", "mute", "tiemout"},
		Privileged:  true,
	},
	{
		Name:        "cache",
		Usage:       "/cache [on|off]",
		Description: "Toggle image caching",
		Aliases:     []string{"c", "cach"},
		Privileged:  true,
	},
}

func lookupVerb(name string) *Verb {
	for i := range verbs {
		if verbs[i].Name == name {
			return &verbs[i]
		}
	}
	return nil
}

// Suggest picks the closest verb for an unrecognized input: exact alias match
// first, then a prefix match in either direction, help as the fallback.
func Suggest(input string) string {
	input = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(input), "/"))

	for _, v := range verbs {
		for _, alias := range append([]string{v.Name}, v.Aliases...) {
			if alias == input {
				return v.Name
			}
		}
	}

	if input != "" {
		for _, v := range verbs {
			for _, alias := range append([]string{v.Name}, v.Aliases...) {
				if strings.HasPrefix(alias, input) || strings.HasPrefix(input, alias) {
					return v.Name
				}
			}
		}
	}

	return "help"
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, v := range verbs {
		b.WriteString("`" + v.Usage + "` - " + v.Description + "\n")
	}
	b.WriteString("Commands are DM-only.")
	return b.String()
}
