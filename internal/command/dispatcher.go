// Package command parses and routes the bot's DM commands. Every dispatch
// ends with exactly one direct reply and one command log record; nothing in
// here ever raises to the event loop.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/server-warden/internal/moderation"
	"github.com/keshon/server-warden/internal/storage"
)

// MaxTimeoutMinutes is Discord's communication-timeout ceiling, 28 days.
const MaxTimeoutMinutes = 40320

const deniedMessage = "You are not authorized to use this command."

const settingCacheImages = storage.SettingCacheImages

// Store is the persistence surface the dispatcher needs.
type Store interface {
	IsWhitelisted(userID string) (bool, error)
	GetSetting(name string) (string, bool, error)
	SetSetting(name, value string) error
	AppendCommandLog(rec storage.CommandLog) error
}

// Moderator runs one fan-out action.
type Moderator interface {
	Execute(act moderation.Action) (*moderation.Summary, error)
}

// Messenger delivers direct replies.
type Messenger interface {
	DirectMessage(userID, content string) error
}

type Dispatcher struct {
	store Store
	mod   Moderator
	msg   Messenger
	log   zerolog.Logger
}

func NewDispatcher(store Store, mod Moderator, msg Messenger, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store: store,
		mod:   mod,
		msg:   msg,
		log:   log.With().Str("comp", "command").Logger(),
	}
}

// Dispatch handles one inbound DM line end to end.
func (d *Dispatcher) Dispatch(userID, username, content string) {
	verb, reply, ok := d.run(userID, content)

	if err := d.msg.DirectMessage(userID, reply); err != nil {
		d.log.Warn().Err(err).Str("user", userID).Msg("reply delivery failed")
	}

	rec := storage.CommandLog{
		UserID:      userID,
		Username:    username,
		Verb:        verb,
		ChannelKind: "dm",
		Content:     content,
		Success:     ok,
		Timestamp:   time.Now(),
	}
	// A failed log write never fails the command it was logging.
	if err := d.store.AppendCommandLog(rec); err != nil {
		d.log.Warn().Err(err).Str("user", userID).Msg("command log write failed")
	}
}

// run parses and executes, returning the verb name, the reply text and a
// success flag for the log record.
func (d *Dispatcher) run(userID, content string) (verb, reply string, ok bool) {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return "help", helpText(), true
	}

	token := fields[0]
	name := strings.ToLower(strings.TrimPrefix(token, "/"))
	v := lookupVerb(name)
	if !strings.HasPrefix(token, "/") || v == nil {
		suggestion := Suggest(token)
		return "unknown", fmt.Sprintf("Unknown command %q. Did you mean `/%s`?", token, suggestion), false
	}

	args := fields[1:]
	switch v.Name {
	case "help":
		return v.Name, helpText(), true
	case "kick":
		reply, ok = d.handleFanout(userID, v, moderation.KindKick, args)
	case "ban":
		reply, ok = d.handleFanout(userID, v, moderation.KindBan, args)
	case "timeout":
		reply, ok = d.handleTimeout(userID, v, args)
	case "cache":
		reply, ok = d.handleCache(userID, v, args)
	}
	return v.Name, reply, ok
}

// authorize re-checks the whitelist. Not cached: every privileged command
// checks again, so a revocation takes effect immediately.
func (d *Dispatcher) authorize(userID string) (string, bool) {
	whitelisted, err := d.store.IsWhitelisted(userID)
	if err != nil {
		d.log.Error().Err(err).Str("user", userID).Msg("whitelist lookup failed")
		return "Authorization check failed, try again later.", false
	}
	if !whitelisted {
		return deniedMessage, false
	}
	return "", true
}

func (d *Dispatcher) handleFanout(userID string, v *Verb, kind moderation.Kind, args []string) (string, bool) {
	if reply, ok := d.authorize(userID); !ok {
		return reply, false
	}
	if len(args) < 1 {
		return "Missing target. Usage: `" + v.Usage + "`", false
	}

	act := moderation.Action{
		Kind:   kind,
		Handle: args[0],
		Reason: strings.Join(args[1:], " "),
	}
	return d.fanout(act)
}

func (d *Dispatcher) handleTimeout(userID string, v *Verb, args []string) (string, bool) {
	if reply, ok := d.authorize(userID); !ok {
		return reply, false
	}
	if len(args) < 1 {
		return "Missing target. Usage: `" + v.Usage + "`", false
	}
	if len(args) < 2 {
		return "Missing duration. Usage: `" + v.Usage + "`", false
	}

	minutes, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Sprintf("Duration %q is not a whole number of minutes. Usage: `%s`", args[1], v.Usage), false
	}
	if minutes <= 0 {
		return "Duration must be at least 1 minute.", false
	}
	if minutes > MaxTimeoutMinutes {
		return fmt.Sprintf("Duration too long: the maximum is %d minutes (28 days).", MaxTimeoutMinutes), false
	}

	act := moderation.Action{
		Kind:     moderation.KindTimeout,
		Handle:   args[0],
		Duration: time.Duration(minutes) * time.Minute,
		Reason:   strings.Join(args[2:], " "),
	}
	return d.fanout(act)
}

func (d *Dispatcher) fanout(act moderation.Action) (string, bool) {
	sum, err := d.mod.Execute(act)
	if err != nil {
		if errors.Is(err, moderation.ErrTargetNotFound) {
			return fmt.Sprintf("No member matching %q was found. Use an exact username, name#tag or nickname.", act.Handle), false
		}
		d.log.Error().Err(err).Stringer("action", act.Kind).Msg("fan-out failed")
		return "Action failed: " + err.Error(), false
	}
	return sum.Report(), true
}

func (d *Dispatcher) handleCache(userID string, v *Verb, args []string) (string, bool) {
	if reply, ok := d.authorize(userID); !ok {
		return reply, false
	}

	if len(args) == 0 {
		value, found, err := d.store.GetSetting(settingCacheImages)
		if err != nil {
			return "Could not read the cache setting: " + err.Error(), false
		}
		if !found {
			value = "on"
		}
		return "Image caching is " + value + ".", true
	}

	switch mode := strings.ToLower(args[0]); mode {
	case "on", "off":
		if err := d.store.SetSetting(settingCacheImages, mode); err != nil {
			return "Could not update the cache setting: " + err.Error(), false
		}
		return "Image caching turned " + mode + ".", true
	default:
		return "Usage: `" + v.Usage + "`", false
	}
}
