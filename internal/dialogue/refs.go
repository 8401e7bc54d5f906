package dialogue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Reference kinds and the context key prefixes list handlers store under.
const (
	refMeeting   = "meeting"
	refRecording = "recording"
	refUser      = "user"
)

var (
	// "meeting 2", "recording #1", "user number 3"; a trailing colon or
	// letter means a time ("meeting 10:30", "meeting 3pm"), not a position.
	positionalRef = regexp.MustCompile(`(?i)\b(meeting|recording|user)s?\s*(?:#\s*|number\s+|no\.?\s*)?(\d{1,3})(?:[^\w:]|$)`)
	hashRef       = regexp.MustCompile(`(?:^|\s)#(\d{1,3})\b`)
	numberRef     = regexp.MustCompile(`(?i)\bnumber\s+(\d{1,3})\b`)
	literalID     = regexp.MustCompile(`\b(\d{6,19})\b`)
	bareNumber    = regexp.MustCompile(`^\s*#?(\d{1,3})\s*[.!]?\s*$`)
)

// reference is either a 1-based position in the last shown list or a
// literal provider ID.
type reference struct {
	kind     string // empty when the message did not name one
	position int
	literal  string
}

// findReference looks for, in order: a named positional reference, a literal
// provider ID of six or more digits, "#N" / "number N", and a bare number.
func findReference(text string) (reference, bool) {
	if m := positionalRef.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[2])
		return reference{kind: strings.ToLower(m[1]), position: n}, n > 0
	}
	if m := literalID.FindStringSubmatch(text); m != nil {
		return reference{literal: m[1]}, true
	}
	for _, re := range []*regexp.Regexp{hashRef, numberRef, bareNumber} {
		if m := re.FindStringSubmatch(text); m != nil {
			n, _ := strconv.Atoi(m[1])
			return reference{position: n}, n > 0
		}
	}
	return reference{}, false
}

func refKey(kind string, position int) string {
	return fmt.Sprintf("%s_%d", kind, position)
}

// resolveReference maps a reference onto a provider ID using the list
// positions stored in context. kinds are tried in order for unnamed
// positions. The second result is a user-facing message when it fails.
func (e *Engine) resolveReference(userID string, ref reference, kinds ...string) (string, string) {
	if ref.literal != "" {
		return ref.literal, ""
	}
	if ref.kind != "" {
		kinds = []string{ref.kind}
	}
	for _, kind := range kinds {
		if id, ok := e.sessions.GetContext(userID, refKey(kind, ref.position)); ok && id != "" {
			return id, ""
		}
	}
	kind := refMeeting
	if len(kinds) > 0 {
		kind = kinds[0]
	}
	return "", fmt.Sprintf(msgUnknownReference, kind, ref.position, kind)
}

// storeReferences replaces the <kind>_N keys with ids in list order.
func (e *Engine) storeReferences(userID, kind string, ids []string) {
	if _, err := e.sessions.DeleteContextPrefix(userID, kind+"_"); err != nil {
		e.logger.Warn("clear list references failed", "user_id", userID, "kind", kind, "error", err)
		return
	}
	values := make(map[string]string, len(ids))
	for i, id := range ids {
		values[refKey(kind, i+1)] = id
	}
	if err := e.sessions.SetContextValues(userID, values); err != nil {
		e.logger.Warn("store list references failed", "user_id", userID, "kind", kind, "error", err)
	}
}
