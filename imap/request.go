package imap

import (
	"strings"
)

// Constants

// Kind enumerates the closed set of client commands
// the server understands. Every parsed line maps to
// exactly one of these, with KindUnrecognized acting
// as the catch-all for lines outside the grammar.
const (
	KindUnrecognized Kind = iota
	KindCapability
	KindLogin
	KindAuthPlain
	KindLogout
	KindNoop
	KindSelect
	KindList
	KindLsub
	KindCreate
	KindSubscribe
	KindStatus
	KindNamespace
	KindID
	KindClose
)

// Structs and Types

// Kind represents the integer value associated with
// one of the implemented IMAP commands.
type Kind int

// Command represents the parsed content of a client
// command line. Only the fields belonging to the
// respective Kind carry meaning, all others are left
// at their zero value.
type Command struct {
	Kind      Kind
	Tag       string
	Raw       string
	Username  string
	Password  string
	Mailbox   string
	Reference string
	Pattern   string
	ReadOnly  bool
}

// Functions

// String returns the canonical command verb for a Kind,
// useful in logging and metrics labels.
func (k Kind) String() string {

	switch k {
	case KindCapability:
		return "CAPABILITY"
	case KindLogin:
		return "LOGIN"
	case KindAuthPlain:
		return "AUTHENTICATE"
	case KindLogout:
		return "LOGOUT"
	case KindNoop:
		return "NOOP"
	case KindSelect:
		return "SELECT"
	case KindList:
		return "LIST"
	case KindLsub:
		return "LSUB"
	case KindCreate:
		return "CREATE"
	case KindSubscribe:
		return "SUBSCRIBE"
	case KindStatus:
		return "STATUS"
	case KindNamespace:
		return "NAMESPACE"
	case KindID:
		return "ID"
	case KindClose:
		return "CLOSE"
	default:
		return "UNRECOGNIZED"
	}
}

// Parse takes in one raw line received from a client and
// parses it into the typed command structure above. Parse
// does not return an error: lines outside the grammar come
// back as a command of KindUnrecognized carrying the raw
// input, which the dispatcher answers with an untagged BAD.
func Parse(line string) Command {

	unrecognized := Command{
		Kind: KindUnrecognized,
		Raw:  line,
	}

	// Every command starts with a client-chosen
	// alphanumeric tag followed by white space.
	tag, rest, ok := scanTag(line)
	if !ok {
		return unrecognized
	}

	verb, rest := scanWord(rest)
	if verb == "" {
		return unrecognized
	}

	switch strings.ToLower(verb) {

	case "capability":
		if !emptyRest(rest) {
			return unrecognized
		}
		return Command{Kind: KindCapability, Tag: tag, Raw: line}

	case "noop":
		if !emptyRest(rest) {
			return unrecognized
		}
		return Command{Kind: KindNoop, Tag: tag, Raw: line}

	case "logout":
		if !emptyRest(rest) {
			return unrecognized
		}
		return Command{Kind: KindLogout, Tag: tag, Raw: line}

	case "close":
		if !emptyRest(rest) {
			return unrecognized
		}
		return Command{Kind: KindClose, Tag: tag, Raw: line}

	case "namespace":
		if !emptyRest(rest) {
			return unrecognized
		}
		return Command{Kind: KindNamespace, Tag: tag, Raw: line}

	case "id":
		// Clients commonly send an ID parameter list.
		// Its content does not influence our answer,
		// so it is accepted and ignored.
		return Command{Kind: KindID, Tag: tag, Raw: line}

	case "authenticate":

		// Only the PLAIN mechanism is implemented. The
		// credentials follow on a separate line after the
		// continuation prompt, so the command itself ends here.
		mech, rest := scanWord(rest)
		if (strings.ToLower(mech) != "plain") || !emptyRest(rest) {
			return unrecognized
		}

		return Command{Kind: KindAuthPlain, Tag: tag, Raw: line}

	case "login":

		user, rest, ok := scanQuoted(rest, loginExtraRunes)
		if !ok {
			return unrecognized
		}

		rest, ok = scanSpace(rest)
		if !ok {
			return unrecognized
		}

		pass, rest, ok := scanQuoted(rest, loginExtraRunes)
		if !ok || !emptyRest(rest) {
			return unrecognized
		}

		return Command{Kind: KindLogin, Tag: tag, Raw: line, Username: user, Password: pass}

	case "select", "examine":

		name, rest, ok := scanQuoted(rest, "")
		if !ok || !emptyRest(rest) {
			return unrecognized
		}

		return Command{
			Kind:     KindSelect,
			Tag:      tag,
			Raw:      line,
			Mailbox:  name,
			ReadOnly: strings.EqualFold(verb, "examine"),
		}

	case "list", "lsub":

		ref, rest, ok := scanQuoted(rest, "")
		if !ok {
			return unrecognized
		}

		rest, ok = scanSpace(rest)
		if !ok {
			return unrecognized
		}

		pattern, rest, ok := scanQuoted(rest, "")
		if !ok || !emptyRest(rest) {
			return unrecognized
		}

		kind := KindList
		if strings.EqualFold(verb, "lsub") {
			kind = KindLsub
		}

		return Command{Kind: kind, Tag: tag, Raw: line, Reference: ref, Pattern: pattern}

	case "create", "subscribe":

		name, rest, ok := scanQuoted(rest, "")
		if !ok || !emptyRest(rest) {
			return unrecognized
		}

		kind := KindCreate
		if strings.EqualFold(verb, "subscribe") {
			kind = KindSubscribe
		}

		return Command{Kind: kind, Tag: tag, Raw: line, Mailbox: name}

	case "status":

		// A STATUS item list may trail the mailbox name. The
		// reported counts are canned, so the list is ignored.
		name, _, ok := scanQuoted(rest, "")
		if !ok {
			return unrecognized
		}

		return Command{Kind: KindStatus, Tag: tag, Raw: line, Mailbox: name}

	default:
		return unrecognized
	}
}

// loginExtraRunes holds the additional characters allowed
// inside quoted LOGIN arguments, on top of the basic quoted
// string alphabet. They cover e-mail style user names.
const loginExtraRunes = "@_-"

// scanTag consumes the leading alphanumeric command tag.
// The tag must be non-empty and followed by white space.
func scanTag(s string) (string, string, bool) {

	i := 0
	for i < len(s) && isAlphanumeric(s[i]) {
		i++
	}

	if (i == 0) || (i == len(s)) || (s[i] != ' ') {
		return "", "", false
	}

	rest, ok := scanSpace(s[i:])
	if !ok {
		return "", "", false
	}

	return s[:i], rest, true
}

// scanSpace consumes one or more space characters.
func scanSpace(s string) (string, bool) {

	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}

	if i == 0 {
		return s, false
	}

	return s[i:], true
}

// scanWord consumes characters up to the next space and
// eats the separating white space afterwards.
func scanWord(s string) (string, string) {

	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, ""
	}

	rest, _ := scanSpace(s[i:])

	return s[:i], rest
}

// scanQuoted consumes one double-quoted string whose inner
// characters are restricted to the quoted string alphabet
// plus the supplied extra runes. The inner part may be empty,
// which is needed for the common `LIST "" "*"` form.
func scanQuoted(s string, extra string) (string, string, bool) {

	if (len(s) == 0) || (s[0] != '"') {
		return "", "", false
	}

	i := 1
	for i < len(s) && s[i] != '"' {

		if !isQuotedRune(s[i], extra) {
			return "", "", false
		}

		i++
	}

	if i == len(s) {
		return "", "", false
	}

	return s[1:i], s[(i + 1):], true
}

// emptyRest reports whether nothing but white space is
// left of a command line after all arguments were consumed.
func emptyRest(s string) bool {
	return strings.TrimRight(s, " ") == ""
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// isQuotedRune reports whether a character may appear inside
// a quoted string argument. The base alphabet covers mailbox
// names including the wildcard and hierarchy separator.
func isQuotedRune(c byte, extra string) bool {

	if isAlphanumeric(c) || (c == '*') || (c == '.') {
		return true
	}

	return strings.IndexByte(extra, c) >= 0
}
