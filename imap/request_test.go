package imap_test

import (
	"testing"

	"ceres/imap"
)

// Structs

var parseTests = []struct {
	in  string
	out imap.Command
}{
	{"a CAPABILITY", imap.Command{Kind: imap.KindCapability, Tag: "a"}},
	{"b1 capability", imap.Command{Kind: imap.KindCapability, Tag: "b1"}},
	{"c NOOP", imap.Command{Kind: imap.KindNoop, Tag: "c"}},
	{"d LOGOUT", imap.Command{Kind: imap.KindLogout, Tag: "d"}},
	{"e CLOSE", imap.Command{Kind: imap.KindClose, Tag: "e"}},
	{"f NAMESPACE", imap.Command{Kind: imap.KindNamespace, Tag: "f"}},
	{"g ID (\"name\" \"testclient\")", imap.Command{Kind: imap.KindID, Tag: "g"}},
	{"h AUTHENTICATE PLAIN", imap.Command{Kind: imap.KindAuthPlain, Tag: "h"}},
	{"i authenticate plain", imap.Command{Kind: imap.KindAuthPlain, Tag: "i"}},
	{"j LOGIN \"user1@example.org\" \"pass-word_1\"", imap.Command{Kind: imap.KindLogin, Tag: "j", Username: "user1@example.org", Password: "pass-word_1"}},
	{"k LOGIN \"\" \"\"", imap.Command{Kind: imap.KindLogin, Tag: "k"}},
	{"l SELECT \"INBOX\"", imap.Command{Kind: imap.KindSelect, Tag: "l", Mailbox: "INBOX"}},
	{"m EXAMINE \"INBOX\"", imap.Command{Kind: imap.KindSelect, Tag: "m", Mailbox: "INBOX", ReadOnly: true}},
	{"n LIST \"\" \"*\"", imap.Command{Kind: imap.KindList, Tag: "n", Pattern: "*"}},
	{"o LIST \"INBOX\" \"Archive\"", imap.Command{Kind: imap.KindList, Tag: "o", Reference: "INBOX", Pattern: "Archive"}},
	{"p LSUB \"\" \"*\"", imap.Command{Kind: imap.KindLsub, Tag: "p", Pattern: "*"}},
	{"q CREATE \"Archive.2023\"", imap.Command{Kind: imap.KindCreate, Tag: "q", Mailbox: "Archive.2023"}},
	{"r SUBSCRIBE \"Archive\"", imap.Command{Kind: imap.KindSubscribe, Tag: "r", Mailbox: "Archive"}},
	{"s STATUS \"INBOX\" (MESSAGES UNSEEN)", imap.Command{Kind: imap.KindStatus, Tag: "s", Mailbox: "INBOX"}},
	{"t STATUS \"INBOX\"", imap.Command{Kind: imap.KindStatus, Tag: "t", Mailbox: "INBOX"}},
}

var unrecognizedTests = []string{
	"",
	"   ",
	"CAPABILITY",
	"a",
	"a ",
	"a UNKNOWNVERB",
	"a CAPABILITY extra",
	"a NOOP extra",
	"a LOGOUT extra",
	"a AUTHENTICATE",
	"a AUTHENTICATE KERBEROS_V4",
	"a AUTHENTICATE PLAIN extra",
	"a LOGIN user pass",
	"a LOGIN \"user\"",
	"a LOGIN \"user\" \"unterminated",
	"a SELECT INBOX",
	"a SELECT \"INBOX\" extra",
	"a LIST \"\"",
	"a CREATE \"bad name\"",
	"tag! NOOP",
}

// Functions

// TestParse executes a black-box table test on the
// implemented Parse() function.
func TestParse(t *testing.T) {

	for _, tt := range parseTests {

		cmd := imap.Parse(tt.in)

		// The raw line is always carried along.
		expected := tt.out
		expected.Raw = tt.in

		if cmd != expected {
			t.Fatalf("[imap.TestParse] Expected '%+v' for line '%s' but received '%+v'", expected, tt.in, cmd)
		}
	}
}

// TestParseUnrecognized executes a black-box table test
// verifying that lines outside the grammar come back as
// KindUnrecognized instead of an error.
func TestParseUnrecognized(t *testing.T) {

	for _, in := range unrecognizedTests {

		cmd := imap.Parse(in)

		if cmd.Kind != imap.KindUnrecognized {
			t.Fatalf("[imap.TestParseUnrecognized] Expected line '%s' to be unrecognized but received kind %s", in, cmd.Kind)
		}

		if cmd.Raw != in {
			t.Fatalf("[imap.TestParseUnrecognized] Expected raw line to be preserved for '%s'", in)
		}
	}
}
