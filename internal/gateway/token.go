package gateway

import (
	"fmt"

	"github.com/freestar-tools/g2persist/internal/module"
)

// Command letters placed in the eighth URCALL position.
const (
	CommandLink   byte = 'L'
	CommandUnlink byte = 'U'
)

// Word is the command verb passed to g2link_test.
type Word string

const (
	WordLink   Word = "LINK"
	WordUnlink Word = "UNLINK"
)

// Fixed session parameters g2link_test is invoked with.
const (
	DefaultTimeoutSeconds = 20
	DefaultRetries        = 2
)

// FormatToken builds the 8-character URCALL string: the callsign
// left-justified in six columns, one remote module column, then the command
// letter. Callsigns longer than six characters are passed through unpadded.
func FormatToken(callsign, remoteModule string, command byte) string {
	return fmt.Sprintf("%-6s%1s%c", callsign, remoteModule, command)
}

// Session carries the parameters shared by every command of one run.
type Session struct {
	IP             string
	Port           string
	Login          string
	Admin          string
	TimeoutSeconds int
	Retries        int
}

// Request is one invocation of the command utility.
type Request struct {
	Session
	Word        Word
	LocalModule module.ID
	Token       string
}

// LinkRequest asks the gateway to link local to callsign/remoteModule.
func LinkRequest(s Session, local module.ID, callsign, remoteModule string) Request {
	return Request{
		Session:     s,
		Word:        WordLink,
		LocalModule: local,
		Token:       FormatToken(callsign, remoteModule, CommandLink),
	}
}

// UnlinkRequest asks the gateway to drop whatever link local holds.
func UnlinkRequest(s Session, local module.ID) Request {
	return Request{
		Session:     s,
		Word:        WordUnlink,
		LocalModule: local,
		Token:       FormatToken("", "", CommandUnlink),
	}
}

// Args renders the request as g2link_test's positional arguments.
func (r Request) Args() []string {
	return []string{
		r.IP,
		r.Port,
		string(r.Word),
		r.Login,
		string(r.LocalModule),
		fmt.Sprint(r.TimeoutSeconds),
		fmt.Sprint(r.Retries),
		r.Admin,
		r.Token,
	}
}
