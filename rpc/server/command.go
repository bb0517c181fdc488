package server

import (
	"fmt"
	"strings"

	"github.com/rkv-io/rkv/lib/resp"
)

// --------------------------------------------------------------------------
// Command Representation
// --------------------------------------------------------------------------

// Command is one decoded client request. Name is the upper-cased verb; Key
// and Value are filled according to the verb's arity.
type Command struct {
	Name  string
	Key   string
	Value []byte
}

// Supported verbs. Anything else is answered with an Error frame while the
// connection stays open.
const (
	CmdGet = "GET"
	CmdSet = "SET"
)

// --------------------------------------------------------------------------
// Frame to Command Translation
// --------------------------------------------------------------------------

// ParseCommand interprets a frame as a command. On the wire a command is an
// Array of Bulk frames: the verb first (matched case-insensitively),
// then the arguments.
//
// A non-nil error is a client error, not a protocol error: the caller should
// report it as an Error reply and keep the connection open. The error text
// is already formatted for the wire.
func ParseCommand(frame resp.Frame) (Command, error) {
	if !frame.IsArray() || len(frame.Array()) == 0 {
		return Command{}, fmt.Errorf("ERR expected a non-empty command array")
	}

	elems := frame.Array()
	for i, elem := range elems {
		if !elem.IsBulk() {
			return Command{}, fmt.Errorf("ERR command element %d is not a bulk string", i)
		}
	}

	name := strings.ToUpper(string(elems[0].Bulk()))
	switch name {
	case CmdGet:
		if len(elems) != 2 {
			return Command{}, fmt.Errorf("ERR wrong number of arguments for 'get' command")
		}
		return Command{
			Name: CmdGet,
			Key:  string(elems[1].Bulk()),
		}, nil

	case CmdSet:
		if len(elems) != 3 {
			return Command{}, fmt.Errorf("ERR wrong number of arguments for 'set' command")
		}
		return Command{
			Name:  CmdSet,
			Key:   string(elems[1].Bulk()),
			Value: elems[2].Bulk(),
		}, nil
	}

	return Command{}, fmt.Errorf("ERR unknown command '%s'", string(elems[0].Bulk()))
}
