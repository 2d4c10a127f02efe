// Package callback parses the inline-button wire grammar used by moderation
// messages. Payloads are compact tags of the form "<entity>:<action>:<id>"
// (for example "report:resolve:17") plus the two profile forms keyed by
// Telegram id ("approve_profile:<telegramId>", "reject_profile:<telegramId>").
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownCallback = errors.New("unknown callback payload")

type Entity string

const (
	EntityReport   Entity = "report"
	EntityQuestion Entity = "question"
	EntityProfile  Entity = "profile"
)

type Action string

const (
	ActionResolve Action = "resolve"
	ActionReject  Action = "reject"
	ActionAnswer  Action = "answer"
	ActionArchive Action = "archive"
	ActionApprove Action = "approve"
)

// Payload is the tagged variant a raw callback string decodes into. For
// report/question payloads ID is the internal row id; for profile payloads
// it is the submitter's Telegram id.
type Payload struct {
	Entity Entity
	Action Action
	ID     int64
}

func (p Payload) String() string {
	switch p.Entity {
	case EntityProfile:
		if p.Action == ActionApprove {
			return fmt.Sprintf("approve_profile:%d", p.ID)
		}
		return fmt.Sprintf("reject_profile:%d", p.ID)
	default:
		return fmt.Sprintf("%s:%s:%d", p.Entity, p.Action, p.ID)
	}
}

func Parse(data string) (Payload, error) {
	data = strings.TrimSpace(data)

	if rest, ok := strings.CutPrefix(data, "approve_profile:"); ok {
		return profilePayload(ActionApprove, rest)
	}
	if rest, ok := strings.CutPrefix(data, "reject_profile:"); ok {
		return profilePayload(ActionReject, rest)
	}

	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return Payload{}, ErrUnknownCallback
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return Payload{}, ErrUnknownCallback
	}

	entity := Entity(parts[0])
	action := Action(parts[1])

	switch entity {
	case EntityReport:
		if action != ActionResolve && action != ActionReject {
			return Payload{}, ErrUnknownCallback
		}
	case EntityQuestion:
		if action != ActionAnswer && action != ActionReject && action != ActionArchive {
			return Payload{}, ErrUnknownCallback
		}
	default:
		return Payload{}, ErrUnknownCallback
	}

	return Payload{Entity: entity, Action: action, ID: id}, nil
}

func profilePayload(action Action, rest string) (Payload, error) {
	telegramID, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil || telegramID <= 0 {
		return Payload{}, ErrUnknownCallback
	}
	return Payload{Entity: EntityProfile, Action: action, ID: telegramID}, nil
}
