package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned for an action outside the known set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidParams is returned when a required param is missing or has the wrong type.
	ErrInvalidParams = errors.New("invalid parameters")
)

// ActionRequest is the inbound call. On the wire it is a flat JSON object:
// every key other than "action" and "token" is collected into Params.
type ActionRequest struct {
	Action string
	Token  string
	Params map[string]json.RawMessage
}

// UnmarshalJSON splits the flat request object into action, token and params.
func (r *ActionRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out ActionRequest
	if raw, ok := fields["action"]; ok {
		if err := json.Unmarshal(raw, &out.Action); err != nil {
			return fmt.Errorf("action: %w", err)
		}
		delete(fields, "action")
	}
	if raw, ok := fields["token"]; ok {
		if err := json.Unmarshal(raw, &out.Token); err != nil {
			return fmt.Errorf("token: %w", err)
		}
		delete(fields, "token")
	}
	out.Params = fields

	*r = out
	return nil
}

// DecodeAction validates the request and resolves it to a typed Action.
// It fails with ErrUnknownAction or ErrInvalidParams; both are detected
// before anything is sent upstream.
func DecodeAction(r *ActionRequest) (Action, error) {
	p := params(r.Params)

	switch ActionName(r.Action) {
	case ActionCreateToken:
		return CreateToken{}, nil

	case ActionNew:
		avatar, err := p.optionalString("avatarName")
		if err != nil {
			return nil, err
		}
		quality, err := p.optionalString("quality")
		if err != nil {
			return nil, err
		}
		voice, err := p.optionalObject("voice")
		if err != nil {
			return nil, err
		}
		return NewSession{AvatarName: avatar, Quality: quality, Voice: voice}, nil

	case ActionStart:
		id, err := p.requiredString("sessionId")
		if err != nil {
			return nil, err
		}
		return StartSession{SessionID: id}, nil

	case ActionStop:
		id, err := p.requiredString("sessionId")
		if err != nil {
			return nil, err
		}
		return StopSession{SessionID: id}, nil

	case ActionSpeak:
		id, err := p.requiredString("sessionId")
		if err != nil {
			return nil, err
		}
		text, err := p.requiredString("text")
		if err != nil {
			return nil, err
		}
		return Speak{SessionID: id, Text: text}, nil

	case ActionInterrupt:
		id, err := p.requiredString("sessionId")
		if err != nil {
			return nil, err
		}
		return Interrupt{SessionID: id}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, r.Action)
}

type params map[string]json.RawMessage

// isAbsent treats a missing key and an explicit JSON null the same way.
func (p params) isAbsent(key string) bool {
	raw, ok := p[key]
	return !ok || string(raw) == "null"
}

func (p params) optionalString(key string) (string, error) {
	if p.isAbsent(key) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(p[key], &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidParams, key)
	}
	return s, nil
}

func (p params) requiredString(key string) (string, error) {
	s, err := p.optionalString(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidParams, key)
	}
	return s, nil
}

func (p params) optionalObject(key string) (map[string]any, error) {
	if p.isAbsent(key) {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(p[key], &obj); err != nil {
		return nil, fmt.Errorf("%w: %s must be an object", ErrInvalidParams, key)
	}
	return obj, nil
}
