// Package model defines the action variants and result types shared by the gateway.
package model

// ActionName identifies one of the client-facing session verbs.
type ActionName string

const (
	ActionCreateToken ActionName = "create_token"
	ActionNew         ActionName = "new"
	ActionStart       ActionName = "start"
	ActionStop        ActionName = "stop"
	ActionSpeak       ActionName = "speak"
	ActionInterrupt   ActionName = "interrupt"
)

// Actions lists every known action in table order.
var Actions = []ActionName{
	ActionCreateToken,
	ActionNew,
	ActionStart,
	ActionStop,
	ActionSpeak,
	ActionInterrupt,
}

// Defaults applied to a new streaming session when the caller omits them.
const (
	DefaultAvatarName = "default"
	DefaultQuality    = "medium"
)

// Action is a validated session verb. The set of implementations is closed
// to this package.
type Action interface {
	Name() ActionName
	// Endpoint is the path suffix appended to the upstream base URL.
	Endpoint() string
	// Body is the JSON object sent upstream.
	Body() map[string]any

	isAction()
}

// CreateToken requests a short-lived streaming token.
type CreateToken struct{}

func (CreateToken) Name() ActionName     { return ActionCreateToken }
func (CreateToken) Endpoint() string     { return "/streaming.create_token" }
func (CreateToken) Body() map[string]any { return map[string]any{} }
func (CreateToken) isAction()            {}

// NewSession opens a streaming avatar session.
type NewSession struct {
	AvatarName string
	Quality    string
	Voice      map[string]any
}

func (NewSession) Name() ActionName { return ActionNew }
func (NewSession) Endpoint() string { return "/streaming.new" }
func (NewSession) isAction()        {}

func (a NewSession) Body() map[string]any {
	avatar := a.AvatarName
	if avatar == "" {
		avatar = DefaultAvatarName
	}
	quality := a.Quality
	if quality == "" {
		quality = DefaultQuality
	}
	voice := a.Voice
	if voice == nil {
		voice = map[string]any{"elevenlabs_settings": map[string]any{}}
	}
	return map[string]any{
		"avatar_name":             avatar,
		"quality":                 quality,
		"voice":                   voice,
		"version":                 "v2",
		"video_encoding":          "H264",
		"source":                  "sdk",
		"ia_is_livekit_transport": false,
	}
}

// StartSession starts streaming for an existing session.
type StartSession struct {
	SessionID string
}

func (StartSession) Name() ActionName       { return ActionStart }
func (StartSession) Endpoint() string       { return "/streaming.start" }
func (a StartSession) Body() map[string]any { return map[string]any{"session_id": a.SessionID} }
func (StartSession) isAction()              {}

// StopSession closes a session.
type StopSession struct {
	SessionID string
}

func (StopSession) Name() ActionName       { return ActionStop }
func (StopSession) Endpoint() string       { return "/streaming.stop" }
func (a StopSession) Body() map[string]any { return map[string]any{"session_id": a.SessionID} }
func (StopSession) isAction()              {}

// Speak makes the avatar repeat the given text verbatim.
type Speak struct {
	SessionID string
	Text      string
}

func (Speak) Name() ActionName { return ActionSpeak }
func (Speak) Endpoint() string { return "/streaming.task" }
func (Speak) isAction()        {}

func (a Speak) Body() map[string]any {
	return map[string]any{
		"session_id": a.SessionID,
		"text":       a.Text,
		"task_type":  "repeat",
	}
}

// Interrupt cuts off whatever the avatar is currently saying.
type Interrupt struct {
	SessionID string
}

func (Interrupt) Name() ActionName       { return ActionInterrupt }
func (Interrupt) Endpoint() string       { return "/streaming.interrupt" }
func (a Interrupt) Body() map[string]any { return map[string]any{"session_id": a.SessionID} }
func (Interrupt) isAction()              {}
