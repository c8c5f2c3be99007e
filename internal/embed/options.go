package embed

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coursemeet/backend/config"
	"github.com/coursemeet/backend/internal/capability"
)

// Widget frame size.
const (
	FrameWidth  = "100%"
	FrameHeight = 650
)

// TargetKind says which page a room is embedded in.
type TargetKind int

const (
	// TargetSession is a course session viewed by an enrolled user.
	TargetSession TargetKind = iota
	// TargetUniversal is a session reached through a guest link.
	TargetUniversal
	// TargetPrivate is a user's private room.
	TargetPrivate
)

// Target identifies the embedding page, used for the return link.
type Target struct {
	Kind      TargetKind
	SessionID int64
	Token     string    // universal link token
	OwnerID   uuid.UUID // private room owner
}

// RemoteVideoMenu restricts participant actions for non-moderators.
type RemoteVideoMenu struct {
	DisableKick           bool `json:"disableKick"`
	DisableGrantModerator bool `json:"disableGrantModerator"`
}

// ConfigOverwrite is the widget's configOverwrite block.
type ConfigOverwrite struct {
	DisableDeepLinking   bool             `json:"disableDeepLinking,omitempty"`
	DisableReactions     bool             `json:"disableReactions,omitempty"`
	LiveStreamingEnabled *bool            `json:"liveStreamingEnabled,omitempty"`
	ToolbarButtons       []string         `json:"toolbarButtons"`
	DisableProfile       bool             `json:"disableProfile"`
	PrejoinPageEnabled   bool             `json:"prejoinPageEnabled"`
	ChannelLastN         int              `json:"channelLastN"`
	StartWithAudioMuted  bool             `json:"startWithAudioMuted"`
	StartWithVideoMuted  bool             `json:"startWithVideoMuted"`
	RemoteVideoMenu      *RemoteVideoMenu `json:"remoteVideoMenu,omitempty"`
	DisableRemoteMute    bool             `json:"disableRemoteMute,omitempty"`
}

// InterfaceConfigOverwrite is the widget's interfaceConfigOverwrite block.
type InterfaceConfigOverwrite struct {
	ToolbarButtons     []string `json:"TOOLBAR_BUTTONS"`
	ShowJitsiWatermark bool     `json:"SHOW_JITSI_WATERMARK"`
	JitsiWatermarkLink string   `json:"JITSI_WATERMARK_LINK"`
}

// RecordSwitch is the record & streaming toggle shown next to the room.
type RecordSwitch struct {
	Enabled bool `json:"enabled"`
}

// Options is everything the client needs to start the widget. It is
// serialised once as JSON.
type Options struct {
	Domain                   string                   `json:"domain"`
	ExternalAPIURL           string                   `json:"externalApiUrl"`
	RoomName                 string                   `json:"roomName"`
	JWT                      string                   `json:"jwt,omitempty"`
	ConfigOverwrite          ConfigOverwrite          `json:"configOverwrite"`
	InterfaceConfigOverwrite InterfaceConfigOverwrite `json:"interfaceConfigOverwrite"`
	Width                    string                   `json:"width"`
	Height                   int                      `json:"height"`
	DisplayName              string                   `json:"displayName"`
	AvatarURL                string                   `json:"avatarUrl,omitempty"`
	Password                 string                   `json:"password,omitempty"`
	ReturnURL                string                   `json:"returnUrl,omitempty"`
	RecordSwitch             *RecordSwitch            `json:"recordSwitch,omitempty"`
	SessionID                int64                    `json:"sessionId,omitempty"`
}

// Request is one viewer opening one room.
type Request struct {
	Subject      capability.Subject
	Flags        capability.Flags
	Room         string // raw room name, sanitised by Build
	Target       Target
	AccountInUse bool // a recording service account is configured
}

// Builder assembles widget options from the site configuration.
type Builder struct {
	cfg       config.JitsiConfig
	publicURL string
	now       func() time.Time
}

// NewBuilder creates a builder for the given site configuration.
func NewBuilder(cfg config.JitsiConfig, publicURL string) *Builder {
	return &Builder{cfg: cfg, publicURL: publicURL, now: time.Now}
}

// Build returns the widget options for req. The room token is only attached
// when the site has both an app id and a secret.
func (b *Builder) Build(req Request) (*Options, error) {
	room := SanitizeRoom(req.Room)
	buttons := Toolbar(b.cfg, req.Flags)

	opts := &Options{
		Domain:         b.cfg.Domain,
		ExternalAPIURL: "https://" + b.cfg.Domain + "/external_api.js",
		RoomName:       room,
		ConfigOverwrite: ConfigOverwrite{
			DisableDeepLinking:  !b.cfg.DeepLink,
			DisableReactions:    !b.cfg.Reactions,
			ToolbarButtons:      buttons,
			DisableProfile:      true,
			PrejoinPageEnabled:  false,
			ChannelLastN:        b.cfg.ChannelLastCam,
			StartWithAudioMuted: true,
			StartWithVideoMuted: true,
		},
		InterfaceConfigOverwrite: InterfaceConfigOverwrite{
			ToolbarButtons:     buttons,
			ShowJitsiWatermark: true,
			JitsiWatermarkLink: b.cfg.WatermarkLink,
		},
		Width:       FrameWidth,
		Height:      FrameHeight,
		DisplayName: req.Subject.DisplayName(),
		AvatarURL:   req.Subject.AvatarURL,
		Password:    b.cfg.Password,
	}
	if !b.cfg.LiveButton {
		disabled := false
		opts.ConfigOverwrite.LiveStreamingEnabled = &disabled
	}
	if !req.Flags.Moderation {
		opts.ConfigOverwrite.RemoteVideoMenu = &RemoteVideoMenu{DisableKick: true, DisableGrantModerator: true}
		opts.ConfigOverwrite.DisableRemoteMute = true
	}

	if b.cfg.Authenticated() {
		token, err := BuildToken(TokenParams{
			Moderator:   req.Flags.Moderation,
			Room:        room,
			DisplayName: opts.DisplayName,
			AvatarURL:   req.Subject.AvatarURL,
			Email:       req.Subject.Email,
			ExpiresAt:   b.now().Add(TokenLifetime),
		}, b.cfg.AppID, b.cfg.Domain, b.cfg.Secret)
		if err != nil {
			return nil, fmt.Errorf("build room token: %w", err)
		}
		opts.JWT = token
	}

	if b.cfg.FinishAndReturn {
		opts.ReturnURL = b.returnURL(req.Target)
	}
	if req.Target.Kind != TargetPrivate {
		opts.SessionID = req.Target.SessionID
		if b.cfg.LiveButton && b.cfg.StreamingOption == 1 && req.AccountInUse {
			opts.RecordSwitch = &RecordSwitch{Enabled: req.Flags.Record}
		}
	}
	return opts, nil
}

func (b *Builder) returnURL(t Target) string {
	switch t.Kind {
	case TargetUniversal:
		return fmt.Sprintf("%s/universal/%s", b.publicURL, t.Token)
	case TargetPrivate:
		return fmt.Sprintf("%s/users/%s/private-room", b.publicURL, t.OwnerID)
	default:
		return fmt.Sprintf("%s/sessions/%d", b.publicURL, t.SessionID)
	}
}
