package embed

import (
	"github.com/coursemeet/backend/config"
	"github.com/coursemeet/backend/internal/capability"
)

// Toolbar button identifiers understood by the widget.
const (
	ButtonRecording         = "recording"
	ButtonSharedVideo       = "sharedvideo"
	ButtonLiveStreaming     = "livestreaming"
	ButtonBackgroundBlur    = "videobackgroundblur"
	ButtonSecurity          = "security"
	ButtonMuteEveryone      = "mute-everyone"
	ButtonMuteVideoEveryone = "mute-video-everyone"
	ButtonParticipantsPane  = "participants-pane"
)

// Toolbar returns the enabled toolbar buttons in display order. The result
// depends only on the feature switches and the viewer's capability flags.
func Toolbar(f config.JitsiConfig, caps capability.Flags) []string {
	buttons := make([]string, 0, 27)
	add := func(on bool, names ...string) {
		if on {
			buttons = append(buttons, names...)
		}
	}
	add(true, "microphone", "camera", "closedcaptions", "desktop", "fullscreen",
		"fodeviceselection", "hangup", "chat")
	add(f.Record, ButtonRecording)
	add(true, "etherpad")
	add(f.ShareYouTube, ButtonSharedVideo)
	add(true, "settings", "raisehand", "videoquality")
	add(f.LiveButton && caps.Record && f.StreamingOption == 0, ButtonLiveStreaming)
	add(true, "filmstrip", "stats", "shortcuts", "tileview")
	add(f.BlurButton, ButtonBackgroundBlur)
	add(true, "download", "help")
	add(caps.Moderation, ButtonMuteEveryone, ButtonMuteVideoEveryone)
	add(f.SecurityButton, ButtonSecurity)
	add(f.ParticipantsPane && caps.Moderation, ButtonParticipantsPane)
	return buttons
}
