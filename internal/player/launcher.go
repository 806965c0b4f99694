package player

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// playerFlags defines how a known player takes a resume offset and the
// HTTP headers that authenticated streams require.
type playerFlags struct {
	offsetFlag string // e.g., "--start="
	headerFlag string // e.g., "--http-header-fields="
}

// players registry. The header flag only exists for the mpv family;
// other players get the URL without auth headers and rely on the
// server accepting token query parameters.
var players = map[string]playerFlags{
	"mpv":       {offsetFlag: "--start=", headerFlag: "--http-header-fields="},
	"celluloid": {offsetFlag: "--mpv-start=", headerFlag: "--mpv-http-header-fields="},
	"iina":      {offsetFlag: "--mpv-start=", headerFlag: "--mpv-http-header-fields="},
	"vlc":       {offsetFlag: "--start-time="},
}

// candidates is the preferred player order when nothing is configured.
var candidates = map[string][]string{
	"darwin":  {"iina", "mpv", "vlc"},
	"linux":   {"mpv", "celluloid", "vlc"},
	"windows": {"mpv", "vlc"},
}

// Launcher launches playable URIs in an external player.
type Launcher struct {
	command   string
	args      []string
	startFlag string
	logger    *slog.Logger
}

// NewLauncher creates a launcher. An empty command means auto-detect;
// an empty startFlag is resolved from the players registry when the
// command is a known player.
func NewLauncher(command string, args []string, startFlag string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}

	resolvedFlag := startFlag
	if resolvedFlag == "" && command != "" {
		if pf, ok := players[playerBase(command)]; ok {
			resolvedFlag = pf.offsetFlag
			logger.Debug("auto-detected player offset flag", "player", playerBase(command), "flag", resolvedFlag)
		}
	}

	return &Launcher{
		command:   command,
		args:      args,
		startFlag: resolvedFlag,
		logger:    logger,
	}
}

func playerBase(command string) string {
	base := filepath.Base(command)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(base)
}

// Launch opens a stream URI in the configured player, or the first
// available candidate, passing the resume offset and auth headers where
// the player supports them. It blocks until the player exits so the
// caller can record how long playback ran.
func (l *Launcher) Launch(url string, headers map[string]string, startOffset time.Duration) error {
	if l.command != "" {
		return l.launch(l.command, l.startFlag, headerFlagFor(l.command), url, headers, startOffset)
	}

	names, ok := candidates[runtime.GOOS]
	if !ok {
		names = candidates["linux"]
	}
	for _, name := range names {
		pf := players[name]
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		return l.launch(name, pf.offsetFlag, pf.headerFlag, url, headers, startOffset)
	}

	return fmt.Errorf("no media player found; configure player.command")
}

func headerFlagFor(command string) string {
	if pf, ok := players[playerBase(command)]; ok {
		return pf.headerFlag
	}
	return ""
}

func (l *Launcher) launch(command, startFlag, headerFlag, url string, headers map[string]string, startOffset time.Duration) error {
	args := append([]string{}, l.args...)

	if startOffset > 0 {
		if startFlag == "" {
			l.logger.Warn("cannot set start offset, configure player.start_flag",
				"command", command, "offset", startOffset)
		} else if strings.HasSuffix(startFlag, " ") {
			args = append(args, strings.TrimSuffix(startFlag, " "), fmt.Sprintf("%.0f", startOffset.Seconds()))
		} else {
			args = append(args, fmt.Sprintf("%s%.0f", startFlag, startOffset.Seconds()))
		}
	}

	if len(headers) > 0 {
		if headerFlag == "" {
			l.logger.Warn("player cannot send auth headers, stream may be rejected", "command", command)
		} else {
			var fields []string
			for k, v := range headers {
				fields = append(fields, k+": "+v)
			}
			args = append(args, headerFlag+strings.Join(fields, ","))
		}
	}

	args = append(args, url)
	l.logger.Info("launching player", "command", command, "url", url, "offset", startOffset)

	cmd := exec.Command(command, args...)
	return cmd.Run()
}
