package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	baseWordsPerMinute = 175
	killWaitDelay      = 2 * time.Second
)

// CommandSynthesizer drives the operating system speech command: say on
// macOS, espeak-ng or espeak on Linux, and System.Speech through PowerShell on
// Windows. The command runs in its own process group so cancellation kills
// the whole tree.
type CommandSynthesizer struct {
	goos   string
	binary string
	logger *slog.Logger
}

// NewCommandSynthesizer locates the engine for the running OS.
func NewCommandSynthesizer(logger *slog.Logger) (*CommandSynthesizer, error) {
	return newCommandSynthesizer(runtime.GOOS, exec.LookPath, logger)
}

func newCommandSynthesizer(goos string, lookPath func(string) (string, error), logger *slog.Logger) (*CommandSynthesizer, error) {
	var candidates []string
	switch goos {
	case "darwin":
		candidates = []string{"say"}
	case "windows":
		candidates = []string{"powershell.exe", "pwsh.exe"}
	default:
		candidates = []string{"espeak-ng", "espeak"}
	}
	for _, c := range candidates {
		if path, err := lookPath(c); err == nil {
			return &CommandSynthesizer{goos: goos, binary: path, logger: logger}, nil
		}
	}
	return nil, fmt.Errorf("%w: tried %s", errNoEngine, strings.Join(candidates, ", "))
}

func (c *CommandSynthesizer) Speak(ctx context.Context, text string, opts Options) error {
	args, stdin := c.speakArgs(text, opts.Normalized())
	cmd := exec.CommandContext(ctx, c.binary, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	isolate(cmd)
	cmd.Cancel = func() error { return killTree(cmd) }
	cmd.WaitDelay = killWaitDelay
	if c.logger != nil {
		c.logger.Debug("speech.command", "engine", c.binary, "chars", len(text), "voice", opts.VoiceID)
	}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", c.binary, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (c *CommandSynthesizer) speakArgs(text string, o Options) ([]string, string) {
	switch c.goos {
	case "darwin":
		args := []string{"-r", strconv.Itoa(int(baseWordsPerMinute * o.Rate))}
		if o.VoiceID != "" {
			args = append(args, "-v", o.VoiceID)
		}
		return append(args, "--", text), ""
	case "windows":
		// SAPI rate is -10..10; volume 0..100.
		rate := int((o.Rate - 1) * 10)
		rate = max(-10, min(10, rate))
		volume := int(min(1, o.Volume) * 100)
		script := "Add-Type -AssemblyName System.Speech;" +
			"$s = New-Object System.Speech.Synthesis.SpeechSynthesizer;" +
			"$s.Rate = " + strconv.Itoa(rate) + ";" +
			"$s.Volume = " + strconv.Itoa(volume) + ";"
		if o.VoiceID != "" {
			script += "$s.SelectVoice('" + strings.ReplaceAll(o.VoiceID, "'", "''") + "');"
		}
		script += "$s.Speak([Console]::In.ReadToEnd())"
		return []string{"-NoProfile", "-NonInteractive", "-Command", script}, text
	default:
		voice := o.VoiceID
		if voice == "" {
			voice = strings.ToLower(o.Language)
		}
		args := []string{
			"-s", strconv.Itoa(int(baseWordsPerMinute * o.Rate)),
			"-p", strconv.Itoa(max(0, min(99, int(50*o.Pitch)))),
			"-a", strconv.Itoa(max(0, min(200, int(100*o.Volume)))),
		}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		return append(args, "--", text), ""
	}
}

// Voices lists installed voices.
func (c *CommandSynthesizer) Voices(ctx context.Context) ([]Voice, error) {
	var args []string
	switch c.goos {
	case "darwin":
		args = []string{"-v", "?"}
	case "windows":
		args = []string{"-NoProfile", "-NonInteractive", "-Command",
			"Add-Type -AssemblyName System.Speech;" +
				"(New-Object System.Speech.Synthesis.SpeechSynthesizer).GetInstalledVoices() |" +
				" ForEach-Object { $v = $_.VoiceInfo; '{0}|{1}|{2}' -f $v.Name, $v.Culture.Name, $v.Gender }"}
	default:
		args = []string{"--voices"}
	}
	out, err := exec.CommandContext(ctx, c.binary, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	switch c.goos {
	case "darwin":
		return parseSayVoices(out), nil
	case "windows":
		return parseSAPIVoices(out), nil
	default:
		return parseEspeakVoices(out), nil
	}
}

// parseSayVoices reads `say -v ?` lines: "Luciana  pt_BR  # Olá, ...".
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		lang := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, Voice{ID: name, Name: name, Language: strings.ReplaceAll(lang, "_", "-")})
	}
	return voices
}

// parseEspeakVoices reads the `espeak-ng --voices` table.
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		v := Voice{ID: fields[1], Language: fields[1], Name: strings.ReplaceAll(fields[3], "_", " ")}
		switch {
		case strings.HasSuffix(fields[2], "F"):
			v.Gender = Female
		case strings.HasSuffix(fields[2], "M"):
			v.Gender = Male
		}
		voices = append(voices, v)
	}
	return voices
}

// parseSAPIVoices reads "name|culture|gender" lines.
func parseSAPIVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		parts := strings.Split(strings.TrimSpace(sc.Text()), "|")
		if len(parts) != 3 || parts[0] == "" {
			continue
		}
		voices = append(voices, Voice{
			ID:       parts[0],
			Name:     parts[0],
			Language: parts[1],
			Gender:   Gender(strings.ToLower(parts[2])),
		})
	}
	return voices
}
