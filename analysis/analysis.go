// Package analysis estimates tempo and key by running external tools, eg. aubio or
// keyfinder-cli, configured as command lines.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

var (
	ErrNotConfigured = errors.New("no command configured")
	ErrBadOutput     = errors.New("unexpected command output")
)

// Keys are the pitch classes a key estimate can name.
var Keys = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flats = map[string]string{
	"DB": "C#", "EB": "D#", "GB": "F#", "AB": "G#", "BB": "A#",
	"CB": "B", "FB": "E", "E#": "F", "B#": "C",
}

const markerFile = "<file>"

type command struct {
	name string
	args []string
}

func parseCommand(conf string) (*command, error) {
	conf = strings.TrimSpace(conf)
	if conf == "" {
		return nil, nil
	}
	parts, err := shlex.Split(conf)
	if err != nil {
		return nil, fmt.Errorf("split command: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no command provided")
	}
	return &command{name: parts[0], args: parts[1:]}, nil
}

func (c *command) output(ctx context.Context, path string) (string, error) {
	var args []string
	var sawMarker bool
	for _, arg := range c.args {
		if arg == markerFile {
			sawMarker = true
			arg = path
		}
		args = append(args, arg)
	}
	if !sawMarker {
		args = append(args, path)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w: %s", c.name, err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

func (c *command) String() string {
	if c == nil {
		return ""
	}
	args := fmt.Sprintf("%q", append([]string{c.name}, c.args...))
	args = strings.TrimPrefix(args, "[")
	args = strings.TrimSuffix(args, "]")
	return args
}

// Subproc runs one command for tempo and one for key. Either may be left unset. The
// file path replaces a "<file>" argument, or is appended if there isn't one.
type Subproc struct {
	tempo *command
	key   *command
}

func NewSubproc(tempoConf, keyConf string) (*Subproc, error) {
	tempo, err := parseCommand(tempoConf)
	if err != nil {
		return nil, fmt.Errorf("tempo command: %w", err)
	}
	key, err := parseCommand(keyConf)
	if err != nil {
		return nil, fmt.Errorf("key command: %w", err)
	}
	return &Subproc{tempo: tempo, key: key}, nil
}

// Tempo runs the tempo command and reads a number from the first field of its output.
func (s *Subproc) Tempo(ctx context.Context, path string) (float64, error) {
	if s.tempo == nil {
		return 0, fmt.Errorf("tempo: %w", ErrNotConfigured)
	}
	out, err := s.tempo.output(ctx, path)
	if err != nil {
		return 0, err
	}
	return ParseTempo(out)
}

// Key runs the key command and reads a pitch class from the first field of its output.
func (s *Subproc) Key(ctx context.Context, path string) (string, error) {
	if s.key == nil {
		return "", fmt.Errorf("key: %w", ErrNotConfigured)
	}
	out, err := s.key.output(ctx, path)
	if err != nil {
		return "", err
	}
	return ParseKey(out)
}

func (s *Subproc) String() string {
	return fmt.Sprintf("subproc (tempo %s) (key %s)", s.tempo, s.key)
}

func ParseTempo(out string) (float64, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrBadOutput)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(fields[0]), "bpm"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadOutput, fields[0])
	}
	return v, nil
}

// ParseKey accepts eg. "F#", "f#m", "Gb major" and returns the sharp spelling of the tonic.
func ParseKey(out string) (string, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty", ErrBadOutput)
	}
	raw := strings.ToUpper(fields[0])
	raw = strings.TrimSuffix(raw, "M")
	raw = strings.TrimSuffix(raw, "MIN")
	raw = strings.TrimSuffix(raw, "MAJ")
	raw = strings.ReplaceAll(raw, "♯", "#")
	raw = strings.ReplaceAll(raw, "♭", "B")

	if sharp, ok := flats[raw]; ok {
		return sharp, nil
	}
	for _, k := range Keys {
		if k == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrBadOutput, fields[0])
}
