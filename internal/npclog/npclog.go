// Package npclog extracts the current speaker from the game's chat log.
//
// The game appends dialogue lines like
//
//	[12:34:56] Galadriel sagt: Der Wald ruft.
//
// to a plain text log file. The reader scans the most recent lines for the
// newest dialogue-attributed line and guesses the speaker's gender from
// title keywords in the name. Everything here is best effort: a missing or
// unreadable log yields ("Unknown", "Unknown") rather than an error, because
// voice assignment has its own fallbacks.
package npclog

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// tailLines is how many lines from the end of the log are scanned.
const tailLines = 50

// tailBytes bounds how much of the log file is read. Game logs grow without
// rotation, so reading the whole file is off the table.
const tailBytes = 64 * 1024

// Unknown is returned for name and gender when no speaker can be found.
const Unknown = "Unknown"

// speakerPattern matches a dialogue-attributed line and captures the
// speaker name between the timestamp and the "sagt" verb.
var speakerPattern = regexp.MustCompile(`^\s*\[\d{2}:\d{2}:\d{2}\]\s*([^\]]+?)\s*sagt[:.]`)

// bracketPattern matches bracketed fragments such as guild or channel tags
// that the game sometimes injects into the name column.
var bracketPattern = regexp.MustCompile(`\[[^\]\s]*\]?`)

// Keyword lists for the gender heuristic. German titles dominate because
// the game client runs in German; female forms are checked first since most
// of them contain their male stem ("Wächterin" contains "Wächter").
var (
	femaleKeywords = []string{
		"frau", "dame", "herrin", "königin", "prinzessin", "priesterin",
		"magierin", "hexe", "heilerin", "händlerin", "wächterin",
		"schwester", "mutter", "lady",
	}
	maleKeywords = []string{
		"herr", "könig", "prinz", "priester", "magier", "heiler",
		"händler", "wächter", "bruder", "vater", "lord", "hauptmann",
		"häuptling", "ritter",
	}
)

// Reader extracts speaker information from a game log file.
type Reader struct {
	path string
	log  *slog.Logger
}

// NewReader creates a Reader over the log file at path.
func NewReader(path string) *Reader {
	return &Reader{path: path, log: slog.With("component", "npclog")}
}

// LatestSpeaker returns the name and guessed gender of the most recent
// speaker in the log. It returns ("Unknown", "Unknown") when the log is
// missing, unreadable or contains no dialogue line in its tail.
func (r *Reader) LatestSpeaker() (name, gender string) {
	lines, err := r.tail()
	if err != nil {
		r.log.Debug("game log not readable", "path", r.path, "error", err)
		return Unknown, Unknown
	}
	for i := len(lines) - 1; i >= 0; i-- {
		m := speakerPattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		name = cleanName(m[1])
		if name == "" {
			continue
		}
		return name, GuessGender(name)
	}
	return Unknown, Unknown
}

// tail returns the last [tailLines] lines of the log file.
func (r *Reader) tail() ([]string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if size := info.Size(); size > tailBytes {
		if _, err := f.Seek(size-tailBytes, io.SeekStart); err != nil {
			return nil, err
		}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return lines, nil
}

// cleanName strips bracketed tags and stray brackets from a captured name.
func cleanName(raw string) string {
	name := bracketPattern.ReplaceAllString(raw, "")
	name = strings.NewReplacer("[", "", "]", "").Replace(name)
	return strings.TrimSpace(name)
}

// GuessGender guesses a speaker's gender from title keywords in the name.
// Unknown names yield [Unknown], which the voice assigner treats as "no
// gender filter".
func GuessGender(name string) string {
	lower := strings.ToLower(name)
	for _, kw := range femaleKeywords {
		if strings.Contains(lower, kw) {
			return "Female"
		}
	}
	for _, kw := range maleKeywords {
		if strings.Contains(lower, kw) {
			return "Male"
		}
	}
	return Unknown
}
