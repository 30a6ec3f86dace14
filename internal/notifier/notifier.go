package notifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier delivers formatted reports.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LogNotifier writes reports to the log; used when Telegram is not configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Send(_ context.Context, text string) error {
	n.logger.Info().Msg("report\n" + text)
	return nil
}

// maxMessageLen is Telegram's limit for a single message.
const maxMessageLen = 4096

var htmlTag = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// splitMessage cuts text into chunks of at most limit bytes at line
// boundaries. A line longer than limit loses its HTML tags and is cut
// between runes and outside entities, so every chunk stays valid HTML.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if len(line) > limit {
			line = htmlTag.ReplaceAllString(line, "")
		}
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			cut := entitySafeCut(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// entitySafeCut returns the largest cut <= limit that splits neither a rune
// nor an entity such as "&amp;".
func entitySafeCut(line string, limit int) int {
	cut := limit
	for cut > 0 && !isRuneStart(line[cut]) {
		cut--
	}
	if amp := strings.LastIndexByte(line[:cut], '&'); amp > 0 &&
		!strings.Contains(line[amp:cut], ";") {
		cut = amp
	}
	if cut == 0 {
		cut = limit
		for cut < len(line) && !isRuneStart(line[cut]) {
			cut++
		}
	}
	return cut
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
