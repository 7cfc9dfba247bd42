package stream

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/parley-chat/parley/pkg/logger"
)

// Frame delimiters: the literal opening of an event envelope and the object
// close that ends it.
var (
	framePrefix = []byte(`{"event":`)
	frameSuffix = []byte(`}`)
)

// Extract scans buf for complete event frames and returns them as decoded
// text in the order they appear, plus the unconsumed remainder. The
// remainder must be kept and rescanned once more bytes arrive.
//
// Known limitation, inherited from the wire format: the suffix is a single
// content-independent byte, so a frame whose payload contains "}" inside a
// string value is cut short at that byte. Fixing this means changing the
// framing and therefore wire compatibility.
func Extract(buf []byte) (frames []string, remainder []byte) {
	cursor := 0
	for {
		start := bytes.Index(buf[cursor:], framePrefix)
		if start < 0 {
			// No frame opening in sight; nothing more to consume.
			return frames, buf[cursor:]
		}
		start += cursor

		end := bytes.Index(buf[start+len(framePrefix):], frameSuffix)
		if end < 0 {
			// Partial frame; keep it whole for the next append.
			return frames, buf[start:]
		}
		end += start + len(framePrefix) + len(frameSuffix)

		text, ok := decodeFrame(buf[start:end])
		if !ok {
			// Resynchronize: skip a single byte and rescan.
			logger.Debug("stream: skipping byte at offset %d to resync frame scan", start)
			cursor = start + 1
			continue
		}

		frames = append(frames, text)
		cursor = end
	}
}

// decodeFrame decodes one candidate frame and checks that the decoded text
// still opens and closes with the frame delimiters.
func decodeFrame(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	text := string(raw)
	if !strings.HasPrefix(text, string(framePrefix)) || !strings.HasSuffix(text, string(frameSuffix)) {
		return "", false
	}
	return text, true
}
