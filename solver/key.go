// Package solver implements the offline blueprint side of the decision core:
// the information-set store with regret matching, external-sampling Monte
// Carlo CFR over the abstracted game, checkpointing with abstraction
// fingerprint validation, and average-policy export.
package solver

import (
	"fmt"
	"strings"

	"github.com/pokerforge/pokerforge/abstraction"
)

// TokenWidth is the fixed width of one betting-history token in the v2 key
// encoding. Action tokens shorter than this are padded with '.'.
const TokenWidth = 4

// StreetBreak marks a street transition inside the betting history.
const StreetBreak = "n"

// InfosetKey identifies one distinguishable decision situation in the
// abstraction: the street, the acting player's hand bucket, and the
// abbreviated betting history from the start of the hand. Keys are immutable
// value types; History holds fixed-width v2 tokens.
type InfosetKey struct {
	Street  abstraction.Street
	Bucket  int
	History string
}

// PadToken pads an action token to the fixed v2 width.
func PadToken(tok string) string {
	if len(tok) >= TokenWidth {
		return tok[:TokenWidth]
	}
	return tok + strings.Repeat(".", TokenWidth-len(tok))
}

// Append returns the history with one more action token.
func (k InfosetKey) Append(tok string) InfosetKey {
	k.History += PadToken(tok)
	return k
}

// String renders the canonical v2 encoding: street digit, zero-padded
// bucket, and the fixed-width history.
func (k InfosetKey) String() string {
	return fmt.Sprintf("%d|%04d|%s", k.Street, k.Bucket, k.History)
}

// ParseKey parses a v2-encoded key string.
func ParseKey(s string) (InfosetKey, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 {
		return InfosetKey{}, fmt.Errorf("malformed infoset key %q", s)
	}
	var street, bucket int
	if _, err := fmt.Sscanf(parts[0], "%d", &street); err != nil || street < 0 || street > 3 {
		return InfosetKey{}, fmt.Errorf("malformed street in key %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &bucket); err != nil || bucket < 0 {
		return InfosetKey{}, fmt.Errorf("malformed bucket in key %q", s)
	}
	if len(parts[2])%TokenWidth != 0 {
		return InfosetKey{}, fmt.Errorf("history not token-aligned in key %q", s)
	}
	return InfosetKey{Street: abstraction.Street(street), Bucket: bucket, History: parts[2]}, nil
}

// EncodeV1 renders the legacy v1 encoding used by checkpoints before the
// fixed-width format: slash-separated fields with unpadded, dot-separated
// history tokens.
func (k InfosetKey) EncodeV1() string {
	toks := make([]string, 0, len(k.History)/TokenWidth)
	for i := 0; i+TokenWidth <= len(k.History); i += TokenWidth {
		toks = append(toks, strings.TrimRight(k.History[i:i+TokenWidth], "."))
	}
	return fmt.Sprintf("%d/%d/%s", k.Street, k.Bucket, strings.Join(toks, "."))
}

// ParseKeyV1 parses the legacy encoding.
func ParseKeyV1(s string) (InfosetKey, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 {
		return InfosetKey{}, fmt.Errorf("malformed v1 infoset key %q", s)
	}
	var street, bucket int
	if _, err := fmt.Sscanf(parts[0], "%d", &street); err != nil || street < 0 || street > 3 {
		return InfosetKey{}, fmt.Errorf("malformed street in v1 key %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &bucket); err != nil || bucket < 0 {
		return InfosetKey{}, fmt.Errorf("malformed bucket in v1 key %q", s)
	}
	key := InfosetKey{Street: abstraction.Street(street), Bucket: bucket}
	if parts[2] != "" {
		for _, tok := range strings.Split(parts[2], ".") {
			if tok == "" {
				return InfosetKey{}, fmt.Errorf("empty token in v1 key %q", s)
			}
			key = key.Append(tok)
		}
	}
	return key, nil
}
