package voice

import (
	"context"
	"crypto/md5"
	"log/slog"
	"math/big"
	"strings"

	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
)

// EmergencyVoiceID is returned when no voice catalog is available at all.
// The pipeline must keep speaking even when the provider's voice list
// cannot be fetched.
const EmergencyVoiceID = "21m00Tcm4TlvDq8ikWAM"

// Method tells how an assignment was resolved.
type Method string

const (
	// MethodMemory means the name already had a persisted assignment.
	MethodMemory Method = "memory"
	// MethodComputed means a new voice was picked deterministically.
	MethodComputed Method = "computed"
	// MethodEmergency means the catalog was empty and the hardcoded
	// fallback voice was used.
	MethodEmergency Method = "emergency"
)

// Assigner resolves NPC names to voice ids. Assignments are sticky: once a
// name has a voice it keeps it for all future sessions.
type Assigner struct {
	catalog *Catalog
	mapping *MappingStore
	log     *slog.Logger
}

// NewAssigner creates an Assigner over the given catalog and mapping store.
func NewAssigner(catalog *Catalog, mapping *MappingStore) *Assigner {
	return &Assigner{
		catalog: catalog,
		mapping: mapping,
		log:     slog.With("component", "voice"),
	}
}

// Assign resolves a voice id for npcName. It never fails: an unavailable
// catalog degrades to [EmergencyVoiceID], and a mapping persistence error
// only logs, because the computed id is reproducible from the name alone.
func (a *Assigner) Assign(ctx context.Context, npcName, npcGender string) (string, Method) {
	voices := a.catalog.Voices(ctx)
	if len(voices) == 0 {
		a.log.Warn("voice catalog unavailable, using emergency voice", "npc", npcName)
		return EmergencyVoiceID, MethodEmergency
	}

	if id, ok := a.mapping.Get(npcName); ok {
		return id, MethodMemory
	}

	candidates := filterByGender(voices, npcGender)
	picked := candidates[hashIndex(npcName, len(candidates))]
	if err := a.mapping.Put(npcName, picked.ID); err != nil {
		a.log.Warn("could not persist voice assignment", "npc", npcName, "error", err)
	}
	a.log.Info("assigned new voice", "npc", npcName, "gender", npcGender, "voice", picked.Name, "voice_id", picked.ID)
	return picked.ID, MethodComputed
}

// filterByGender keeps voices whose gender label contains npcGender,
// case-insensitively. An empty result falls back to the full list so sparse
// gender metadata never leaves a name without a voice.
func filterByGender(voices []tts.Voice, npcGender string) []tts.Voice {
	want := strings.ToLower(strings.TrimSpace(npcGender))
	if want == "" {
		return voices
	}
	var out []tts.Voice
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Gender()), want) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return voices
	}
	return out
}

// hashIndex maps name to a stable index in [0, n). MD5 is used purely as a
// platform-independent bytes-to-integer mapping, not for security: the same
// name must pick the same index on every machine and run.
func hashIndex(name string, n int) int {
	sum := md5.Sum([]byte(name))
	idx := new(big.Int).SetBytes(sum[:])
	return int(idx.Mod(idx, big.NewInt(int64(n))).Int64())
}
