package bookmarksync

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// aliasToGUID and guidToAlias implement the bijection between the remote
// service's short root aliases and the local store's 12-character GUIDs
// (spec §3, §9: "centralize in the Record Model"). All other GUIDs pass
// through translateIncomingGUID/translateOutgoingGUID unchanged.
var aliasToGUID = map[string]GUID{
	"places":  RootGUID,
	"menu":    MenuGUID,
	"toolbar": ToolbarGUID,
	"unfiled": UnfiledGUID,
	"mobile":  MobileGUID,
}

var guidToAlias = func() map[GUID]string {
	m := make(map[GUID]string, len(aliasToGUID))
	for alias, guid := range aliasToGUID {
		m[guid] = alias
	}
	return m
}()

// translateIncomingGUID maps a wire id to its internal GUID form. Reserved
// aliases map to their 12-character GUIDs; anything else passes through.
func translateIncomingGUID(wireID string) GUID {
	if g, ok := aliasToGUID[wireID]; ok {
		return g
	}
	return GUID(wireID)
}

// translateOutgoingGUID maps an internal GUID back to its wire form.
func translateOutgoingGUID(g GUID) string {
	if alias, ok := guidToAlias[g]; ok {
		return alias
	}
	return string(g)
}

// guidLength is the fixed length of a GUID. Generated GUIDs use the
// base64url alphabet without padding, matching Firefox's PlacesUtils scheme.
const guidLength = 12

// NewGUID generates a fresh random 12-character GUID, used by the Place
// Store Adapter and by the merge driver's GenerateNewGUID callback when the
// merger needs to re-id an item with an invalid or colliding GUID.
func NewGUID() GUID {
	u := uuid.New()
	// uuid.New() gives us 16 bytes of randomness; base64-encode and trim to
	// the fixed GUID length rather than pulling in a second RNG.
	enc := base64.RawURLEncoding.EncodeToString(u[:])
	return GUID(enc[:guidLength])
}

// newGUIDFromRandom is used by tests that want a GUID independent of the
// uuid package's internal state machine.
func newGUIDFromRandom() (GUID, error) {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding.EncodeToString(buf)
	return GUID(enc[:guidLength]), nil
}

// IsReservedRoot reports whether g is one of the five well-known roots.
func IsReservedRoot(g GUID) bool {
	_, ok := guidToAlias[g]
	return ok
}
