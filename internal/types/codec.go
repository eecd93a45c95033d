package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed message")
var ErrUnknownMessage = errors.New("unknown message kind")

type decoder func(json.RawMessage) (Msg, error)

var decoders = map[Kind]decoder{
	KindStartGame:          decodeAs[StartGame],
	KindEndGame:            decodeAs[EndGame],
	KindHostChoice:         decodeAs[HostChoice],
	KindHostReady:          decodeAs[HostReady],
	KindHostChecked:        decodeAs[HostChecked],
	KindBuzzEnable:         decodeAs[BuzzEnable],
	KindBuzzDisable:        decodeAs[BuzzDisable],
	KindBuzz:               decodeAs[Buzz],
	KindBuzzed:             decodeAs[Buzzed],
	KindDoHeartbeat:        decodeAs[DoHeartbeat],
	KindHeartbeat:          decodeAs[Heartbeat],
	KindGotHeartbeat:       decodeAs[GotHeartbeat],
	KindLatencyOfHeartbeat: decodeAs[LatencyOfHeartbeat],
	KindPlayerList:         decodeAs[PlayerList],
	KindNewPlayer:          decodeAs[NewPlayer],
	KindPlayerState:        decodeAs[PlayerState],
	KindGameState:          decodeAs[Snapshot],
	KindWitness:            decodeAs[Witness],
}

// Kinds that may be sent as a bare string.
var unitKinds = map[Kind]bool{
	KindStartGame:   true,
	KindEndGame:     true,
	KindHostReady:   true,
	KindBuzzEnable:  true,
	KindBuzzDisable: true,
	KindBuzz:        true,
}

func decodeAs[T Msg](raw json.RawMessage) (Msg, error) {
	var m T
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m.Kind(), err)
	}
	return m, nil
}

// Encode renders msg in its tagged form.
func Encode(msg Msg) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}
	return json.Marshal(map[Kind]Msg{msg.Kind(): msg})
}

// Decode parses one frame. Unknown kinds return ErrUnknownMessage; anything
// that is not a single-key object or a bare unit kind returns ErrMalformed.
func Decode(data []byte) (Msg, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}

	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		kind := Kind(name)
		if _, ok := decoders[kind]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, name)
		}
		if !unitKinds[kind] {
			return nil, fmt.Errorf("%w: %s needs a payload", ErrMalformed, kind)
		}
		return decoders[kind](nil)
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("%w: want exactly one kind, got %d", ErrMalformed, len(tagged))
	}
	for name, raw := range tagged {
		dec, ok := decoders[Kind(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, name)
		}
		return dec(raw)
	}
	return nil, ErrMalformed // unreachable
}
