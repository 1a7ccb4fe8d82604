package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Tnze/go-mc/chat"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/google/uuid"

	"github.com/go-mclib/pingapi/pkg/reply"
)

// ErrIncompatible is returned when an adapter cannot interpret a packet
// written by the host, i.e. the installed adapter does not match the wire format.
var ErrIncompatible = errors.New("adapter incompatible with wire format")

// secureChatProtocol is the first protocol (1.19) whose status response
// carries the chat preview / secure chat flags.
const secureChatProtocol = 759

// Adapter converts between the status response packet of one protocol
// range and reply.Reply. Sample entry ids are not kept by Decode and are
// regenerated by Encode.
type Adapter interface {
	Name() string
	Decode(p pk.Packet, conn reply.Conn) (*reply.Reply, error)
	Encode(r *reply.Reply) (pk.Packet, error)
}

var (
	// Legacy serves 1.7 through 1.18.2.
	Legacy = NewJSONAdapter("legacy", false)
	// Modern serves 1.19 and later.
	Modern = NewJSONAdapter("modern", true)
)

// ForProtocol picks the adapter for a protocol version negotiated in the handshake.
func ForProtocol(version int) Adapter {
	if version >= secureChatProtocol {
		return Modern
	}
	return Legacy
}

// ResponseJSON is the document carried by the status response packet.
type ResponseJSON struct {
	Version     VersionJSON  `json:"version"`
	Players     PlayersJSON  `json:"players"`
	Description chat.Message `json:"description"`
	Favicon     string       `json:"favicon,omitempty"`
	// Added since 1.19
	PreviewsChat *bool `json:"previewsChat,omitempty"`
	// Added since 1.19.1
	EnforcesSecureChat *bool `json:"enforcesSecureChat,omitempty"`
}

type VersionJSON struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

type PlayersJSON struct {
	Max    int                `json:"max"`
	Online int                `json:"online"`
	Sample []PlayerSampleJSON `json:"sample,omitempty"`
}

type PlayerSampleJSON struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// JSONAdapter maps ResponseJSON to and from reply.Reply.
type JSONAdapter struct {
	name      string
	chatFlags bool
	newID     func() string
}

func NewJSONAdapter(name string, chatFlags bool) *JSONAdapter {
	return &JSONAdapter{
		name:      name,
		chatFlags: chatFlags,
		newID:     uuid.NewString,
	}
}

func (a *JSONAdapter) Name() string { return a.name }

func (a *JSONAdapter) Decode(p pk.Packet, conn reply.Conn) (*reply.Reply, error) {
	if !IsStatusResponse(p) {
		return nil, fmt.Errorf("%w: 0x%02x is not a status response", ErrUnexpectedPacket, p.ID)
	}
	var data pk.String
	if err := p.Scan(&data); err != nil {
		return nil, fmt.Errorf("%w: scan status response: %v", ErrIncompatible, err)
	}
	var doc ResponseJSON
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: parse status json: %v", ErrIncompatible, err)
	}

	r := reply.New(conn)
	r.SetMOTD(legacyText(doc.Description))
	r.SetOnlinePlayers(doc.Players.Online)
	r.SetMaxPlayers(doc.Players.Max)
	r.SetProtocolVersion(doc.Version.Protocol)
	r.SetProtocolName(doc.Version.Name)

	names := make([]string, 0, len(doc.Players.Sample))
	for _, entry := range doc.Players.Sample {
		names = append(names, entry.Name)
	}
	r.SetPlayerSample(names)

	if doc.Favicon != "" {
		r.SetIcon(reply.Icon(doc.Favicon))
	}
	if a.chatFlags {
		r.SetChatFlags(reply.ChatFlags{
			PreviewsChat:       doc.PreviewsChat != nil && *doc.PreviewsChat,
			EnforcesSecureChat: doc.EnforcesSecureChat != nil && *doc.EnforcesSecureChat,
		})
	}
	return r, nil
}

// Encode fails with ErrIncompatible for an icon that a JSON string cannot
// carry byte for byte.
func (a *JSONAdapter) Encode(r *reply.Reply) (pk.Packet, error) {
	icon := r.Icon()
	if !utf8.Valid(icon) {
		return pk.Packet{}, fmt.Errorf("%w: icon is not valid UTF-8", ErrIncompatible)
	}

	names := r.PlayerSample()
	sample := make([]PlayerSampleJSON, len(names))
	for i, name := range names {
		sample[i] = PlayerSampleJSON{Name: name, ID: a.newID()}
	}

	doc := ResponseJSON{
		Version: VersionJSON{
			Name:     r.ProtocolName(),
			Protocol: r.ProtocolVersion(),
		},
		Players: PlayersJSON{
			Max:    r.MaxPlayers(),
			Online: r.OnlinePlayers(),
			Sample: sample,
		},
		Description: chat.Text(r.MOTD()),
		Favicon:     string(icon),
	}
	if a.chatFlags {
		flags := r.ChatFlags()
		doc.PreviewsChat = &flags.PreviewsChat
		doc.EnforcesSecureChat = &flags.EnforcesSecureChat
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return pk.Packet{}, fmt.Errorf("%w: marshal status json: %v", ErrIncompatible, err)
	}
	return pk.Marshal(StatusResponseID, pk.String(data)), nil
}

var legacyColors = map[string]byte{
	"black":        '0',
	"dark_blue":    '1',
	"dark_green":   '2',
	"dark_aqua":    '3',
	"dark_red":     '4',
	"dark_purple":  '5',
	"gold":         '6',
	"gray":         '7',
	"dark_gray":    '8',
	"blue":         '9',
	"green":        'a',
	"aqua":         'b',
	"red":          'c',
	"light_purple": 'd',
	"yellow":       'e',
	"white":        'f',
}

// legacyText flattens a component tree into plain text with § codes, the
// form listeners edit. A bare {"text": ...} component comes back unchanged.
func legacyText(m chat.Message) string {
	var (
		b   strings.Builder
		cur legacyStyle
	)
	writeLegacy(&b, m, legacyStyle{}, &cur)
	return b.String()
}

// legacyStyle is the effective formatting of one component after
// inheritance. color is a legacy code or 0.
type legacyStyle struct {
	color                                               byte
	bold, italic, underlined, strikethrough, obfuscated bool
}

func (s legacyStyle) inherit(m chat.Message) legacyStyle {
	if code, ok := legacyColors[m.Color]; ok {
		s.color = code
	}
	s.bold = s.bold || m.Bold
	s.italic = s.italic || m.Italic
	s.underlined = s.underlined || m.UnderLined
	s.strikethrough = s.strikethrough || m.StrikeThrough
	s.obfuscated = s.obfuscated || m.Obfuscated
	return s
}

// writeCodes switches the rendered style from cur to s. A colour code clears
// formatting in legacy text, so every active format is written after it.
func (s legacyStyle) writeCodes(b *strings.Builder, cur legacyStyle) {
	switch {
	case s.color != 0:
		b.WriteRune(reply.SectionSign)
		b.WriteByte(s.color)
	case cur != legacyStyle{}:
		b.WriteString("§r")
	}
	for _, f := range []struct {
		on   bool
		code string
	}{
		{s.obfuscated, "§k"},
		{s.bold, "§l"},
		{s.strikethrough, "§m"},
		{s.underlined, "§n"},
		{s.italic, "§o"},
	} {
		if f.on {
			b.WriteString(f.code)
		}
	}
}

func writeLegacy(b *strings.Builder, m chat.Message, parent legacyStyle, cur *legacyStyle) {
	s := parent.inherit(m)
	if m.Text != "" && s != *cur {
		s.writeCodes(b, *cur)
		*cur = s
	}
	b.WriteString(m.Text)
	for _, extra := range m.Extra {
		writeLegacy(b, extra, s, cur)
	}
}
